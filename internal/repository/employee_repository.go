package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/locvowork/excelmapper/internal/domain"
)

const uniqueViolation = "23505"

type employeeRepository struct {
	db *sql.DB
}

func NewEmployeeRepository(db *sql.DB) domain.EmployeeRepository {
	return &employeeRepository{db: db}
}

const employeeColumns = "emp_no, birth_date, first_name, last_name, gender, hire_date"

func (r *employeeRepository) List(ctx context.Context, filter domain.EmployeeFilter) ([]domain.Employee, error) {
	query, args := listQuery(filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []domain.Employee
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.EmpNo, &e.BirthDate, &e.FirstName, &e.LastName, &e.Gender, &e.HireDate); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}

func listQuery(filter domain.EmployeeFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if filter.LastName != "" {
		args = append(args, filter.LastName)
		where = append(where, fmt.Sprintf("lower(last_name) = lower($%d)", len(args)))
	}
	if filter.Gender != "" {
		args = append(args, filter.Gender)
		where = append(where, fmt.Sprintf("gender = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + employeeColumns + " FROM employees")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY emp_no")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

func (r *employeeRepository) GetByID(ctx context.Context, id int) (*domain.Employee, error) {
	var e domain.Employee
	err := r.db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE emp_no = $1", id,
	).Scan(&e.EmpNo, &e.BirthDate, &e.FirstName, &e.LastName, &e.Gender, &e.HireDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee %d: %w", id, err)
	}
	return &e, nil
}

func (r *employeeRepository) Create(ctx context.Context, emp *domain.Employee) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO employees ("+employeeColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		emp.EmpNo, emp.BirthDate, emp.FirstName, emp.LastName, emp.Gender, emp.HireDate,
	)
	if err != nil {
		return translate(err, emp.EmpNo)
	}
	return nil
}

// BulkCreate streams employees into the table with COPY inside one transaction.
func (r *employeeRepository) BulkCreate(ctx context.Context, employees []*domain.Employee) (int, error) {
	if len(employees) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("employees",
		"emp_no", "birth_date", "first_name", "last_name", "gender", "hire_date"))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, e := range employees {
		if _, err := stmt.ExecContext(ctx, e.EmpNo, e.BirthDate, e.FirstName, e.LastName, e.Gender, e.HireDate); err != nil {
			stmt.Close()
			return 0, translate(err, e.EmpNo)
		}
	}
	// the final Exec flushes the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, translate(err, 0)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("failed to close copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return len(employees), nil
}

func translate(err error, empNo int) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if empNo > 0 {
			return fmt.Errorf("%w: %d", domain.ErrDuplicate, empNo)
		}
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pqErr.Detail)
	}
	return fmt.Errorf("failed to write employee: %w", err)
}

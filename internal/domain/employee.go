package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("employee not found")
	ErrDuplicate = errors.New("employee already exists")
)

// Employee is a row of the employees table and of the employee sheet.
type Employee struct {
	EmpNo     int       `json:"emp_no" excel:"Emp No,width=10" validate:"gt=0"`
	BirthDate time.Time `json:"birth_date" excel:"Birth Date,width=12,format=yyyy-mm-dd" validate:"required"`
	FirstName string    `json:"first_name" excel:"First Name,width=16" validate:"required,max=14"`
	LastName  string    `json:"last_name" excel:"Last Name,width=18" validate:"required,max=16"`
	Gender    string    `json:"gender" excel:"Gender,width=8" validate:"oneof=M F"`
	HireDate  time.Time `json:"hire_date" excel:"Hire Date,width=12,format=yyyy-mm-dd" validate:"required,gtfield=BirthDate"`
}

type EmployeeFilter struct {
	LastName string
	Gender   string
	Limit    int
	Offset   int
}

type EmployeeRepository interface {
	List(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	GetByID(ctx context.Context, id int) (*Employee, error)
	Create(ctx context.Context, emp *Employee) error
	// BulkCreate stores employees in one transaction and returns how many were written.
	BulkCreate(ctx context.Context, employees []*Employee) (int, error)
}

// RowError reports why one spreadsheet row was rejected.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationError lists the rule violations of one employee.
type ValidationError struct {
	Errors []RowError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		msgs[i] = re.Field + ": " + re.Message
	}
	return "invalid employee: " + strings.Join(msgs, "; ")
}

// ImportReport summarizes one imported file.
type ImportReport struct {
	BatchID  string     `json:"batch_id"`
	Source   string     `json:"source"`
	Rows     int        `json:"rows"`
	Blank    int        `json:"blank"`
	Imported int        `json:"imported"`
	Rejected []RowError `json:"rejected,omitempty"`
	Error    string     `json:"error,omitempty"`
}

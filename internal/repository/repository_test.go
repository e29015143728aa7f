package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/excelmapper/internal/domain"
)

func employee(no int, last, gender string) domain.Employee {
	return domain.Employee{
		EmpNo:     no,
		BirthDate: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC),
		FirstName: "Test",
		LastName:  last,
		Gender:    gender,
		HireDate:  time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryEmployeeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEmployeeRepository(employee(3, "Sato", "F"), employee(1, "Kim", "M"))

	t.Run("ListSortedAndFiltered", func(t *testing.T) {
		all, err := repo.List(ctx, domain.EmployeeFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, 1, all[0].EmpNo)

		women, err := repo.List(ctx, domain.EmployeeFilter{Gender: "F"})
		require.NoError(t, err)
		require.Len(t, women, 1)
		assert.Equal(t, "Sato", women[0].LastName)

		byName, err := repo.List(ctx, domain.EmployeeFilter{LastName: "kim"})
		require.NoError(t, err)
		assert.Len(t, byName, 1)

		page, err := repo.List(ctx, domain.EmployeeFilter{Offset: 1, Limit: 5})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, 3, page[0].EmpNo)

		past, err := repo.List(ctx, domain.EmployeeFilter{Offset: 9})
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("GetByID", func(t *testing.T) {
		e, err := repo.GetByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Sato", e.LastName)

		_, err = repo.GetByID(ctx, 42)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Create", func(t *testing.T) {
		e := employee(7, "Lee", "M")
		require.NoError(t, repo.Create(ctx, &e))
		assert.ErrorIs(t, repo.Create(ctx, &e), domain.ErrDuplicate)
	})

	t.Run("BulkCreateIsAllOrNothing", func(t *testing.T) {
		a, b, dup := employee(10, "A", "F"), employee(11, "B", "M"), employee(1, "Dup", "M")

		_, err := repo.BulkCreate(ctx, []*domain.Employee{&a, &dup})
		assert.ErrorIs(t, err, domain.ErrDuplicate)
		_, err = repo.GetByID(ctx, 10)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = repo.BulkCreate(ctx, []*domain.Employee{&a, &a})
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		n, err := repo.BulkCreate(ctx, []*domain.Employee{&a, &b})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestListQuery(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.EmployeeFilter
		query  string
		args   []interface{}
	}{
		{
			name:  "All",
			query: "SELECT " + employeeColumns + " FROM employees ORDER BY emp_no",
		},
		{
			name:   "Filtered",
			filter: domain.EmployeeFilter{LastName: "Kim", Gender: "M", Limit: 10, Offset: 20},
			query: "SELECT " + employeeColumns + " FROM employees WHERE lower(last_name) = lower($1) AND gender = $2" +
				" ORDER BY emp_no LIMIT $3 OFFSET $4",
			args: []interface{}{"Kim", "M", 10, 20},
		},
		{
			name:   "OffsetOnly",
			filter: domain.EmployeeFilter{Offset: 5},
			query:  "SELECT " + employeeColumns + " FROM employees ORDER BY emp_no OFFSET $1",
			args:   []interface{}{5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := listQuery(tt.filter)
			assert.Equal(t, tt.query, query)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestTranslate(t *testing.T) {
	err := translate(&pq.Error{Code: uniqueViolation}, 12)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Contains(t, err.Error(), "12")

	err = translate(errors.New("connection reset"), 12)
	assert.NotErrorIs(t, err, domain.ErrDuplicate)
	assert.Contains(t, err.Error(), "connection reset")
}

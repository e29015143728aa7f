package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/locvowork/excelmapper/internal/domain"
)

// MemoryEmployeeRepository keeps employees in process memory. It backs the
// service when no database is configured and in tests.
type MemoryEmployeeRepository struct {
	mu        sync.RWMutex
	employees map[int]domain.Employee
}

func NewMemoryEmployeeRepository(seed ...domain.Employee) *MemoryEmployeeRepository {
	r := &MemoryEmployeeRepository{employees: make(map[int]domain.Employee, len(seed))}
	for _, e := range seed {
		r.employees[e.EmpNo] = e
	}
	return r
}

func (r *MemoryEmployeeRepository) List(ctx context.Context, filter domain.EmployeeFilter) ([]domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Employee, 0, len(r.employees))
	for _, e := range r.employees {
		if filter.LastName != "" && !strings.EqualFold(e.LastName, filter.LastName) {
			continue
		}
		if filter.Gender != "" && e.Gender != filter.Gender {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmpNo < out[j].EmpNo })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []domain.Employee{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryEmployeeRepository) GetByID(ctx context.Context, id int) (*domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.employees[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrNotFound, id)
	}
	return &e, nil
}

func (r *MemoryEmployeeRepository) Create(ctx context.Context, emp *domain.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.employees[emp.EmpNo]; ok {
		return fmt.Errorf("%w: %d", domain.ErrDuplicate, emp.EmpNo)
	}
	r.employees[emp.EmpNo] = *emp
	return nil
}

// BulkCreate writes all employees or none of them.
func (r *MemoryEmployeeRepository) BulkCreate(ctx context.Context, employees []*domain.Employee) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]bool, len(employees))
	for _, e := range employees {
		if _, ok := r.employees[e.EmpNo]; ok || seen[e.EmpNo] {
			return 0, fmt.Errorf("%w: %d", domain.ErrDuplicate, e.EmpNo)
		}
		seen[e.EmpNo] = true
	}
	for _, e := range employees {
		r.employees[e.EmpNo] = *e
	}
	return len(employees), nil
}

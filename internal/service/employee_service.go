package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/locvowork/excelmapper/internal/domain"
	"github.com/locvowork/excelmapper/internal/logger"
	"github.com/locvowork/excelmapper/pkg/dataflow"
	"github.com/locvowork/excelmapper/pkg/excelmapper"
	"github.com/locvowork/excelmapper/pkg/excelmapper/csvsheet"
	"github.com/locvowork/excelmapper/pkg/excelmapper/xlsx"
)

// Format is a spreadsheet file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatFromName picks the format from a file name or a format name; anything
// other than csv is treated as xlsx.
func FormatFromName(name string) Format {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		ext = strings.ToLower(name)
	}
	if ext == string(FormatCSV) {
		return FormatCSV
	}
	return FormatXLSX
}

// Upload is one file of a batch import.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

type EmployeeService interface {
	List(ctx context.Context, filter domain.EmployeeFilter) ([]domain.Employee, error)
	Get(ctx context.Context, empNo int) (*domain.Employee, error)
	// Create validates e with the same rules as imported rows before storing it.
	Create(ctx context.Context, e *domain.Employee) error
	Export(ctx context.Context, filter domain.EmployeeFilter, format Format) ([]byte, error)
	// ExportColumns writes only the named employee fields, in the sheet layout.
	ExportColumns(ctx context.Context, filter domain.EmployeeFilter, columns []string) ([]byte, error)
	Import(ctx context.Context, source string, r io.Reader) (*domain.ImportReport, error)
	ImportBatch(ctx context.Context, uploads []Upload) ([]*domain.ImportReport, error)
}

type employeeService struct {
	repo     domain.EmployeeRepository
	mapper   *excelmapper.Mapper
	validate *validator.Validate
	workers  int
}

func NewEmployeeService(repo domain.EmployeeRepository, mapper *excelmapper.Mapper, workers int) EmployeeService {
	if workers <= 0 {
		workers = 1
	}
	return &employeeService{
		repo:     repo,
		mapper:   mapper,
		validate: validator.New(),
		workers:  workers,
	}
}

func (s *employeeService) List(ctx context.Context, filter domain.EmployeeFilter) ([]domain.Employee, error) {
	return s.repo.List(ctx, filter)
}

func (s *employeeService) Get(ctx context.Context, empNo int) (*domain.Employee, error) {
	return s.repo.GetByID(ctx, empNo)
}

func (s *employeeService) Create(ctx context.Context, e *domain.Employee) error {
	cfg, err := excelmapper.Configure[domain.Employee](s.mapper)
	if err != nil {
		return err
	}
	if errs := s.check(ctx, cfg, e); len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return err
	}
	logger.InfoLog(ctx, "created employee %d", e.EmpNo)
	return nil
}

func (s *employeeService) Export(ctx context.Context, filter domain.EmployeeFilter, format Format) ([]byte, error) {
	employees, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	rows := make([]*domain.Employee, len(employees))
	for i := range employees {
		rows[i] = &employees[i]
	}

	if format == FormatCSV {
		var buf bytes.Buffer
		if err := csvsheet.Write(s.mapper, &buf, rows, 0); err != nil {
			return nil, fmt.Errorf("failed to write csv: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := xlsx.ToBytes(s.mapper, rows, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return data, nil
}

var employeeValues = map[string]func(e *domain.Employee) interface{}{
	"EmpNo":     func(e *domain.Employee) interface{} { return e.EmpNo },
	"BirthDate": func(e *domain.Employee) interface{} { return e.BirthDate },
	"FirstName": func(e *domain.Employee) interface{} { return e.FirstName },
	"LastName":  func(e *domain.Employee) interface{} { return e.LastName },
	"Gender":    func(e *domain.Employee) interface{} { return e.Gender },
	"HireDate":  func(e *domain.Employee) interface{} { return e.HireDate },
}

func (s *employeeService) ExportColumns(ctx context.Context, filter domain.EmployeeFilter, columns []string) ([]byte, error) {
	employees, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	table := &excelmapper.DataTable{Columns: columns, Rows: make([][]interface{}, len(employees))}
	for i := range employees {
		row := make([]interface{}, len(columns))
		for j, name := range columns {
			if value, ok := employeeValues[name]; ok {
				row[j] = value(&employees[i])
			}
		}
		table.Rows[i] = row
	}

	f, err := xlsx.NewFile[domain.Employee](s.mapper, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := xlsx.WriteTable[domain.Employee](s.mapper, f, table, 0); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *employeeService) Import(ctx context.Context, source string, r io.Reader) (*domain.ImportReport, error) {
	report, valid, err := s.decode(ctx, uuid.NewString(), source, r)
	if err != nil {
		return nil, err
	}
	if len(valid) > 0 {
		n, err := s.repo.BulkCreate(ctx, valid)
		if err != nil {
			return report, fmt.Errorf("failed to store %s: %w", source, err)
		}
		report.Imported = n
	}
	logger.InfoLog(ctx, "imported %d of %d rows from %s (batch %s)", report.Imported, report.Rows, source, report.BatchID)
	return report, nil
}

type decodedUpload struct {
	index  int
	report *domain.ImportReport
	valid  []*domain.Employee
}

// ImportBatch decodes the uploads concurrently and stores them one file at a
// time. A file that cannot be read or stored is reported, not fatal; only
// repository failures that survive the retries abort the batch.
func (s *employeeService) ImportBatch(ctx context.Context, uploads []Upload) ([]*domain.ImportReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batchID := uuid.NewString()
	indices := make([]int, len(uploads))
	for i := range uploads {
		indices[i] = i
	}

	decoded, decodeDone := dataflow.Map(ctx, dataflow.From(ctx, indices...), func(i int) (decodedUpload, error) {
		u := uploads[i]
		failed := func(err error) (decodedUpload, error) {
			logger.WarnLog(ctx, "batch %s: %s rejected: %v", batchID, u.Name, err)
			return decodedUpload{index: i, report: &domain.ImportReport{BatchID: batchID, Source: u.Name, Error: err.Error()}}, nil
		}
		rc, err := u.Open()
		if err != nil {
			return failed(err)
		}
		defer rc.Close()
		report, valid, err := s.decode(ctx, batchID, u.Name, rc)
		if err != nil {
			return failed(err)
		}
		return decodedUpload{index: i, report: report, valid: valid}, nil
	}, dataflow.WithWorkers(s.workers))

	reports := make([]*domain.ImportReport, len(uploads))
	err := dataflow.ForEach(ctx, decoded, func(d decodedUpload) error {
		reports[d.index] = d.report
		if len(d.valid) == 0 {
			return nil
		}
		n, err := s.repo.BulkCreate(ctx, d.valid)
		if errors.Is(err, domain.ErrDuplicate) {
			d.report.Error = err.Error()
			return nil
		}
		if err != nil {
			return err
		}
		d.report.Imported = n
		return nil
	}, dataflow.WithRetry(2, dataflow.ExponentialBackoff(100*time.Millisecond)))
	if err != nil {
		// release the decoders still blocked on the output
		cancel()
		_ = decodeDone()
		return nil, fmt.Errorf("import batch %s: %w", batchID, err)
	}
	if err := decodeDone(); err != nil {
		return nil, fmt.Errorf("import batch %s: %w", batchID, err)
	}

	logger.InfoLog(ctx, "batch %s: processed %d files", batchID, len(uploads))
	return reports, nil
}

// decode reads the employee sheet from r and splits the rows into valid
// employees and rejected rows.
func (s *employeeService) decode(ctx context.Context, batchID, source string, r io.Reader) (*domain.ImportReport, []*domain.Employee, error) {
	cfg, err := excelmapper.Configure[domain.Employee](s.mapper)
	if err != nil {
		return nil, nil, err
	}

	var records []excelmapper.Record[domain.Employee]
	if FormatFromName(source) == FormatCSV {
		records, err = csvsheet.ReadRecords[domain.Employee](s.mapper, r, 0)
	} else {
		records, err = xlsx.ReadRecords[domain.Employee](s.mapper, r, 0)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", source, err)
	}

	report := &domain.ImportReport{BatchID: batchID, Source: source, Rows: len(records)}
	valid := make([]*domain.Employee, 0, len(records))
	seen := make(map[int]int, len(records))
	for _, rec := range records {
		e := rec.Entity
		if e == nil {
			report.Blank++
			continue
		}
		// rows are reported with 1-based sheet numbers
		rowNumber := rec.RowIndex + 1
		errs := s.check(ctx, cfg, e)
		if prev, ok := seen[e.EmpNo]; ok && len(errs) == 0 {
			errs = append(errs, domain.RowError{
				Field:   columnTitle(cfg, "EmpNo"),
				Message: fmt.Sprintf("duplicates row %d", prev),
			})
		}
		if len(errs) > 0 {
			for _, re := range errs {
				re.Row = rowNumber
				report.Rejected = append(report.Rejected, re)
			}
			continue
		}
		seen[e.EmpNo] = rowNumber
		valid = append(valid, e)
	}
	return report, valid, nil
}

func (s *employeeService) check(ctx context.Context, cfg *excelmapper.ExcelConfiguration[domain.Employee], e *domain.Employee) []domain.RowError {
	err := s.validate.StructCtx(ctx, e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []domain.RowError{{Message: err.Error()}}
	}
	out := make([]domain.RowError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("failed %q validation", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q validation (%s)", fe.Tag(), fe.Param())
		}
		out = append(out, domain.RowError{Field: columnTitle(cfg, fe.StructField()), Message: msg})
	}
	return out
}

func columnTitle(cfg *excelmapper.ExcelConfiguration[domain.Employee], field string) string {
	if p, err := cfg.Property(field); err == nil {
		return p.ColumnTitle
	}
	return field
}

package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/excelmapper/internal/domain"
	"github.com/locvowork/excelmapper/internal/logger"
	"github.com/locvowork/excelmapper/internal/service"
	"github.com/locvowork/excelmapper/internal/service/serviceutils"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

type EmployeeHandler struct {
	svc       service.EmployeeService
	maxUpload int64
}

// NewEmployeeHandler limits each uploaded file to maxUploadMB megabytes.
func NewEmployeeHandler(svc service.EmployeeService, maxUploadMB int64) *EmployeeHandler {
	return &EmployeeHandler{svc: svc, maxUpload: maxUploadMB << 20}
}

func filterFromQuery(c echo.Context) (domain.EmployeeFilter, error) {
	filter := domain.EmployeeFilter{
		LastName: c.QueryParam("last_name"),
		Gender:   c.QueryParam("gender"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid %s %q", name, raw)
		}
		*dst = n
	}
	return filter, nil
}

// ListHandler handles GET /employees
func (h *EmployeeHandler) ListHandler(c echo.Context) error {
	ctx := c.Request().Context()
	filter, err := filterFromQuery(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid query", err)
	}
	employees, err := h.svc.List(ctx, filter)
	if err != nil {
		logger.ErrorLog(ctx, "failed to list employees: %v", err)
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to list employees", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Employees retrieved", employees)
}

// GetHandler handles GET /employees/:id
func (h *EmployeeHandler) GetHandler(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid employee id", err)
	}
	employee, err := h.svc.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return serviceutils.ResponseError(c, http.StatusNotFound, "Employee not found", err)
	}
	if err != nil {
		logger.ErrorLog(ctx, "failed to get employee %d: %v", id, err)
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to get employee", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Employee retrieved", employee)
}

// CreateHandler handles POST /employees
func (h *EmployeeHandler) CreateHandler(c echo.Context) error {
	ctx := c.Request().Context()
	var employee domain.Employee
	if err := c.Bind(&employee); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}

	err := h.svc.Create(ctx, &employee)
	var invalid *domain.ValidationError
	switch {
	case errors.As(err, &invalid):
		return serviceutils.ResponseFailure(c, http.StatusBadRequest, "Invalid employee", invalid.Errors, err)
	case errors.Is(err, domain.ErrDuplicate):
		return serviceutils.ResponseError(c, http.StatusConflict, "Employee already exists", err)
	case err != nil:
		logger.ErrorLog(ctx, "failed to create employee: %v", err)
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to create employee", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Employee created", employee)
}

// ExportHandler handles GET /employees/export?format=csv|xlsx&columns=LastName,EmpNo
func (h *EmployeeHandler) ExportHandler(c echo.Context) error {
	ctx := c.Request().Context()
	filter, err := filterFromQuery(c)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid query", err)
	}
	format := service.FormatFromName(c.QueryParam("format"))

	var data []byte
	if columns := splitColumns(c.QueryParam("columns")); len(columns) > 0 {
		if format == service.FormatCSV {
			return serviceutils.ResponseError(c, http.StatusBadRequest, "Column selection is only available for xlsx", nil)
		}
		data, err = h.svc.ExportColumns(ctx, filter, columns)
	} else {
		data, err = h.svc.Export(ctx, filter, format)
	}
	if err != nil {
		logger.ErrorLog(ctx, "failed to export employees: %v", err)
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to generate export", err)
	}

	contentType := xlsxContentType
	if format == service.FormatCSV {
		contentType = csvContentType
	}
	return serviceutils.ResponseFile(c, http.StatusOK, "employees."+string(format), contentType, data)
}

func splitColumns(raw string) []string {
	var columns []string
	for _, col := range strings.Split(raw, ",") {
		if col = strings.TrimSpace(col); col != "" {
			columns = append(columns, col)
		}
	}
	return columns
}

// ImportHandler handles POST /employees/import with a multipart "file" field.
func (h *EmployeeHandler) ImportHandler(c echo.Context) error {
	ctx := c.Request().Context()
	fh, err := c.FormFile("file")
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Missing upload field \"file\"", err)
	}
	if fh.Size > h.maxUpload {
		return serviceutils.ResponseError(c, http.StatusRequestEntityTooLarge, "File too large", fmt.Errorf("%s is %d bytes", fh.Filename, fh.Size))
	}
	src, err := fh.Open()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to open upload", err)
	}
	defer src.Close()

	report, err := h.svc.Import(ctx, fh.Filename, src)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		return serviceutils.ResponseFailure(c, http.StatusConflict, "Employees already exist", report, err)
	case err != nil && report == nil:
		return serviceutils.ResponseError(c, http.StatusUnprocessableEntity, "Failed to read spreadsheet", err)
	case err != nil:
		logger.ErrorLog(ctx, "failed to import %s: %v", fh.Filename, err)
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to store employees", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Import finished", report)
}

// ImportBatchHandler handles POST /employees/import/batch with one or more
// multipart "files" fields.
func (h *EmployeeHandler) ImportBatchHandler(c echo.Context) error {
	ctx := c.Request().Context()
	form, err := c.MultipartForm()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid multipart form", err)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Missing upload field \"files\"", nil)
	}

	uploads := make([]service.Upload, len(files))
	for i, fh := range files {
		if fh.Size > h.maxUpload {
			return serviceutils.ResponseError(c, http.StatusRequestEntityTooLarge, "File too large", fmt.Errorf("%s is %d bytes", fh.Filename, fh.Size))
		}
		uploads[i] = service.Upload{Name: fh.Filename, Open: opener(fh)}
	}

	reports, err := h.svc.ImportBatch(ctx, uploads)
	if err != nil {
		logger.ErrorLog(ctx, "failed to import batch: %v", err)
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to import batch", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Batch import finished", reports)
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/excelmapper/internal/domain"
	"github.com/locvowork/excelmapper/internal/handler"
	"github.com/locvowork/excelmapper/internal/repository"
	"github.com/locvowork/excelmapper/internal/service"
)

const header = "Emp No,Birth Date,First Name,Last Name,Gender,Hire Date\n"

type response struct {
	Success bool
	Message string
	Data    json.RawMessage
	Error   string
}

func newHandler(t *testing.T, maxUploadMB int64, seed ...domain.Employee) (*handler.EmployeeHandler, *repository.MemoryEmployeeRepository) {
	t.Helper()
	m, err := service.NewEmployeeMapper(zerolog.Nop(), "")
	require.NoError(t, err)
	repo := repository.NewMemoryEmployeeRepository(seed...)
	return handler.NewEmployeeHandler(service.NewEmployeeService(repo, m, 2), maxUploadMB), repo
}

func seedEmployees() []domain.Employee {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
	return []domain.Employee{
		{EmpNo: 10001, BirthDate: d(1953, 9, 2), FirstName: "Georgi", LastName: "Facello", Gender: "M", HireDate: d(1986, 6, 26)},
		{EmpNo: 10002, BirthDate: d(1964, 6, 2), FirstName: "Bezalel", LastName: "Simmel", Gender: "F", HireDate: d(1985, 11, 21)},
	}
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func TestEmployeeEndpoints(t *testing.T) {
	e := echo.New()

	t.Run("List", func(t *testing.T) {
		h, _ := newHandler(t, 1, seedEmployees()...)
		req := httptest.NewRequest(http.MethodGet, "/employees?gender=F", nil)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ListHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusOK, rec.Code)
			var employees []domain.Employee
			resp := decode(t, rec, &employees)
			assert.True(t, resp.Success)
			require.Len(t, employees, 1)
			assert.Equal(t, "Simmel", employees[0].LastName)
		}
	})

	t.Run("List Invalid Limit", func(t *testing.T) {
		h, _ := newHandler(t, 1)
		req := httptest.NewRequest(http.MethodGet, "/employees?limit=many", nil)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ListHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("Get", func(t *testing.T) {
		h, _ := newHandler(t, 1, seedEmployees()...)
		for _, tt := range []struct {
			id   string
			code int
		}{
			{id: "10002", code: http.StatusOK},
			{id: "404", code: http.StatusNotFound},
			{id: "abc", code: http.StatusBadRequest},
		} {
			req := httptest.NewRequest(http.MethodGet, "/employees/"+tt.id, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues(tt.id)

			if assert.NoError(t, h.GetHandler(c)) {
				assert.Equal(t, tt.code, rec.Code, tt.id)
			}
		}
	})

	t.Run("Create", func(t *testing.T) {
		h, repo := newHandler(t, 1)
		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/employees", strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			require.NoError(t, h.CreateHandler(e.NewContext(req, rec)))
			return rec
		}
		valid := `{"emp_no":50001,"birth_date":"1970-01-01T00:00:00Z","first_name":"Ann","last_name":"Arden","gender":"F","hire_date":"1999-01-01T00:00:00Z"}`

		rec := post(valid)
		assert.Equal(t, http.StatusCreated, rec.Code)
		_, err := repo.GetByID(context.Background(), 50001)
		assert.NoError(t, err)

		assert.Equal(t, http.StatusConflict, post(valid).Code)

		rec = post(`{"emp_no":50002,"birth_date":"1970-01-01T00:00:00Z","first_name":"Ben","last_name":"Bloom","gender":"Q","hire_date":"1999-01-01T00:00:00Z"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var rejected []domain.RowError
		decode(t, rec, &rejected)
		assert.Equal(t, []domain.RowError{{Field: "Gender", Message: `failed "oneof" validation (M F)`}}, rejected)
	})

	t.Run("Export XLSX", func(t *testing.T) {
		h, _ := newHandler(t, 1, seedEmployees()...)
		req := httptest.NewRequest(http.MethodGet, "/employees/export", nil)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ExportHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get(echo.HeaderContentType))
			assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "employees.xlsx")

			f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
			require.NoError(t, err)
			defer f.Close()
			rows, err := f.GetRows("Employees")
			require.NoError(t, err)
			assert.Len(t, rows, 3)
		}
	})

	t.Run("Export CSV", func(t *testing.T) {
		h, _ := newHandler(t, 1, seedEmployees()...)
		req := httptest.NewRequest(http.MethodGet, "/employees/export?format=csv&limit=1", nil)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ExportHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "employees.csv")
			assert.Equal(t, header+"10001,1953-09-02,Georgi,Facello,M,1986-06-26\n", rec.Body.String())
		}
	})

	t.Run("Export Columns", func(t *testing.T) {
		h, _ := newHandler(t, 1, seedEmployees()...)
		req := httptest.NewRequest(http.MethodGet, "/employees/export?columns=LastName,%20Gender", nil)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ExportHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusOK, rec.Code)
			f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
			require.NoError(t, err)
			defer f.Close()
			rows, err := f.GetRows("Employees")
			require.NoError(t, err)
			assert.Equal(t, []string{"", "", "", "Last Name", "Gender"}, rows[0])
		}

		req = httptest.NewRequest(http.MethodGet, "/employees/export?format=csv&columns=LastName", nil)
		rec = httptest.NewRecorder()
		if assert.NoError(t, h.ExportHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("Import", func(t *testing.T) {
		h, repo := newHandler(t, 1)
		body, contentType := multipartBody(t, "file", map[string]string{
			"people.csv": header +
				"30001,1980-05-05,Ada,Lovelace,female,2001-01-01\n" +
				"30002,1981-05-05,,Nobody,M,2001-01-01\n",
		})
		req := httptest.NewRequest(http.MethodPost, "/employees/import", body)
		req.Header.Set(echo.HeaderContentType, contentType)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ImportHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusOK, rec.Code)
			var report domain.ImportReport
			decode(t, rec, &report)
			assert.Equal(t, "people.csv", report.Source)
			assert.Equal(t, 1, report.Imported)
			require.Len(t, report.Rejected, 1)
			assert.Equal(t, domain.RowError{Row: 3, Field: "First Name", Message: `failed "required" validation`}, report.Rejected[0])

			ada, err := repo.GetByID(req.Context(), 30001)
			require.NoError(t, err)
			assert.Equal(t, "F", ada.Gender)
		}
	})

	t.Run("Import Conflict", func(t *testing.T) {
		h, _ := newHandler(t, 1, seedEmployees()...)
		body, contentType := multipartBody(t, "file", map[string]string{
			"people.csv": header + "10001,1953-09-02,Georgi,Facello,M,1986-06-26\n",
		})
		req := httptest.NewRequest(http.MethodPost, "/employees/import", body)
		req.Header.Set(echo.HeaderContentType, contentType)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ImportHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusConflict, rec.Code)
			resp := decode(t, rec, nil)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, "already exists")
		}
	})

	t.Run("Import Unreadable", func(t *testing.T) {
		h, _ := newHandler(t, 1)
		body, contentType := multipartBody(t, "file", map[string]string{"people.xlsx": "not a workbook"})
		req := httptest.NewRequest(http.MethodPost, "/employees/import", body)
		req.Header.Set(echo.HeaderContentType, contentType)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ImportHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		}
	})

	t.Run("Import Too Large", func(t *testing.T) {
		h, _ := newHandler(t, 0)
		body, contentType := multipartBody(t, "file", map[string]string{"people.csv": header})
		req := httptest.NewRequest(http.MethodPost, "/employees/import", body)
		req.Header.Set(echo.HeaderContentType, contentType)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ImportHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		}
	})

	t.Run("Import Missing File", func(t *testing.T) {
		h, _ := newHandler(t, 1)
		req := httptest.NewRequest(http.MethodPost, "/employees/import", nil)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ImportHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("Import Batch", func(t *testing.T) {
		h, repo := newHandler(t, 1)
		body, contentType := multipartBody(t, "files", map[string]string{
			"a.csv": header + "40001,1970-01-01,Ann,Arden,F,1999-01-01\n",
			"b.csv": header + "40002,1971-02-02,Ben,Bloom,M,2000-02-02\n",
		})
		req := httptest.NewRequest(http.MethodPost, "/employees/import/batch", body)
		req.Header.Set(echo.HeaderContentType, contentType)
		rec := httptest.NewRecorder()

		if assert.NoError(t, h.ImportBatchHandler(e.NewContext(req, rec))) {
			assert.Equal(t, http.StatusOK, rec.Code)
			var reports []domain.ImportReport
			decode(t, rec, &reports)
			require.Len(t, reports, 2)
			assert.Equal(t, reports[0].BatchID, reports[1].BatchID)

			all, err := repo.List(req.Context(), domain.EmployeeFilter{})
			require.NoError(t, err)
			assert.Len(t, all, 2)
		}
	})
}

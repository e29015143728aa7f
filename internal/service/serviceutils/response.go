package serviceutils

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// GenericResponse is the JSON envelope of every non-file response.
type GenericResponse struct {
	Success bool
	Message string
	Data    interface{}
	Error   string
}

func ResponseSuccess(c echo.Context, code int, msg string, data interface{}) error {
	return c.JSON(code, GenericResponse{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

func ResponseError(c echo.Context, code int, msg string, err error) error {
	return ResponseFailure(c, code, msg, nil, err)
}

// ResponseFailure is ResponseError with a payload, e.g. a partial import report.
func ResponseFailure(c echo.Context, code int, msg string, data interface{}, err error) error {
	resp := GenericResponse{
		Success: false,
		Message: msg,
		Data:    data,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(code, resp)
}

// ResponseFile sends data as a download named filename.
func ResponseFile(c echo.Context, code int, filename, contentType string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(code, contentType, data)
}

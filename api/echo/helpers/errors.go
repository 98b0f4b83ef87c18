package helpers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/smancaringin/presensi/core"
	"github.com/smancaringin/presensi/core/attendance"
	"github.com/smancaringin/presensi/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	ErrHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	ErrHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTokenSigningFailed = errors.New("failed to sign token")
)

// httpStatus maps domain errors to response codes. A failed spreadsheet
// commit is the sink's failure, not the client's: 503 says "retry later",
// 502 says "the sink refused us".
func httpStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		return http.StatusConflict, true
	case errors.Is(err, attendance.ErrOffline):
		return http.StatusServiceUnavailable, true
	case errors.Is(err, attendance.ErrSyncFailed):
		return http.StatusBadGateway, true
	case errors.Is(err, attendance.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, user.ErrAuthenticationFailed):
		return http.StatusBadRequest, true
	}
	return 0, false
}

func AppHTTPErrorHandler(err error, c echo.Context) {
	var code int
	var message interface{}

	switch err := err.(type) {
	case *echo.HTTPError:
		if err == middleware.ErrJWTMissing {
			code = http.StatusUnauthorized
			message = err.Message
			break
		}
		if err.Internal != nil {
			if herr, ok := err.Internal.(*echo.HTTPError); ok {
				err = herr
			}
		}
		code = err.Code
		message = err.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string)
		for _, vErr := range err {
			fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
		}
		code = http.StatusBadRequest
		message = fldErrs
	case *core.ValidationError:
		if err.Fields != nil {
			fldErrs := make(map[string]string)
			for _, fErr := range err.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			message = fldErrs
		} else {
			message = err.Error()
		}
		code = http.StatusBadRequest
	default:
		if status, ok := httpStatus(err); ok {
			code = status
			message = err.Error()
			break
		}
		// any other error is a server error
		code = http.StatusInternalServerError
		message = http.StatusText(http.StatusInternalServerError)
	}

	if c.Echo().Debug {
		message = err.Error()
	}
	if m, ok := message.(string); ok {
		message = echo.Map{"error": m}
	}

	// Send response
	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead { // Issue #608
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, message)
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}

package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/faculty"
)

var (
	errMissingToken         = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token")
	errInvalidToken         = echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	errExpiredToken         = echo.NewHTTPError(http.StatusUnauthorized, "token has expired")
	errInvalidCredentials   = echo.NewHTTPError(http.StatusUnauthorized, faculty.ErrInvalidCredentials.Error())
	errForbidden            = echo.NewHTTPError(http.StatusForbidden, "you are not assigned to teach this subject in this class")
	errTooManyLoginAttempts = echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")

	// domain errors with a fixed HTTP representation
	domainErrors = []struct {
		err  error
		herr *echo.HTTPError
	}{
		{faculty.ErrInvalidCredentials, errInvalidCredentials},
		{faculty.ErrForbidden, errForbidden},
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		// errors.Is: a map lookup would panic on unhashable causes such as validator.ValidationErrors
		cause := errors.Cause(err)
		for _, de := range domainErrors {
			if errors.Is(err, de.err) {
				cause = de.herr
				break
			}
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			if ctx.Echo().Debug {
				message = err.Error()
			}

			f, _ := ctx.Get(contextFacultyKey).(faculty.Faculty)
			logger.Error(msg, errors.Wrap(err, msg), f)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

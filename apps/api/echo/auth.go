package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core/auth"
	"github.com/trezcool/marksheet/core/faculty"
)

const contextFacultyKey = "faculty"

var errFacultyNotFoundInCtx = errors.New("faculty not found in echo.Context")

// authMiddleware resolves the bearer token of every request to the Faculty it was issued for.
// Assignments are reloaded on each request, so changes apply immediately.
func authMiddleware(svc FacultyService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := bearerToken(ctx.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return errMissingToken
			}

			f, err := svc.Resolve(ctx.Request().Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrExpiredToken):
				return errExpiredToken
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, faculty.ErrNotFound):
				return errInvalidToken
			default:
				return errors.Wrap(err, "resolving faculty")
			}

			ctx.Set(contextFacultyKey, f)
			return next(ctx)
		}
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func getContextFaculty(ctx echo.Context) (faculty.Faculty, error) {
	if f, ok := ctx.Get(contextFacultyKey).(faculty.Faculty); ok {
		return f, nil
	}
	return faculty.Faculty{}, errFacultyNotFoundInCtx
}

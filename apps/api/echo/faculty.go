package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core/auth"
	"github.com/trezcool/marksheet/core/faculty"
)

type (
	FacultyService interface {
		Login(ctx context.Context, email, pwd string) (auth.Token, faculty.Faculty, error)
		Resolve(ctx context.Context, token string) (faculty.Faculty, error)
	}

	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	LoginResponse struct {
		Token     string          `json:"token"`
		ExpiresAt time.Time       `json:"expires_at"`
		Faculty   faculty.Faculty `json:"faculty"`
	}
)

type facultyApi struct {
	svc FacultyService
}

func registerFacultyAPI(g *echo.Group, authn echo.MiddlewareFunc, svc FacultyService, limiter middleware.RateLimiterStore) {
	api := facultyApi{svc: svc}

	var loginMw []echo.MiddlewareFunc
	if limiter != nil {
		loginMw = append(loginMw, loginRateLimiter(limiter))
	}
	g.POST("/auth/login", api.login, loginMw...)

	g.GET("/faculty/me", api.me, authn)
}

// Handlers

func (api *facultyApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}

	token, f, err := api.svc.Login(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token.Value, ExpiresAt: token.ExpiresAt, Faculty: f})
}

func (api *facultyApi) me(ctx echo.Context) error {
	f, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, f)
}

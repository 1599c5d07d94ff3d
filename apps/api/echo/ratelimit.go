package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// NewLoginLimiterMemoryStore allows `perMinute` login attempts per client, refilled continuously.
func NewLoginLimiterMemoryStore(perMinute int) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
}

func loginRateLimiter(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return errors.Wrap(err, "extracting rate limit identifier")
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			if err != nil {
				return errors.Wrap(err, "checking login rate limit")
			}
			return errTooManyLoginAttempts
		},
	})
}

package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // /debug/pprof
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/marksheet/apps/api/echo"
	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/auth"
	"github.com/trezcool/marksheet/core/faculty"
	"github.com/trezcool/marksheet/core/marks"
	logsvc "github.com/trezcool/marksheet/services/logger"
	"github.com/trezcool/marksheet/storage/database"
	sqlxrepos "github.com/trezcool/marksheet/storage/database/sqlx"
	redisstore "github.com/trezcool/marksheet/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	tokens := auth.NewTokenService(conf.SecretKey, conf.AppName, conf.Server.TokenExpirationDelta)
	facultySvc := faculty.NewService(
		sqlxrepos.NewFacultyRepository(db),
		tokens,
		faculty.NewBcryptHasher(conf.PasswordHashCost),
	)
	marksSvc := marks.NewService(db, sqlxrepos.NewMarksRepository(db), validate)

	loginLimiter, closeLimiter := newLoginLimiter(conf, logger)
	defer closeLimiter()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("dbEngine").Set(conf.Database.Engine)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			FacultySvc:   facultySvc,
			MarksSvc:     marksSvc,
			Validate:     validate,
			Translator:   translator,
			LoginLimiter: loginLimiter,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config, logger core.Logger) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(ctx, db, conf, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newLoginLimiter shares login attempt counters through redis when configured, else keeps them in memory.
func newLoginLimiter(conf *core.Config, logger core.Logger) (middleware.RateLimiterStore, func()) {
	limit := conf.Server.LoginRateLimit
	if limit <= 0 {
		return nil, func() {}
	}
	if conf.Server.RedisAddr == "" {
		return echoapi.NewLoginLimiterMemoryStore(limit), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := redisstore.NewClient(ctx, conf.Server.RedisAddr)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	store := redisstore.NewRateLimiterStore(client, logger, "marksheet:login", limit, time.Minute)
	return store, func() { _ = client.Close() }
}

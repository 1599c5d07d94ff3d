package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/auth"
	"github.com/trezcool/marksheet/core/faculty"
	"github.com/trezcool/marksheet/core/marks"
	logsvc "github.com/trezcool/marksheet/services/logger"
	"github.com/trezcool/marksheet/storage/database"
	sqlxrepos "github.com/trezcool/marksheet/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// set up DB
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal(err.Error(), err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
	if err = database.SetupMigrations(conf, logger); err != nil {
		logger.Fatal(err.Error(), err)
	}

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	// start CLI
	cli := commandLine{
		db:       db,
		validate: validate,
		facultySvc: faculty.NewService(
			sqlxrepos.NewFacultyRepository(db),
			auth.NewTokenService(conf.SecretKey, conf.AppName, conf.Server.TokenExpirationDelta),
			faculty.NewBcryptHasher(conf.PasswordHashCost),
		),
		marksSvc: marks.NewService(db, sqlxrepos.NewMarksRepository(db), validate),
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			log.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/faculty"
	"github.com/trezcool/marksheet/core/marks"
	"github.com/trezcool/marksheet/storage/database"
	sqlxrepos "github.com/trezcool/marksheet/storage/database/sqlx"
)

// Password is the password of every faculty created by CreateFaculty.
const Password = "s3cr3t!"

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// NewConfig returns a test config backed by a SQLite file in a temp dir.
func NewConfig(t *testing.T) *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Marksheet",
		SecretKey:        "test-secret",
		PasswordHashCost: bcrypt.MinCost,
		Database: core.DatabaseConfig{
			Engine: "sqlite3",
			Path:   filepath.Join(t.TempDir(), "marksheet.db"),
		},
	}
}

// PrepareDB opens a fresh, migrated database, closed at the end of the test.
func PrepareDB(t *testing.T, conf ...*core.Config) *sqlx.DB {
	t.Helper()
	c := NewConfig(t)
	if len(conf) > 0 {
		c = conf[0]
	}

	ctx := context.Background()
	db, err := database.Open(ctx, c)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(ctx, db, c, NopLogger{}); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return validate, translator
}

func CreateFaculty(t *testing.T, db core.DBExecutor, name, email, employeeID string, assignments ...faculty.Assignment) faculty.Faculty {
	t.Helper()
	ctx := context.Background()
	repo := sqlxrepos.NewFacultyRepository(db)

	hash, err := faculty.NewBcryptHasher(bcrypt.MinCost).Hash(Password)
	if err != nil {
		t.Fatalf("CreateFaculty() failed: %v", err)
	}
	f, err := repo.UpdateOrCreateFaculty(ctx, faculty.Faculty{
		Name:         name,
		Email:        email,
		EmployeeID:   employeeID,
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("CreateFaculty() failed: %v", err)
	}
	for _, a := range assignments {
		if err = repo.AddAssignment(ctx, f.ID, a); err != nil {
			t.Fatalf("CreateFaculty() failed: %v", err)
		}
	}
	if f, err = repo.GetFacultyByEmail(ctx, email); err != nil {
		t.Fatalf("CreateFaculty() failed: %v", err)
	}
	return f
}

func CreateStudent(t *testing.T, db core.DBExecutor, studentID, name, className string, subjects ...string) marks.Student {
	t.Helper()
	s, err := sqlxrepos.NewMarksRepository(db).SaveStudent(context.Background(), marks.Student{
		StudentID:        studentID,
		Name:             name,
		ClassName:        className,
		EnrolledSubjects: subjects,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/faculty"
	"github.com/trezcool/marksheet/storage/database"
)

type facultyRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	EmployeeID   string `db:"employee_id"`
	PasswordHash string `db:"password_hash"`
}

type facultyRepository struct {
	repository
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(exec core.DBExecutor) *facultyRepository {
	return &facultyRepository{repository{exec: exec}}
}

func (repo facultyRepository) boil(f faculty.Faculty) facultyRow {
	return facultyRow{
		ID:           f.ID,
		Name:         f.Name,
		Email:        f.Email,
		EmployeeID:   f.EmployeeID,
		PasswordHash: string(f.PasswordHash),
	}
}

func (repo facultyRepository) unboil(row facultyRow, assignments []faculty.Assignment) faculty.Faculty {
	if assignments == nil {
		assignments = []faculty.Assignment{}
	}
	return faculty.Faculty{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		EmployeeID:   row.EmployeeID,
		Assignments:  assignments,
		PasswordHash: []byte(row.PasswordHash),
	}
}

// trapNoRowsErr maps sql "no rows" err to faculty.ErrNotFound
func (repo facultyRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return faculty.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo facultyRepository) GetFacultyByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (faculty.Faculty, error) {
	exe := repo.getExec(exec)

	var row facultyRow
	q := "SELECT id, name, email, employee_id, password_hash FROM faculty WHERE email = ?"
	if err := exe.GetContext(ctx, &row, exe.Rebind(q), email); err != nil {
		return faculty.Faculty{}, repo.trapNoRowsErr(err, "finding faculty by email")
	}

	var assignments []faculty.Assignment
	q = "SELECT class_name, subject FROM faculty_assignments WHERE faculty_id = ? ORDER BY class_name, subject"
	if err := exe.SelectContext(ctx, &assignments, exe.Rebind(q), row.ID); err != nil {
		return faculty.Faculty{}, errors.Wrap(err, "querying faculty assignments")
	}
	return repo.unboil(row, assignments), nil
}

func (repo facultyRepository) createFaculty(ctx context.Context, exe core.DBExecutor, row facultyRow) error {
	q := `INSERT INTO faculty (id, name, email, employee_id, password_hash)
		VALUES (:id, :name, :email, :employee_id, :password_hash)`
	_, err := sqlx.NamedExecContext(ctx, exe, q, row)
	return err
}

func (repo facultyRepository) updateFaculty(ctx context.Context, exe core.DBExecutor, row facultyRow) error {
	q := `UPDATE faculty
		SET name = :name, email = :email, employee_id = :employee_id, password_hash = :password_hash
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exe, q, row)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return faculty.ErrNotFound
	}
	return nil
}

func (repo facultyRepository) UpdateOrCreateFaculty(ctx context.Context, f faculty.Faculty, exec ...core.DBExecutor) (faculty.Faculty, error) {
	exe := repo.getExec(exec)

	var err error
	if f.ID == "" {
		f.ID = uuid.NewString()
		err = repo.createFaculty(ctx, exe, repo.boil(f))
	} else {
		err = repo.updateFaculty(ctx, exe, repo.boil(f))
	}
	switch {
	case err == nil:
	case database.IsUniqueViolation(err):
		return faculty.Faculty{}, faculty.ErrEmployeeIDExists
	case errors.Is(err, faculty.ErrNotFound):
		return faculty.Faculty{}, err
	default:
		return faculty.Faculty{}, errors.Wrap(err, "saving faculty")
	}
	return repo.GetFacultyByEmail(ctx, f.Email, exe)
}

func (repo facultyRepository) AddAssignment(ctx context.Context, facultyID string, a faculty.Assignment, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := "INSERT INTO faculty_assignments (faculty_id, class_name, subject) VALUES (?, ?, ?)"
	if _, err := exe.ExecContext(ctx, exe.Rebind(q), facultyID, a.ClassName, a.Subject); err != nil {
		if database.IsUniqueViolation(err) {
			return nil
		}
		return errors.Wrap(err, "inserting faculty assignment")
	}
	return nil
}

func (repo facultyRepository) RemoveAssignment(ctx context.Context, facultyID string, a faculty.Assignment, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := "DELETE FROM faculty_assignments WHERE faculty_id = ? AND class_name = ? AND subject = ?"
	if _, err := exe.ExecContext(ctx, exe.Rebind(q), facultyID, a.ClassName, a.Subject); err != nil {
		return errors.Wrap(err, "deleting faculty assignment")
	}
	return nil
}

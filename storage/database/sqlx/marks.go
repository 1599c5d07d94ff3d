package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/marks"
	"github.com/trezcool/marksheet/storage/database"
)

const (
	studentColumns = "s.id, s.student_id, s.name, s.class_name"
	marksColumns   = "id, student_id, class_name, subject, faculty_email, ct1, insem, ct2, total"
)

type (
	studentRow struct {
		ID        string `db:"id"`
		StudentID string `db:"student_id"`
		Name      string `db:"name"`
		ClassName string `db:"class_name"`
	}

	enrollmentRow struct {
		StudentID string `db:"student_id"`
		Subject   string `db:"subject"`
	}

	marksRow struct {
		ID           string       `db:"id"`
		StudentID    string       `db:"student_id"`
		ClassName    string       `db:"class_name"`
		Subject      string       `db:"subject"`
		FacultyEmail string       `db:"faculty_email"`
		CT1          null.Float64 `db:"ct1"`
		Insem        null.Float64 `db:"insem"`
		CT2          null.Float64 `db:"ct2"`
		Total        float64      `db:"total"`
	}
)

type marksRepository struct {
	repository
}

var _ marks.Repository = (*marksRepository)(nil) // interface compliance check

func NewMarksRepository(exec core.DBExecutor) *marksRepository {
	return &marksRepository{repository{exec: exec}}
}

func (repo marksRepository) boil(m marks.Marks) marksRow {
	return marksRow{
		ID:           m.ID,
		StudentID:    m.StudentID,
		ClassName:    m.ClassName,
		Subject:      m.Subject,
		FacultyEmail: m.FacultyEmail,
		CT1:          null.Float64FromPtr(m.CT1),
		Insem:        null.Float64FromPtr(m.Insem),
		CT2:          null.Float64FromPtr(m.CT2),
		Total:        m.Total,
	}
}

func (repo marksRepository) unboil(row marksRow) marks.Marks {
	return marks.Marks{
		ID:           row.ID,
		StudentID:    row.StudentID,
		ClassName:    row.ClassName,
		Subject:      row.Subject,
		FacultyEmail: row.FacultyEmail,
		CT1:          row.CT1.Ptr(),
		Insem:        row.Insem.Ptr(),
		CT2:          row.CT2.Ptr(),
		Total:        row.Total,
	}
}

func (repo marksRepository) unboilStudent(row studentRow, subjects []string) marks.Student {
	if subjects == nil {
		subjects = []string{}
	}
	return marks.Student{
		ID:               row.ID,
		Name:             row.Name,
		StudentID:        row.StudentID,
		ClassName:        row.ClassName,
		EnrolledSubjects: subjects,
	}
}

// trapNoRowsErr maps sql "no rows" err to `notFound`
func (repo marksRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// subjectsByStudent batch-loads the enrollments of the given students.
func (repo marksRepository) subjectsByStudent(ctx context.Context, exe core.DBExecutor, ids []string) (map[string][]string, error) {
	subjects := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return subjects, nil
	}
	var rows []enrollmentRow
	q := "SELECT student_id, subject FROM student_subjects WHERE student_id IN (?) ORDER BY subject"
	if err := selectIn(ctx, exe, &rows, q, ids); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	for _, row := range rows {
		subjects[row.StudentID] = append(subjects[row.StudentID], row.Subject)
	}
	return subjects, nil
}

func (repo marksRepository) QueryStudents(ctx context.Context, sq marks.StudentQuery, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]marks.Student, error) {
	exe := repo.getExec(exec)

	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := marks.StudentOrderingFields[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: "s." + col, Ascending: ord.Ascending}.String())
		}
	}
	orderList = append(orderList, "s.student_id ASC")

	q := "SELECT " + studentColumns + ` FROM students s
		JOIN student_subjects ss ON ss.student_id = s.id
		WHERE s.class_name = ? AND ss.subject = ?
		ORDER BY ` + strings.Join(orderList, ", ")

	var rows []studentRow
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), sq.ClassName, sq.Subject); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	subjects, err := repo.subjectsByStudent(ctx, exe, ids)
	if err != nil {
		return nil, err
	}

	students := make([]marks.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unboilStudent(row, subjects[row.ID]))
	}
	return students, nil
}

func (repo marksRepository) getStudent(ctx context.Context, exe core.DBExecutor, where string, args ...interface{}) (marks.Student, error) {
	var row studentRow
	q := "SELECT " + studentColumns + " FROM students s WHERE " + where
	if err := exe.GetContext(ctx, &row, exe.Rebind(q), args...); err != nil {
		return marks.Student{}, repo.trapNoRowsErr(err, marks.ErrStudentNotFound, "finding student")
	}
	subjects, err := repo.subjectsByStudent(ctx, exe, []string{row.ID})
	if err != nil {
		return marks.Student{}, err
	}
	return repo.unboilStudent(row, subjects[row.ID]), nil
}

func (repo marksRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (marks.Student, error) {
	return repo.getStudent(ctx, repo.getExec(exec), "s.id = ?", id)
}

func (repo marksRepository) SaveStudent(ctx context.Context, s marks.Student, exec ...core.DBExecutor) (marks.Student, error) {
	exe := repo.getExec(exec)

	existing, err := repo.getStudent(ctx, exe, "s.class_name = ? AND s.student_id = ?", s.ClassName, s.StudentID)
	switch {
	case err == nil:
		s.ID = existing.ID
		q := "UPDATE students SET name = ? WHERE id = ?"
		if _, err = exe.ExecContext(ctx, exe.Rebind(q), s.Name, s.ID); err != nil {
			return marks.Student{}, errors.Wrap(err, "updating student")
		}
		q = "DELETE FROM student_subjects WHERE student_id = ?"
		if _, err = exe.ExecContext(ctx, exe.Rebind(q), s.ID); err != nil {
			return marks.Student{}, errors.Wrap(err, "clearing enrollments")
		}
	case errors.Is(err, marks.ErrStudentNotFound):
		s.ID = uuid.NewString()
		q := "INSERT INTO students (id, student_id, name, class_name) VALUES (?, ?, ?, ?)"
		if _, err = exe.ExecContext(ctx, exe.Rebind(q), s.ID, s.StudentID, s.Name, s.ClassName); err != nil {
			return marks.Student{}, errors.Wrap(err, "inserting student")
		}
	default:
		return marks.Student{}, err
	}

	seen := make(map[string]bool, len(s.EnrolledSubjects))
	subjects := make([]string, 0, len(s.EnrolledSubjects))
	for _, subj := range s.EnrolledSubjects {
		if seen[subj] {
			continue
		}
		seen[subj] = true
		q := "INSERT INTO student_subjects (student_id, subject) VALUES (?, ?)"
		if _, err = exe.ExecContext(ctx, exe.Rebind(q), s.ID, subj); err != nil {
			return marks.Student{}, errors.Wrap(err, "inserting enrollment")
		}
		subjects = append(subjects, subj)
	}
	s.EnrolledSubjects = subjects
	return s, nil
}

func (repo marksRepository) QueryMarks(ctx context.Context, className, subject string, exec ...core.DBExecutor) ([]marks.Marks, error) {
	exe := repo.getExec(exec)

	var rows []marksRow
	q := "SELECT " + marksColumns + " FROM marks WHERE class_name = ? AND subject = ?"
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), className, subject); err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	result := make([]marks.Marks, 0, len(rows))
	for _, row := range rows {
		result = append(result, repo.unboil(row))
	}
	return result, nil
}

func (repo marksRepository) GetMarks(ctx context.Context, key marks.Key, exec ...core.DBExecutor) (marks.Marks, error) {
	exe := repo.getExec(exec)

	var row marksRow
	q := "SELECT " + marksColumns + " FROM marks WHERE student_id = ? AND class_name = ? AND subject = ?"
	if err := exe.GetContext(ctx, &row, exe.Rebind(q), key.StudentID, key.ClassName, key.Subject); err != nil {
		return marks.Marks{}, repo.trapNoRowsErr(err, marks.ErrNotFound, "finding marks")
	}
	return repo.unboil(row), nil
}

func (repo marksRepository) CreateMarks(ctx context.Context, m marks.Marks, exec ...core.DBExecutor) (marks.Marks, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	q := `INSERT INTO marks (` + marksColumns + `)
		VALUES (:id, :student_id, :class_name, :subject, :faculty_email, :ct1, :insem, :ct2, :total)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.boil(m)); err != nil {
		if database.IsUniqueViolation(err) {
			return marks.Marks{}, marks.ErrMarksExist
		}
		return marks.Marks{}, errors.Wrap(err, "inserting marks")
	}
	return m, nil
}

func (repo marksRepository) UpdateMarks(ctx context.Context, m marks.Marks, exec ...core.DBExecutor) (marks.Marks, error) {
	q := `UPDATE marks
		SET faculty_email = :faculty_email, ct1 = :ct1, insem = :insem, ct2 = :ct2, total = :total
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.boil(m))
	if err != nil {
		return marks.Marks{}, errors.Wrap(err, "updating marks")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return marks.Marks{}, marks.ErrNotFound
	}
	return m, nil
}

package marks

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/faculty"
)

var (
	// errors
	ErrNotFound        = errors.New("marks not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrMarksExist      = errors.New("marks already exist for this student, class and subject")

	errStudentNotEnrolled = "student is not enrolled in this class and subject"
	errUnknownOrdering    = "unknown ordering field"

	marksSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marksheet",
		Name:      "marks_saved_total",
		Help:      "Marks records saved, by outcome.",
	}, []string{"outcome"})
)

// a concurrent insert of the same Key turns the second attempt into an update,
// a concurrent delete turns it into a create
const maxSaveAttempts = 2

type (
	Repository interface {
		// QueryStudents returns the students of the class enrolled in the subject, with their enrollments loaded.
		QueryStudents(ctx context.Context, q StudentQuery, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		// SaveStudent updates the student with the same (ClassName, StudentID) or creates it, replacing its enrollments.
		SaveStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)

		QueryMarks(ctx context.Context, className, subject string, exec ...core.DBExecutor) ([]Marks, error)
		GetMarks(ctx context.Context, key Key, exec ...core.DBExecutor) (Marks, error)
		// CreateMarks fails with ErrMarksExist if a record with the same Key exists.
		CreateMarks(ctx context.Context, m Marks, exec ...core.DBExecutor) (Marks, error)
		UpdateMarks(ctx context.Context, m Marks, exec ...core.DBExecutor) (Marks, error)
	}

	Service struct {
		db       core.DB
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(db core.DB, repo Repository, validate *validator.Validate) *Service {
	return &Service{db: db, repo: repo, validate: validate}
}

// ListStudents returns the students of q.ClassName enrolled in q.Subject, each paired with its Marks (nil if none).
func (svc *Service) ListStudents(ctx context.Context, f faculty.Faculty, q StudentQuery, ordering ...core.DBOrdering) ([]StudentWithMarks, error) {
	if err := faculty.Authorize(f, q.ClassName, q.Subject); err != nil {
		return nil, err
	}
	if err := checkOrdering(ordering); err != nil {
		return nil, err
	}

	students, err := svc.repo.QueryStudents(ctx, q, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	marks, err := svc.repo.QueryMarks(ctx, q.ClassName, q.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}

	byStudent := make(map[string]Marks, len(marks))
	for _, m := range marks {
		byStudent[m.StudentID] = m
	}
	result := make([]StudentWithMarks, 0, len(students))
	for _, s := range students {
		swm := StudentWithMarks{Student: s}
		if m, ok := byStudent[s.ID]; ok {
			swm.Marks = &m
		}
		result = append(result, swm)
	}
	return result, nil
}

// Save creates or overwrites the Marks of mu.Key(), attributed to the acting Faculty.
// Nothing is persisted unless the Faculty is assigned to the class subject and every component is in range.
func (svc *Service) Save(ctx context.Context, f faculty.Faculty, mu MarksUpdate) (Marks, error) {
	if err := faculty.Authorize(f, mu.ClassName, mu.Subject); err != nil {
		return Marks{}, err
	}
	if err := mu.Validate(svc.validate); err != nil {
		return Marks{}, err
	}

	student, err := svc.repo.GetStudent(ctx, mu.StudentID)
	if err != nil && !errors.Is(err, ErrStudentNotFound) {
		return Marks{}, errors.Wrap(err, "finding student")
	}
	if err != nil || student.ClassName != mu.ClassName || !student.IsEnrolledIn(mu.Subject) {
		return Marks{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: errStudentNotEnrolled})
	}

	for attempt := 1; ; attempt++ {
		m, err := svc.save(ctx, f, mu)
		if (errors.Is(err, ErrMarksExist) || errors.Is(err, ErrNotFound)) && attempt < maxSaveAttempts {
			marksSaved.WithLabelValues("retried").Inc()
			continue
		}
		return m, err
	}
}

func (svc *Service) save(ctx context.Context, f faculty.Faculty, mu MarksUpdate) (m Marks, err error) {
	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return Marks{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	outcome := "updated"
	m, err = svc.repo.GetMarks(ctx, mu.Key(), tx)
	switch {
	case err == nil:
		mu.apply(&m, f.Email)
		if m, err = svc.repo.UpdateMarks(ctx, m, tx); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Marks{}, err
			}
			return Marks{}, errors.Wrap(err, "updating marks")
		}
	case errors.Is(err, ErrNotFound):
		outcome = "created"
		m = Marks{
			ID:        uuid.NewString(),
			StudentID: mu.StudentID,
			ClassName: mu.ClassName,
			Subject:   mu.Subject,
		}
		mu.apply(&m, f.Email)
		if m, err = svc.repo.CreateMarks(ctx, m, tx); err != nil {
			if errors.Is(err, ErrMarksExist) {
				return Marks{}, err
			}
			return Marks{}, errors.Wrap(err, "creating marks")
		}
	default:
		return Marks{}, errors.Wrap(err, "finding marks")
	}

	if err = tx.Commit(); err != nil {
		return Marks{}, errors.Wrap(err, "committing marks")
	}
	marksSaved.WithLabelValues(outcome).Inc()
	return m, nil
}

// ImportStudents saves the students in a single transaction.
func (svc *Service) ImportStudents(ctx context.Context, students []Student) (n int, err error) {
	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, s := range students {
		if _, err = svc.repo.SaveStudent(ctx, s, tx); err != nil {
			return 0, errors.Wrapf(err, "saving student %s of %s", s.StudentID, s.ClassName)
		}
		n++
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing students")
	}
	return n, nil
}

func checkOrdering(ordering []core.DBOrdering) error {
	for _, ord := range ordering {
		if _, ok := StudentOrderingFields[ord.Field]; !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: errUnknownOrdering + ": " + ord.Field})
		}
	}
	return nil
}

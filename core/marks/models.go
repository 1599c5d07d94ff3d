package marks

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/marksheet/core"
)

// component score limits
const (
	MaxCT1   = 30
	MaxInsem = 30
	MaxCT2   = 70
)

type Student struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	StudentID        string   `json:"student_id"`
	ClassName        string   `json:"class_name"`
	EnrolledSubjects []string `json:"enrolled_subjects"`
}

func (s Student) IsEnrolledIn(subject string) bool {
	for _, subj := range s.EnrolledSubjects {
		if subj == subject {
			return true
		}
	}
	return false
}

// Key identifies at most one Marks record. StudentID is the student's row ID.
type Key struct {
	StudentID string
	ClassName string
	Subject   string
}

// Marks holds the component scores of a student for one class subject.
// A nil component was not submitted; Total always counts it as 0.
type Marks struct {
	ID           string   `json:"id"`
	StudentID    string   `json:"student_id"`
	ClassName    string   `json:"class_name"`
	Subject      string   `json:"subject"`
	FacultyEmail string   `json:"faculty_email"`
	CT1          *float64 `json:"ct1"`
	Insem        *float64 `json:"insem"`
	CT2          *float64 `json:"ct2"`
	Total        float64  `json:"total"`
}

func (m Marks) Key() Key {
	return Key{StudentID: m.StudentID, ClassName: m.ClassName, Subject: m.Subject}
}

type StudentWithMarks struct {
	Student Student `json:"student"`
	Marks   *Marks  `json:"marks"`
}

// MarksUpdate is the payload submitted by a faculty. Components left out are stored as null.
type MarksUpdate struct {
	StudentID string   `json:"student_id" validate:"required,notblank"`
	ClassName string   `json:"class_name" validate:"required,notblank"`
	Subject   string   `json:"subject" validate:"required,notblank"`
	CT1       *float64 `json:"ct1" validate:"omitempty,score=30"`
	Insem     *float64 `json:"insem" validate:"omitempty,score=30"`
	CT2       *float64 `json:"ct2" validate:"omitempty,score=70"`
}

func (mu MarksUpdate) Key() Key {
	return Key{StudentID: mu.StudentID, ClassName: mu.ClassName, Subject: mu.Subject}
}

// Total is the sum of the submitted components.
func (mu MarksUpdate) Total() float64 {
	var total float64
	for _, c := range []*float64{mu.CT1, mu.Insem, mu.CT2} {
		if c != nil {
			total += *c
		}
	}
	return total
}

func (mu *MarksUpdate) Validate(validate *validator.Validate) error {
	mu.StudentID = core.CleanString(mu.StudentID)
	return validate.Struct(mu)
}

// apply overwrites every component of m with the update; it does not merge.
func (mu MarksUpdate) apply(m *Marks, facultyEmail string) {
	m.CT1 = copyScore(mu.CT1)
	m.Insem = copyScore(mu.Insem)
	m.CT2 = copyScore(mu.CT2)
	m.Total = mu.Total()
	m.FacultyEmail = facultyEmail
}

func copyScore(s *float64) *float64 {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StudentQuery selects the students of a class enrolled in a subject.
type StudentQuery struct {
	ClassName string `query:"class_name" validate:"required,notblank"`
	Subject   string `query:"subject" validate:"required,notblank"`
}

func (sq *StudentQuery) Validate(validate *validator.Validate) error {
	return validate.Struct(sq)
}

// StudentOrderingFields are the fields students may be ordered by.
var StudentOrderingFields = map[string]string{
	"student_id": "student_id",
	"name":       "name",
}

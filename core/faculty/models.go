package faculty

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/marksheet/core"
)

// Assignment is a (class, subject) pair a Faculty is entitled to teach and record marks for.
type Assignment struct {
	ClassName string `json:"class_name" db:"class_name" validate:"required,notblank"`
	Subject   string `json:"subject" db:"subject" validate:"required,notblank"`
}

type Faculty struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	EmployeeID   string       `json:"employee_id"`
	Assignments  []Assignment `json:"assignments"`
	PasswordHash []byte       `json:"-"`
}

// NewFaculty contains information needed to create or update a Faculty.
type NewFaculty struct {
	Name       string `json:"name" validate:"required,notblank"`
	Email      string `json:"email" validate:"required,email"`
	EmployeeID string `json:"employee_id" validate:"required,notblank"`
	Password   string `json:"password" validate:"required"`
}

func (nf *NewFaculty) Validate(validate *validator.Validate) error {
	nf.Name = core.CleanString(nf.Name)
	nf.Email = core.CleanString(nf.Email)
	nf.EmployeeID = core.CleanString(nf.EmployeeID)
	return validate.Struct(nf)
}

func (a *Assignment) Validate(validate *validator.Validate) error {
	a.ClassName = core.CleanString(a.ClassName)
	a.Subject = core.CleanString(a.Subject)
	return validate.Struct(a)
}

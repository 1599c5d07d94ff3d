package faculty

import "github.com/pkg/errors"

var ErrForbidden = errors.New("you are not assigned to teach this subject in this class")

// IsAssignedTo reports whether the Faculty holds an Assignment for exactly (className, subject).
// Matching is case-sensitive, with no wildcards.
func (f Faculty) IsAssignedTo(className, subject string) bool {
	for _, a := range f.Assignments {
		if a.ClassName == className && a.Subject == subject {
			return true
		}
	}
	return false
}

// Authorize returns ErrForbidden unless the Faculty is assigned to (className, subject).
// It must be called with the Faculty resolved for the current request.
func Authorize(f Faculty, className, subject string) error {
	if !f.IsAssignedTo(className, subject) {
		return ErrForbidden
	}
	return nil
}

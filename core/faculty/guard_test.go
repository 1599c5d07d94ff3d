package faculty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	f := Faculty{
		Email: "t@x.edu",
		Assignments: []Assignment{
			{ClassName: "10A", Subject: "Math"},
			{ClassName: "10B", Subject: "Physics"},
		},
	}

	tests := []struct {
		name      string
		fac       Faculty
		className string
		subject   string
		wantErr   error
	}{
		{name: "assigned", fac: f, className: "10A", subject: "Math"},
		{name: "second assignment", fac: f, className: "10B", subject: "Physics"},
		{name: "other subject", fac: f, className: "10A", subject: "Science", wantErr: ErrForbidden},
		{name: "crossed pair", fac: f, className: "10A", subject: "Physics", wantErr: ErrForbidden},
		{name: "case sensitive class", fac: f, className: "10a", subject: "Math", wantErr: ErrForbidden},
		{name: "case sensitive subject", fac: f, className: "10A", subject: "math", wantErr: ErrForbidden},
		{name: "no prefix match", fac: f, className: "10", subject: "Math", wantErr: ErrForbidden},
		{name: "surrounding spaces", fac: f, className: " 10A", subject: "Math", wantErr: ErrForbidden},
		{name: "empty target", fac: f, wantErr: ErrForbidden},
		{name: "no assignments", fac: Faculty{Email: "n@x.edu"}, className: "10A", subject: "Math", wantErr: ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.fac, tt.className, tt.subject)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantErr == nil, tt.fac.IsAssignedTo(tt.className, tt.subject))
		})
	}
}

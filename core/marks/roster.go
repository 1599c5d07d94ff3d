package marks

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/marksheet/core"
)

// roster columns, in order
var rosterHeader = []string{"student_id", "name", "class_name", "subjects"}

// ParseRoster reads students from the first sheet of an xlsx workbook.
// The first row must be the header: student_id, name, class_name, subjects (comma separated).
// Blank rows are skipped.
func ParseRoster(r io.Reader) ([]Student, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening roster")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("roster has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheet)
	}
	if len(rows) == 0 {
		return nil, errors.New("roster is empty")
	}
	if err = checkRosterHeader(rows[0]); err != nil {
		return nil, err
	}

	students := make([]Student, 0, len(rows)-1)
	for i, row := range rows[1:] {
		cells := make([]string, len(rosterHeader))
		for j := range cells {
			if j < len(row) {
				cells[j] = core.CleanString(row[j])
			}
		}
		if strings.Join(cells, "") == "" {
			continue
		}
		s := Student{
			StudentID:        cells[0],
			Name:             cells[1],
			ClassName:        cells[2],
			EnrolledSubjects: core.SplitList(cells[3]),
		}
		if s.StudentID == "" || s.Name == "" || s.ClassName == "" {
			// +2: 1-based, after the header
			return nil, errors.Errorf("row %d: student_id, name and class_name are required", i+2)
		}
		students = append(students, s)
	}
	return students, nil
}

func checkRosterHeader(row []string) error {
	if len(row) < len(rosterHeader) {
		return errors.Errorf("roster header must be: %s", strings.Join(rosterHeader, ", "))
	}
	for i, col := range rosterHeader {
		if core.CleanString(row[i], true) != col {
			return errors.Errorf("roster column %d must be %q, got %q", i+1, col, row[i])
		}
	}
	return nil
}

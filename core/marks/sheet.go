package marks

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/marksheet/core/faculty"
)

const maxSheetNameLen = 31

var sheetNameReplacer = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

// ExportSheet writes the marks sheet of a class subject as an xlsx workbook.
// The same guard as ListStudents applies.
func (svc *Service) ExportSheet(ctx context.Context, f faculty.Faculty, q StudentQuery, w io.Writer) error {
	rows, err := svc.ListStudents(ctx, f, q)
	if err != nil {
		return err
	}

	book := excelize.NewFile()
	defer book.Close()

	name := sheetName(q)
	if err = book.SetSheetName(book.GetSheetName(0), name); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	header := []interface{}{
		"Student ID", "Name",
		fmt.Sprintf("CT1 (/%d)", MaxCT1),
		fmt.Sprintf("Insem (/%d)", MaxInsem),
		fmt.Sprintf("CT2 (/%d)", MaxCT2),
		"Total", "Entered By",
	}
	if err = book.SetSheetRow(name, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, swm := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err = book.SetSheetRow(name, cell, sheetRow(swm)); err != nil {
			return errors.Wrapf(err, "writing row of %s", swm.Student.StudentID)
		}
	}

	if _, err = book.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

func sheetRow(swm StudentWithMarks) *[]interface{} {
	row := []interface{}{swm.Student.StudentID, swm.Student.Name, nil, nil, nil, nil, nil}
	if m := swm.Marks; m != nil {
		for i, c := range []*float64{m.CT1, m.Insem, m.CT2} {
			if c != nil {
				row[2+i] = *c
			}
		}
		row[5] = m.Total
		row[6] = m.FacultyEmail
	}
	return &row
}

func sheetName(q StudentQuery) string {
	name := sheetNameReplacer.Replace(q.ClassName + " " + q.Subject)
	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	return name
}

package echoapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/faculty"
	"github.com/trezcool/marksheet/core/marks"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type (
	MarksService interface {
		ListStudents(ctx context.Context, f faculty.Faculty, q marks.StudentQuery, ordering ...core.DBOrdering) ([]marks.StudentWithMarks, error)
		Save(ctx context.Context, f faculty.Faculty, mu marks.MarksUpdate) (marks.Marks, error)
		ExportSheet(ctx context.Context, f faculty.Faculty, q marks.StudentQuery, w io.Writer) error
	}

	SaveMarksResponse struct {
		Message string      `json:"message"`
		Marks   marks.Marks `json:"marks"`
	}
)

type marksApi struct {
	svc      MarksService
	validate *validator.Validate
}

func registerMarksAPI(g *echo.Group, authn echo.MiddlewareFunc, svc MarksService, validate *validator.Validate) {
	api := marksApi{svc: svc, validate: validate}

	ag := g.Group("", authn)
	ag.GET("/students", api.queryStudents)
	ag.POST("/marks", api.save)
	ag.GET("/marks/export", api.export)
}

func (api *marksApi) bindStudentQuery(ctx echo.Context) (marks.StudentQuery, error) {
	var q marks.StudentQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &q); err != nil {
		return marks.StudentQuery{}, errors.Wrap(err, "binding to StudentQuery")
	}
	if err := q.Validate(api.validate); err != nil {
		return marks.StudentQuery{}, err
	}
	return q, nil
}

// Handlers

func (api *marksApi) queryStudents(ctx echo.Context) error {
	f, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	q, err := api.bindStudentQuery(ctx)
	if err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx)

	students, err := api.svc.ListStudents(ctx.Request().Context(), f, q, ord.Orderings...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *marksApi) save(ctx echo.Context) error {
	f, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	var data marks.MarksUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarksUpdate")
	}

	m, err := api.svc.Save(ctx.Request().Context(), f, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SaveMarksResponse{Message: "Marks saved successfully", Marks: m})
}

func (api *marksApi) export(ctx echo.Context) error {
	f, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	q, err := api.bindStudentQuery(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = api.svc.ExportSheet(ctx.Request().Context(), f, q, &buf); err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "marks-"+q.ClassName+"-"+q.Subject+".xlsx"))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

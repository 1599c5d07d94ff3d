package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/trezcool/marksheet/apps/api/echo"
	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/faculty"
	"github.com/trezcool/marksheet/core/marks"
	"github.com/trezcool/marksheet/testutil"
)

func score(v float64) *float64 { return &v }

type marksFixture struct {
	testApp
	teacher faculty.Faculty
	token   string
	alice   marks.Student
	bob     marks.Student
}

func setupMarks(t *testing.T, conf ...*core.Config) marksFixture {
	var app testApp
	if len(conf) > 0 {
		app = setupWithConfig(t, conf[0])
	} else {
		app = setup(t)
	}
	teacher := testutil.CreateFaculty(t, app.db, "Teacher", "t@x.edu", "EMP-001",
		faculty.Assignment{ClassName: "10A", Subject: "Math"})
	return marksFixture{
		testApp: app,
		teacher: teacher,
		token:   app.getToken(t, teacher),
		alice:   testutil.CreateStudent(t, app.db, "S-001", "Alice", "10A", "Math"),
		bob:     testutil.CreateStudent(t, app.db, "S-002", "Bob", "10A", "Math", "Science"),
	}
}

func Test_marksApi_save(t *testing.T) {
	fx := setupMarks(t)

	body := func(mu marks.MarksUpdate) []byte { return marshallObj(t, mu) }
	mathUpdate := func(ct1, insem, ct2 *float64) marks.MarksUpdate {
		return marks.MarksUpdate{StudentID: fx.alice.ID, ClassName: "10A", Subject: "Math", CT1: ct1, Insem: insem, CT2: ct2}
	}

	fx.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/marks", body: body(mathUpdate(score(1), nil, nil)), wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "not assigned", method: http.MethodPost, path: "/api/marks", token: fx.token,
			body:     body(marks.MarksUpdate{StudentID: fx.bob.ID, ClassName: "10A", Subject: "Science", CT1: score(1)}),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "ct1 out of range", method: http.MethodPost, path: "/api/marks", token: fx.token,
			body:     body(mathUpdate(score(31), nil, nil)),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"ct1": "ct1 must be between 0 and 30"}),
		},
		{
			name: "several fields", method: http.MethodPost, path: "/api/marks", token: fx.token,
			body:     body(mathUpdate(score(-1), score(31), score(71))),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{
				"ct1":   "ct1 must be between 0 and 30",
				"insem": "insem must be between 0 and 30",
				"ct2":   "ct2 must be between 0 and 70",
			}),
		},
		{
			name: "missing student", method: http.MethodPost, path: "/api/marks", token: fx.token,
			body:     []byte(`{"class_name": "10A", "subject": "Math", "ct1": 3}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"student_id": "this field is required"}),
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/api/marks", token: fx.token,
			body:     []byte(`{"student_id": "nope", "class_name": "10A", "subject": "Math", "ct1": 3}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"student_id": "student is not enrolled in this class and subject"}),
		},
		{
			name: "not a number", method: http.MethodPost, path: "/api/marks", token: fx.token,
			body:     []byte(`{"student_id": "x", "class_name": "10A", "subject": "Math", "ct1": "ten"}`),
			wantCode: http.StatusBadRequest,
		},
	})

	var count int
	require.NoError(t, fx.db.Get(&count, "SELECT COUNT(*) FROM marks"))
	assert.Zero(t, count)

	t.Run("create then overwrite", func(t *testing.T) {
		save := func(mu marks.MarksUpdate) SaveMarksResponse {
			req, rec := newAuthRequest(http.MethodPost, "/api/marks", fx.token, body(mu))
			fx.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var resp SaveMarksResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			return resp
		}

		first := save(mathUpdate(score(25), score(28), score(32)))
		assert.Equal(t, "Marks saved successfully", first.Message)
		assert.Equal(t, 85.0, first.Marks.Total)
		assert.Equal(t, "t@x.edu", first.Marks.FacultyEmail)

		again := save(mathUpdate(score(20), score(25), score(40)))
		assert.Equal(t, first.Marks.ID, again.Marks.ID)
		assert.Equal(t, 85.0, again.Marks.Total)
		assert.Equal(t, score(20), again.Marks.CT1)
		assert.Equal(t, score(25), again.Marks.Insem)
		assert.Equal(t, score(40), again.Marks.CT2)

		second := save(mathUpdate(score(10), nil, nil))
		assert.Equal(t, first.Marks.ID, second.Marks.ID)
		assert.Equal(t, 10.0, second.Marks.Total)
		assert.Nil(t, second.Marks.Insem)
		assert.Nil(t, second.Marks.CT2)

		require.NoError(t, fx.db.Get(&count, "SELECT COUNT(*) FROM marks"))
		assert.Equal(t, 1, count)
	})
}

func Test_marksApi_validationOutsideTestMode(t *testing.T) {
	conf := testutil.NewConfig(t)
	conf.TestMode = false
	conf.Debug = false
	fx := setupMarks(t, conf)

	fx.run(t, []httpTest{
		{
			name: "ct1 out of range", method: http.MethodPost, path: "/api/marks", token: fx.token,
			body:     marshallObj(t, marks.MarksUpdate{StudentID: fx.alice.ID, ClassName: "10A", Subject: "Math", CT1: score(31)}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"ct1": "ct1 must be between 0 and 30"}),
		},
		{
			name: "missing params", path: "/api/students", token: fx.token,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{
				"class_name": "this field is required",
				"subject":    "this field is required",
			}),
		},
		{
			name: "not assigned", path: "/api/students?class_name=10A&subject=Science", token: fx.token,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
	})
}

func Test_marksApi_queryStudents(t *testing.T) {
	fx := setupMarks(t)

	req, rec := newAuthRequest(http.MethodPost, "/api/marks", fx.token, marshallObj(t, marks.MarksUpdate{
		StudentID: fx.bob.ID, ClassName: "10A", Subject: "Math", CT1: score(0), CT2: score(50),
	}))
	fx.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved SaveMarksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))

	bobWithMarks := marks.StudentWithMarks{Student: fx.bob, Marks: &saved.Marks}
	aliceNoMarks := marks.StudentWithMarks{Student: fx.alice}

	fx.run(t, []httpTest{
		{name: "auth required", path: "/api/students?class_name=10A&subject=Math", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "missing params", path: "/api/students", token: fx.token,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{
				"class_name": "this field is required",
				"subject":    "this field is required",
			}),
		},
		{name: "not assigned to subject", path: "/api/students?class_name=10A&subject=Science", token: fx.token, wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{name: "not assigned to class", path: "/api/students?class_name=10B&subject=Math", token: fx.token, wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{name: "case sensitive", path: "/api/students?class_name=10a&subject=math", token: fx.token, wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{
			name: "list", path: "/api/students?class_name=10A&subject=Math", token: fx.token,
			wantCode: http.StatusOK, wantData: marshallObj(t, []marks.StudentWithMarks{aliceNoMarks, bobWithMarks}),
		},
		{
			name: "ordering", path: "/api/students?class_name=10A&subject=Math&ordering=-name", token: fx.token,
			wantCode: http.StatusOK, wantData: marshallObj(t, []marks.StudentWithMarks{bobWithMarks, aliceNoMarks}),
		},
		{
			name: "unknown ordering", path: "/api/students?class_name=10A&subject=Math&ordering=password", token: fx.token,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"ordering": "unknown ordering field: password"}),
		},
	})

	t.Run("unassigned faculty sees nothing", func(t *testing.T) {
		other := testutil.CreateFaculty(t, fx.db, "Other", "o@x.edu", "EMP-002")
		req, rec := newAuthRequest(http.MethodGet, "/api/students?class_name=10A&subject=Math", fx.getToken(t, other))
		fx.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)}, rec)
	})
}

func Test_marksApi_export(t *testing.T) {
	fx := setupMarks(t)

	fx.run(t, []httpTest{
		{name: "auth required", path: "/api/marks/export?class_name=10A&subject=Math", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "not assigned", path: "/api/marks/export?class_name=10A&subject=Science", token: fx.token, wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{
			name: "missing subject", path: "/api/marks/export?class_name=10A", token: fx.token,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"subject": "this field is required"}),
		},
	})

	t.Run("xlsx", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/marks/export?class_name=10A&subject=Math", fx.token)
		fx.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="marks-10A-Math.xlsx"`, rec.Header().Get("Content-Disposition"))

		book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer book.Close()
		rows, err := book.GetRows(book.GetSheetName(0))
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})
}

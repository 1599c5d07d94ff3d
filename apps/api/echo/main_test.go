package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/marksheet/apps/api/echo"
	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/auth"
	"github.com/trezcool/marksheet/core/faculty"
	"github.com/trezcool/marksheet/core/marks"
	sqlxrepos "github.com/trezcool/marksheet/storage/database/sqlx"
	"github.com/trezcool/marksheet/testutil"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed token"}
	errInvalidToken = httpErr{Error: "invalid token"}
	errForbidden    = httpErr{Error: "you are not assigned to teach this subject in this class"}
)

type testApp struct {
	Server
	conf   *core.Config
	db     *sqlx.DB
	tokens *auth.TokenService
}

func setup(t *testing.T, limiter ...middleware.RateLimiterStore) testApp {
	return setupWithConfig(t, testutil.NewConfig(t), limiter...)
}

func setupWithConfig(t *testing.T, conf *core.Config, limiter ...middleware.RateLimiterStore) testApp {
	db := testutil.PrepareDB(t, conf)
	validate, translator := testutil.NewValidator()

	tokens := auth.NewTokenService(conf.SecretKey, conf.AppName, 24*time.Hour)
	facultySvc := faculty.NewService(sqlxrepos.NewFacultyRepository(db), tokens, faculty.NewBcryptHasher(conf.PasswordHashCost))
	marksSvc := marks.NewService(db, sqlxrepos.NewMarksRepository(db), validate)

	deps := ServerDeps{
		Conf:       conf,
		Logger:     testutil.NopLogger{},
		FacultySvc: facultySvc,
		MarksSvc:   marksSvc,
		Validate:   validate,
		Translator: translator,
	}
	if len(limiter) > 0 {
		deps.LoginLimiter = limiter[0]
	}
	return testApp{Server: NewServer(deps), conf: conf, db: db, tokens: tokens}
}

func (app testApp) getToken(t *testing.T, f faculty.Faculty) string {
	token, err := app.tokens.Issue(f.Email)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token.Value
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func (app testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

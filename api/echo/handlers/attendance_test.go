package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/smancaringin/presensi/api/echo/helpers"
	"github.com/smancaringin/presensi/core"
	"github.com/smancaringin/presensi/core/attendance"
	usr "github.com/smancaringin/presensi/core/user"
	dummygemini "github.com/smancaringin/presensi/services/gemini/dummy"
	logsvc "github.com/smancaringin/presensi/services/logger"
	dummyspreadsheet "github.com/smancaringin/presensi/services/spreadsheet/dummy"
	inmemdb "github.com/smancaringin/presensi/storage/database/inmem"
)

func testConf() *core.Config {
	return &core.Config{
		AppName:            "Presensi",
		SchoolName:         "SMAN 1 Caringin",
		LatenessCutoff:     "06:30",
		SecretKey:          "test-secret",
		JWTExpirationDelta: time.Hour,
		StudentPIN:         "123",
		AdminPIN:           "admin",
	}
}

func setup(t *testing.T) (*attendanceApi, *dummyspreadsheet.Service) {
	t.Helper()
	conf := testConf()
	helpers.InitAuth(conf)

	repo := inmemdb.NewRecordRepository(inmemdb.NewDB(), conf.Location())
	classifier := dummygemini.NewService(attendance.DefaultCutoff, conf.Location())
	syncer := dummyspreadsheet.NewService()
	logger := logsvc.NewStdLogger(log.New(ioutil.Discard, "", 0))

	svc := attendance.NewService(conf, repo, classifier, syncer, nil, logger)
	return &attendanceApi{service: svc}, syncer
}

func newRequest(e *echo.Echo, method, path string, data ...[]byte) (echo.Context, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	return ctx, rec
}

func authenticate(ctx echo.Context, u usr.User) {
	method := jwt.GetSigningMethod(helpers.AppJWTConfig.SigningMethod)
	ctx.Set(helpers.AppJWTConfig.ContextKey, jwt.NewWithClaims(method, helpers.GetUserClaims(u)))
}

func student(name, class string) usr.User {
	return usr.User{Name: name, ClassID: class, Role: usr.RoleStudent}
}

var admin = usr.User{Name: "Administrator", ClassID: attendance.ClassAdmin, Role: usr.RoleAdmin}

func marshal(t *testing.T, v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal() failed: %v", err)
	}
	return data
}

func Test_attendanceApi_submit(t *testing.T) {
	api, syncer := setup(t)
	e := echo.New()

	body := marshal(t, submitRequest{
		StudentName: "Someone Else", // must be overridden by the token identity
		ClassName:   "XII-9",
		Intent:      attendance.IntentPresent,
		Photo:       "Zm90bw==",
		Timestamp:   time.Date(2025, time.March, 10, 6, 10, 0, 0, time.UTC),
	})
	ctx, rec := newRequest(e, http.MethodPost, "/v1/attendance", body)
	authenticate(ctx, student("Budi Santoso", "X-1"))

	if err := api.submit(ctx); err != nil {
		t.Fatalf("submit() failed: %v", err)
	}
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got attendance.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not a record: %v", err)
	}
	assert.Equal(t, "Budi Santoso", got.StudentName)
	assert.Equal(t, "X-1", got.ClassID)
	assert.Equal(t, attendance.StatusPresent, got.Status)
	assert.Len(t, syncer.Committed(), 1)
}

func Test_attendanceApi_submitTwiceSameDay(t *testing.T) {
	api, _ := setup(t)
	e := echo.New()
	ts := time.Date(2025, time.March, 10, 6, 10, 0, 0, time.UTC)

	body := marshal(t, submitRequest{Intent: attendance.IntentPresent, Photo: "Zm90bw==", Timestamp: ts})
	ctx, _ := newRequest(e, http.MethodPost, "/v1/attendance", body)
	authenticate(ctx, student("Budi Santoso", "X-1"))
	if err := api.submit(ctx); err != nil {
		t.Fatalf("first submit() failed: %v", err)
	}

	body = marshal(t, submitRequest{Intent: attendance.IntentPresent, Photo: "Zm90bw==", Timestamp: ts.Add(2 * time.Hour)})
	ctx, _ = newRequest(e, http.MethodPost, "/v1/attendance", body)
	authenticate(ctx, student("Budi Santoso", "X-1"))
	if err := api.submit(ctx); !errors.Is(err, attendance.ErrAlreadyCheckedIn) {
		t.Errorf("second submit() error = %v, want ErrAlreadyCheckedIn", err)
	}
}

func Test_attendanceApi_submitOfflineSink(t *testing.T) {
	api, syncer := setup(t)
	syncer.Offline = true
	e := echo.New()

	body := marshal(t, submitRequest{Intent: attendance.IntentPresent, Photo: "Zm90bw=="})
	ctx, _ := newRequest(e, http.MethodPost, "/v1/attendance", body)
	authenticate(ctx, student("Budi Santoso", "X-1"))

	if err := api.submit(ctx); !errors.Is(err, attendance.ErrOffline) {
		t.Fatalf("submit() error = %v, want ErrOffline", err)
	}

	// nothing was appended; retrying after the sink is back succeeds
	syncer.Offline = false
	ctx, rec := newRequest(e, http.MethodPost, "/v1/attendance", body)
	authenticate(ctx, student("Budi Santoso", "X-1"))
	if err := api.submit(ctx); err != nil {
		t.Fatalf("retry submit() failed: %v", err)
	}
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func Test_attendanceApi_query(t *testing.T) {
	api, _ := setup(t)
	e := echo.New()

	submit := func(name, class string, ts time.Time) {
		body := marshal(t, submitRequest{Intent: attendance.IntentPresent, Photo: "Zm90bw==", Timestamp: ts})
		ctx, _ := newRequest(e, http.MethodPost, "/v1/attendance", body)
		authenticate(ctx, student(name, class))
		if err := api.submit(ctx); err != nil {
			t.Fatalf("submit() failed: %v", err)
		}
	}
	ts := time.Date(2025, time.March, 10, 6, 10, 0, 0, time.UTC)
	submit("Budi Santoso", "X-1", ts)
	submit("Siti Aminah", "XI-3", ts)

	ctx, rec := newRequest(e, http.MethodGet, "/v1/attendance?className=X-1", nil)
	ctx.QueryParams().Set("className", "X-1")
	authenticate(ctx, admin)

	if err := api.query(ctx); err != nil {
		t.Fatalf("query() failed: %v", err)
	}
	var got []attendance.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not a record list: %v", err)
	}
	assert.Len(t, got, 1)
	assert.Equal(t, "Budi Santoso", got[0].StudentName)
}

func Test_attendanceApi_update(t *testing.T) {
	api, _ := setup(t)
	e := echo.New()

	ts := time.Date(2025, time.March, 10, 6, 10, 0, 0, time.UTC)
	body := marshal(t, submitRequest{Intent: attendance.IntentPresent, Photo: "Zm90bw==", Timestamp: ts})
	ctx, rec := newRequest(e, http.MethodPost, "/v1/attendance", body)
	authenticate(ctx, student("Budi Santoso", "X-1"))
	if err := api.submit(ctx); err != nil {
		t.Fatalf("submit() failed: %v", err)
	}
	var created attendance.Record
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	body = marshal(t, updateRequest{Status: attendance.StatusSick, Note: "Surat dokter diterima."})
	ctx, rec = newRequest(e, http.MethodPut, "/v1/attendance/"+created.ID, body)
	ctx.SetParamNames("id")
	ctx.SetParamValues(created.ID)
	authenticate(ctx, admin)

	if err := api.update(ctx); err != nil {
		t.Fatalf("update() failed: %v", err)
	}
	var got attendance.Record
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	assert.Equal(t, attendance.StatusSick, got.Status)
	assert.Equal(t, "Surat dokter diterima.", got.Note)
}

func Test_attendanceApi_aggregate(t *testing.T) {
	api, _ := setup(t)
	e := echo.New()

	ts := time.Date(2025, time.March, 10, 6, 10, 0, 0, time.UTC)
	body := marshal(t, submitRequest{Intent: attendance.IntentPresent, Photo: "Zm90bw==", Timestamp: ts})
	ctx, _ := newRequest(e, http.MethodPost, "/v1/attendance", body)
	authenticate(ctx, student("Budi Santoso", "X-1"))
	if err := api.submit(ctx); err != nil {
		t.Fatalf("submit() failed: %v", err)
	}

	ctx, rec := newRequest(e, http.MethodGet, "/v1/attendance/aggregate", nil)
	ctx.QueryParams().Set("date", "2025-03-10")
	authenticate(ctx, admin)

	if err := api.aggregate(ctx); err != nil {
		t.Fatalf("aggregate() failed: %v", err)
	}
	var got attendance.AggregateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not an aggregate: %v", err)
	}
	assert.Equal(t, 1, got.School.Present)
	assert.Equal(t, len(attendance.DefaultRoster()), len(got.PerClass))

	ctx, _ = newRequest(e, http.MethodGet, "/v1/attendance/aggregate", nil)
	ctx.QueryParams().Set("month", "13")
	authenticate(ctx, admin)
	if err := api.aggregate(ctx); err == nil {
		t.Error("aggregate() with month=13 expected error, got nil")
	}
}

func Test_attendanceApi_export(t *testing.T) {
	api, _ := setup(t)
	e := echo.New()

	ts := time.Date(2025, time.March, 10, 6, 10, 0, 0, time.UTC)
	body := marshal(t, submitRequest{Intent: attendance.IntentPresent, Photo: "Zm90bw==", Timestamp: ts})
	ctx, _ := newRequest(e, http.MethodPost, "/v1/attendance", body)
	authenticate(ctx, student("Budi Santoso", "X-1"))
	if err := api.submit(ctx); err != nil {
		t.Fatalf("submit() failed: %v", err)
	}

	ctx, rec := newRequest(e, http.MethodGet, "/v1/attendance/export", nil)
	authenticate(ctx, admin)
	if err := api.export(ctx); err != nil {
		t.Fatalf("export() failed: %v", err)
	}

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	out := rec.Body.String()
	if !strings.HasPrefix(out, "\uFEFF") {
		t.Error("export is missing the UTF-8 byte-order mark")
	}
	assert.Contains(t, out, "Budi Santoso")
}

func Test_attendanceApi_report(t *testing.T) {
	api, _ := setup(t)
	e := echo.New()

	ctx, rec := newRequest(e, http.MethodGet, "/v1/attendance/report", nil)
	authenticate(ctx, admin)

	if err := api.report(ctx); err != nil {
		t.Fatalf("report() failed: %v", err)
	}
	var got attendance.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not a report: %v", err)
	}
	assert.Equal(t, attendance.SafeReport().Summary, got.Summary)
}

package attendance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smancaringin/presensi/core"
)

type spyRepo struct {
	records []Record
	created int
	failAll error
}

var _ Repository = (*spyRepo)(nil)

func (r *spyRepo) CreateRecord(rec Record) (Record, error) {
	if r.failAll != nil {
		return Record{}, r.failAll
	}
	for _, existing := range r.records {
		if existing.ID == rec.ID {
			return existing, nil
		}
	}
	r.records = append(r.records, rec)
	r.created++
	return rec, nil
}

func (r *spyRepo) GetRecordByID(id string) (Record, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (r *spyRepo) QueryAllRecords() ([]Record, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	return r.records, nil
}

func (r *spyRepo) FilterRecords(filter QueryFilter) ([]Record, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	var out []Record
	for _, rec := range r.records {
		if filter.Match(rec, jakarta) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *spyRepo) UpdateRecord(rec Record) (Record, error) {
	for i, existing := range r.records {
		if existing.ID == rec.ID {
			r.records[i] = rec
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (r *spyRepo) DeleteRecordsByID(ids ...string) error {
	for _, id := range ids {
		for i, rec := range r.records {
			if rec.ID == id {
				r.records = append(r.records[:i], r.records[i+1:]...)
				break
			}
		}
	}
	return nil
}

type spyClassifier struct {
	cls    Classification
	report Report
	err    error
	calls  int
}

var _ Classifier = (*spyClassifier)(nil)

func (c *spyClassifier) Classify(ctx context.Context, photo string, loc Location, ts time.Time) (Classification, error) {
	c.calls++
	return c.cls, c.err
}

func (c *spyClassifier) Summarize(ctx context.Context, records []Record) (Report, error) {
	c.calls++
	return c.report, c.err
}

type spySyncer struct {
	err   error
	calls int
}

var _ RecordSyncer = (*spySyncer)(nil)

func (s *spySyncer) Sync(ctx context.Context, rec Record) error {
	s.calls++
	return s.err
}

type spyMailer struct {
	sent []*core.EmailMessage
}

func (m *spyMailer) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestService(repo *spyRepo, cls *spyClassifier, syn *spySyncer, mailer *spyMailer) *Service {
	return &Service{
		repo:       repo,
		classifier: cls,
		syncer:     syn,
		mailSvc:    mailer,
		logger:     nopLogger{},
		schoolName: "SMAN 1 Caringin",
		adminEmail: "admin@sman1caringin.sch.id",
		cutoff:     DefaultCutoff,
		loc:        jakarta,
		roster:     DefaultRoster(),
		nowFunc:    func() time.Time { return at(6, 15) },
	}
}

func captureEvent() CaptureEvent {
	return CaptureEvent{
		StudentName: "Budi Santoso",
		ClassID:     "X-1",
		Intent:      IntentPresent,
		Photo:       "Zm90bw==",
		Timestamp:   at(6, 10),
	}
}

func TestServiceSubmit(t *testing.T) {
	repo := &spyRepo{}
	cls := &spyClassifier{cls: Classification{Status: StatusPresent, Confidence: 0.96, Note: "Wajah terverifikasi."}}
	syn := &spySyncer{}
	svc := newTestService(repo, cls, syn, &spyMailer{})

	rec, err := svc.Submit(context.Background(), captureEvent())
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if rec.Status != StatusPresent {
		t.Errorf("Submit() status = %s, want HADIR", rec.Status)
	}
	if syn.calls != 1 {
		t.Errorf("syncer called %d times, want 1", syn.calls)
	}
	if repo.created != 1 {
		t.Errorf("repo holds %d records, want 1", repo.created)
	}
}

func TestServiceSubmitZeroTimestampUsesClock(t *testing.T) {
	repo := &spyRepo{}
	cls := &spyClassifier{cls: Classification{Status: StatusPresent, Confidence: 0.9}}
	svc := newTestService(repo, cls, &spySyncer{}, &spyMailer{})

	e := captureEvent()
	e.Timestamp = time.Time{}

	rec, err := svc.Submit(context.Background(), e)
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if !rec.Timestamp.Equal(at(6, 15)) {
		t.Errorf("Submit() timestamp = %v, want service clock", rec.Timestamp)
	}
}

func TestServiceSubmitInvalidEventSkipsClassifier(t *testing.T) {
	cls := &spyClassifier{}
	syn := &spySyncer{}
	svc := newTestService(&spyRepo{}, cls, syn, &spyMailer{})

	e := captureEvent()
	e.Photo = ""

	if _, err := svc.Submit(context.Background(), e); err == nil {
		t.Fatal("Submit() expected validation error, got nil")
	}
	if cls.calls != 0 {
		t.Error("classifier must not run for an invalid event")
	}
	if syn.calls != 0 {
		t.Error("syncer must not run for an invalid event")
	}
}

func TestServiceSubmitRefusesSecondCheckInSameDay(t *testing.T) {
	repo := &spyRepo{}
	cls := &spyClassifier{cls: Classification{Status: StatusPresent, Confidence: 0.9}}
	svc := newTestService(repo, cls, &spySyncer{}, &spyMailer{})

	if _, err := svc.Submit(context.Background(), captureEvent()); err != nil {
		t.Fatalf("first Submit() failed: %v", err)
	}

	e := captureEvent()
	e.Timestamp = at(9, 0) // later the same day
	if _, err := svc.Submit(context.Background(), e); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("second Submit() error = %v, want ErrAlreadyCheckedIn", err)
	}
	if repo.created != 1 {
		t.Errorf("repo holds %d records, want 1", repo.created)
	}
}

func TestServiceSubmitSyncFailureLeavesLogUntouched(t *testing.T) {
	tests := []struct {
		name    string
		syncErr error
	}{
		{name: "offline", syncErr: ErrOffline},
		{name: "transient sink failure", syncErr: ErrSyncFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &spyRepo{}
			cls := &spyClassifier{cls: Classification{Status: StatusPresent, Confidence: 0.9}}
			svc := newTestService(repo, cls, &spySyncer{err: tt.syncErr}, &spyMailer{})

			if _, err := svc.Submit(context.Background(), captureEvent()); !errors.Is(err, tt.syncErr) {
				t.Errorf("Submit() error = %v, want %v", err, tt.syncErr)
			}
			if repo.created != 0 {
				t.Error("record must not be appended on sync failure")
			}
		})
	}
}

func TestServiceSubmitCancelledContext(t *testing.T) {
	repo := &spyRepo{}
	cls := &spyClassifier{err: context.Canceled}
	svc := newTestService(repo, cls, &spySyncer{}, &spyMailer{})

	if _, err := svc.Submit(context.Background(), captureEvent()); !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() error = %v, want context.Canceled", err)
	}
	if repo.created != 0 {
		t.Error("record must not be appended after cancellation")
	}
}

func TestServiceUpdate(t *testing.T) {
	repo := &spyRepo{records: []Record{rec("X-1", "Budi", StatusRejected, at(6, 10))}}
	svc := newTestService(repo, &spyClassifier{}, &spySyncer{}, &spyMailer{})
	id := repo.records[0].ID

	updated, err := svc.Update(id, StatusPresent, "Diverifikasi manual oleh wali kelas.")
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.Status != StatusPresent {
		t.Errorf("Update() status = %s, want HADIR", updated.Status)
	}
	if updated.Note != "Diverifikasi manual oleh wali kelas." {
		t.Errorf("Update() note = %q", updated.Note)
	}

	if _, err := svc.Update(id, "BOLOS", ""); err == nil {
		t.Error("Update() with unknown status expected error, got nil")
	}
	if _, err := svc.Update("missing", StatusPresent, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() on missing id error = %v, want ErrNotFound", err)
	}
}

func TestServiceReportEmptyLog(t *testing.T) {
	cls := &spyClassifier{report: Report{Summary: "should not be used"}}
	svc := newTestService(&spyRepo{}, cls, &spySyncer{}, &spyMailer{})

	report, err := svc.Report(context.Background())
	if err != nil {
		t.Fatalf("Report() failed: %v", err)
	}
	if report.Summary != SafeReport().Summary {
		t.Errorf("Report() on empty log = %+v, want safe default", report)
	}
	if cls.calls != 0 {
		t.Error("classifier must not run over an empty log")
	}
}

func TestServiceEmailReport(t *testing.T) {
	repo := &spyRepo{records: []Record{rec("X-1", "Budi", StatusAbsent, at(6, 10))}}
	cls := &spyClassifier{report: Report{
		Summary:         "Kehadiran menurun pekan ini.",
		AtRiskStudents:  []string{"Budi Santoso"},
		Trend:           "menurun",
		Recommendations: []string{"Hubungi orang tua siswa."},
	}}
	mailer := &spyMailer{}
	svc := newTestService(repo, cls, &spySyncer{}, mailer)

	report, err := svc.EmailReport(context.Background())
	if err != nil {
		t.Fatalf("EmailReport() failed: %v", err)
	}
	if report.Trend != "menurun" {
		t.Errorf("EmailReport() trend = %q", report.Trend)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.To[0].Address != "admin@sman1caringin.sch.id" {
		t.Errorf("message addressed to %s", msg.To[0].Address)
	}
	for _, want := range []string{"Kehadiran menurun pekan ini.", "Budi Santoso", "Hubungi orang tua siswa."} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("message body missing %q", want)
		}
	}
}

func TestServiceAggregateDay(t *testing.T) {
	day := at(7, 0)
	repo := &spyRepo{records: []Record{
		rec("X-1", "Andi", StatusPresent, day),
		rec("X-1", "Budi", StatusLate, day),
		rec("XI-2", "Cici", StatusSick, day),
	}}
	svc := newTestService(repo, &spyClassifier{}, &spySyncer{}, &spyMailer{})

	result, err := svc.AggregateDay(day)
	if err != nil {
		t.Fatalf("AggregateDay() failed: %v", err)
	}
	if result.School.Present != 2 || result.School.Sick != 1 || result.School.Total != 3 {
		t.Errorf("school tally = %+v", result.School)
	}
	if len(result.PerClass) != len(DefaultRoster()) {
		t.Errorf("per-class rows = %d, want %d", len(result.PerClass), len(DefaultRoster()))
	}
}

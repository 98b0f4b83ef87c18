package attendance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/smancaringin/presensi/core"
)

var (
	// errors
	ErrNotFound         = errors.New("attendance record not found")
	ErrAlreadyCheckedIn = errors.New("attendance already recorded for today")
	ErrInvalidStatus    = errors.New("invalid attendance status")
)

type (
	Repository interface {
		// CreateRecord appends the record to the authoritative log.
		// Idempotent on ID: re-committing an already-appended record is a
		// no-op, never a duplicate entry.
		CreateRecord(rec Record) (Record, error)
		GetRecordByID(id string) (Record, error)
		QueryAllRecords() ([]Record, error)
		// FilterRecords applies AND operation on available QueryFilter fields.
		FilterRecords(filter QueryFilter) ([]Record, error)
		// UpdateRecord replaces the stored record wholesale.
		UpdateRecord(rec Record) (Record, error)
		DeleteRecordsByID(ids ...string) error
	}

	// AggregateResult is the roll-up served to the admin tables and charts.
	AggregateResult struct {
		PerClass []ClassTally `json:"perClass"`
		School   ClassTally   `json:"schoolTotal"`
	}

	Service struct {
		repo       Repository
		classifier Classifier
		syncer     RecordSyncer
		mailSvc    core.EmailService
		logger     core.Logger

		schoolName string
		adminEmail string
		cutoff     Cutoff
		loc        *time.Location
		roster     Roster
		policy     AggregatePolicy

		nowFunc func() time.Time // mockable
	}
)

func NewService(
	conf *core.Config,
	repo Repository,
	classifier Classifier,
	syncer RecordSyncer,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	cutoff, err := ParseCutoff(conf.LatenessCutoff)
	if err != nil {
		cutoff = DefaultCutoff
	}
	return &Service{
		repo:       repo,
		classifier: classifier,
		syncer:     syncer,
		mailSvc:    mailSvc,
		logger:     logger,
		schoolName: conf.SchoolName,
		adminEmail: conf.AdminEmail,
		cutoff:     cutoff,
		loc:        conf.Location(),
		roster:     DefaultRoster(),
		policy:     AggregatePolicy{},
		nowFunc:    time.Now,
	}
}

// Cutoff returns the configured lateness cutoff.
func (svc *Service) Cutoff() Cutoff { return svc.cutoff }

// Location returns the school timezone.
func (svc *Service) Location() *time.Location { return svc.loc }

// Roster returns the configured class roster.
func (svc *Service) Roster() Roster { return svc.roster }

// Submit runs one capture event end-to-end: validate, classify, decide,
// commit to the spreadsheet sink, then append to the authoritative log.
//
// The record is appended only on confirmed commit; a sync failure leaves the
// log untouched and surfaces as ErrOffline or ErrSyncFailed so the caller
// can offer an explicit retry. A second submission by the same student on
// the same day is refused with ErrAlreadyCheckedIn.
func (svc *Service) Submit(ctx context.Context, e CaptureEvent) (Record, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = svc.nowFunc().UTC()
	}
	if err := e.Validate(); err != nil {
		return Record{}, err
	}

	day := DayWindow(e.Timestamp, svc.loc)
	existing, err := svc.repo.FilterRecords(QueryFilter{Window: &day, StudentName: e.StudentName})
	if err != nil {
		return Record{}, err
	}
	if len(existing) > 0 {
		return Record{}, ErrAlreadyCheckedIn
	}

	cls, err := svc.classifier.Classify(ctx, e.Photo, e.Location, e.Timestamp)
	if err != nil {
		// only a cancelled/expired context reaches here
		return Record{}, err
	}

	rec := Decide(e, cls, svc.cutoff, svc.loc)

	if err := svc.syncer.Sync(ctx, rec); err != nil {
		svc.logger.Warn(fmt.Sprintf("record %s not committed: %v", rec.ID, err))
		return Record{}, err
	}
	return svc.repo.CreateRecord(rec)
}

func (svc *Service) GetByID(id string) (Record, error) {
	return svc.repo.GetRecordByID(id)
}

func (svc *Service) QueryAll() ([]Record, error) {
	return svc.repo.QueryAllRecords()
}

func (svc *Service) Filter(filter QueryFilter) ([]Record, error) {
	return svc.repo.FilterRecords(filter)
}

// Update is the out-of-band administrative edit: it replaces the record's
// status and note wholesale. Not part of the decision pipeline.
func (svc *Service) Update(id string, status Status, note string) (Record, error) {
	if !status.Valid() {
		return Record{}, core.NewValidationError(ErrInvalidStatus,
			core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()})
	}
	rec, err := svc.repo.GetRecordByID(id)
	if err != nil {
		return Record{}, err
	}
	rec.Status = status
	if note != "" {
		rec.Note = note
	}
	return svc.repo.UpdateRecord(rec)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteRecordsByID(ids...)
}

// AggregateDay rolls all committed records for one calendar day.
func (svc *Service) AggregateDay(day time.Time) (AggregateResult, error) {
	return svc.aggregate(DayWindow(day, svc.loc))
}

// AggregateMonth rolls all committed records for a month number, regardless
// of year.
func (svc *Service) AggregateMonth(month time.Month) (AggregateResult, error) {
	return svc.aggregate(MonthWindow(month))
}

func (svc *Service) aggregate(w Window) (AggregateResult, error) {
	records, err := svc.repo.QueryAllRecords()
	if err != nil {
		return AggregateResult{}, err
	}
	perClass, school := Aggregate(records, w, svc.roster, svc.loc, svc.policy)
	return AggregateResult{PerClass: perClass, School: school}, nil
}

// ExportCSV writes the filtered records as the school's spreadsheet CSV.
func (svc *Service) ExportCSV(w io.Writer, filter QueryFilter) error {
	records, err := svc.repo.FilterRecords(filter)
	if err != nil {
		return err
	}
	return ExportCSV(w, records, svc.loc)
}

// Report asks the classifier for a whole-history behavioral summary. The
// gateway absorbs upstream failures, so this only fails on storage errors or
// a cancelled context.
func (svc *Service) Report(ctx context.Context) (Report, error) {
	records, err := svc.repo.QueryAllRecords()
	if err != nil {
		return Report{}, err
	}
	if len(records) == 0 {
		return SafeReport(), nil
	}
	return svc.classifier.Summarize(ctx, records)
}

// EmailReport generates the behavioral report and mails it to the school
// administrator for distribution to homeroom teachers.
func (svc *Service) EmailReport(ctx context.Context) (Report, error) {
	report, err := svc.Report(ctx)
	if err != nil {
		return Report{}, err
	}
	if svc.adminEmail == "" {
		return report, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Laporan Perilaku Kehadiran %s\n\n", svc.schoolName)
	fmt.Fprintf(&b, "Ringkasan:\n%s\n\n", report.Summary)
	fmt.Fprintf(&b, "Tren: %s\n\n", report.Trend)
	if len(report.AtRiskStudents) > 0 {
		fmt.Fprintf(&b, "Siswa berisiko:\n")
		for _, name := range report.AtRiskStudents {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Rekomendasi untuk wali kelas:\n")
	for _, rec := range report.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: svc.adminEmail}},
		Subject: "Laporan Perilaku Kehadiran",
		Body:    b.String(),
	})
	return report, nil
}

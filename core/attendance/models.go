package attendance

import (
	"time"

	"github.com/smancaringin/presensi/core"
)

// ClassAdmin is the sentinel class for administrators; it is never part of
// the roster and never aggregated.
const ClassAdmin = "ADMIN"

// Status is the final attendance verdict of a record. Values are the wire
// values used by the school (and the spreadsheet sink), in Indonesian.
type Status string

const (
	StatusPresent       Status = "HADIR"
	StatusLate          Status = "TERLAMBAT"
	StatusSick          Status = "SAKIT"
	StatusPermission    Status = "IZIN"
	StatusAbsent        Status = "ALPA"
	StatusAbsentByPhoto Status = "ALPA_FOTO"
	StatusRejected      Status = "DITOLAK"
)

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusSick, StatusPermission,
		StatusAbsent, StatusAbsentByPhoto, StatusRejected:
		return true
	default:
		return false
	}
}

// Intent is the status a student claims when submitting a capture.
type Intent string

const (
	IntentPresent     Intent = "HADIR"
	IntentSick        Intent = "SAKIT"
	IntentPermission  Intent = "IZIN"
	IntentAbsentPhoto Intent = "ALPA_FOTO"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentPresent, IntentSick, IntentPermission, IntentAbsentPhoto:
		return true
	default:
		return false
	}
}

// ForcedStatus returns the status a non-present intent forces onto the
// record. A student's declared non-presence claim always wins over the
// classifier verdict.
func (i Intent) ForcedStatus() (Status, bool) {
	switch i {
	case IntentSick:
		return StatusSick, true
	case IntentPermission:
		return StatusPermission, true
	case IntentAbsentPhoto:
		return StatusAbsentByPhoto, true
	default:
		return "", false
	}
}

// Location is a GPS reading; the zero value is the "unknown" sentinel
// (commit with an unknown location is allowed).
type Location struct {
	Lat float64 `json:"lat" db:"lat"`
	Lng float64 `json:"lng" db:"lng"`
}

func (l Location) Unknown() bool {
	return l.Lat == 0 && l.Lng == 0
}

// Record is a single attendance entry. Immutable once committed; admin
// edits replace it wholesale via Service.Update.
type Record struct {
	ID          string    `json:"id" db:"id"`
	StudentName string    `json:"studentName" db:"student_name"`
	ClassID     string    `json:"className" db:"class_id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	Status      Status    `json:"status" db:"status"`
	PhotoRef    string    `json:"photoUrl" db:"photo_ref"`
	Location    Location  `json:"location"`
	Note        string    `json:"aiAnalysis" db:"note"`
	Confidence  float64   `json:"confidenceScore" db:"confidence"`
}

// CaptureEvent is one submission from the capture subsystem: a photo with a
// declared intent, timestamp and optional location.
type CaptureEvent struct {
	StudentName string    `json:"studentName" validate:"required"`
	ClassID     string    `json:"className" validate:"required"`
	Intent      Intent    `json:"intent" validate:"required,intent"`
	Photo       string    `json:"photo" validate:"required"` // base64 JPEG
	Location    Location  `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
}

// Validate cleans and validates the event. A failure here is fatal to the
// capture attempt: the classifier gateway is never called.
func (e *CaptureEvent) Validate() error {
	e.StudentName = core.CleanString(e.StudentName)
	e.ClassID = core.CleanString(e.ClassID)
	return core.Validate.Struct(e)
}

// QueryFilter applies AND operation on available fields.
// Search does a case-insensitive, typo-tolerant match on Record.StudentName.
type QueryFilter struct {
	Window      *Window
	ClassID     string
	StudentName string // exact owner scoping
	Search      string
}

// Match reports whether the record passes the filter. loc is the school
// timezone used for window bucketing.
func (f QueryFilter) Match(rec Record, loc *time.Location) bool {
	if f.Window != nil && !f.Window.Contains(rec.Timestamp, loc) {
		return false
	}
	if f.ClassID != "" && rec.ClassID != f.ClassID {
		return false
	}
	if f.StudentName != "" && rec.StudentName != f.StudentName {
		return false
	}
	if f.Search != "" && !matchName(rec.StudentName, f.Search) {
		return false
	}
	return true
}

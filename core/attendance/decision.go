package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// FallbackConfidence is the fixed score attached to locally computed
	// decisions when the classifier is unreachable.
	FallbackConfidence = 0.9
	fallbackNote       = "Kehadiran diverifikasi sistem (Fallback)."
)

// Cutoff is the local time-of-day after which a present-intent capture
// becomes late. The cutoff minute itself still counts as on time.
type Cutoff struct {
	Hour   int
	Minute int
}

// DefaultCutoff is the school's 06:30 WIB entry limit.
var DefaultCutoff = Cutoff{Hour: 6, Minute: 30}

// ParseCutoff parses a "HH:MM" string.
func ParseCutoff(s string) (Cutoff, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Cutoff{}, fmt.Errorf("invalid cutoff %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Cutoff{}, fmt.Errorf("invalid cutoff hour %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Cutoff{}, fmt.Errorf("invalid cutoff minute %q", s)
	}
	return Cutoff{Hour: h, Minute: m}, nil
}

// IsLate reports whether t, viewed in the school timezone, is past the cutoff.
func (c Cutoff) IsLate(t time.Time, loc *time.Location) bool {
	lt := t.In(loc)
	h, m := lt.Hour(), lt.Minute()
	return h > c.Hour || (h == c.Hour && m > c.Minute)
}

// Fallback is the locally computed decision used when the classifier is
// unreachable or unparseable: the capture flow always completes with some
// classification, trading fidelity for availability.
func Fallback(ts time.Time, c Cutoff, loc *time.Location) Classification {
	status := StatusPresent
	if c.IsLate(ts, loc) {
		status = StatusLate
	}
	return Classification{
		Status:     status,
		Confidence: FallbackConfidence,
		Note:       fallbackNote,
	}
}

// Decide turns a capture event and its classification into the final record,
// with a freshly generated identifier, not yet committed.
//
// Rules, in order:
//  1. a declared non-present intent forces its mapped status; the classifier
//     note is kept as supporting evidence.
//  2. present intent past the cutoff is late. Lateness wins over a
//     classifier reject: a student who shows up late with a borderline photo
//     is recorded TERLAMBAT, not DITOLAK.
//  3. otherwise the classifier verdict stands.
func Decide(e CaptureEvent, cls Classification, c Cutoff, loc *time.Location) Record {
	status := cls.Status
	note := cls.Note

	if forced, ok := e.Intent.ForcedStatus(); ok {
		status = forced
		note = "Keterangan " + string(forced) + ". " + cls.Note
	} else if c.IsLate(e.Timestamp, loc) {
		status = StatusLate
	} else if !status.Valid() {
		status = StatusPresent
	}

	return Record{
		ID:          uuid.New().String(),
		StudentName: e.StudentName,
		ClassID:     e.ClassID,
		Timestamp:   e.Timestamp.UTC(),
		Status:      status,
		PhotoRef:    e.Photo,
		Location:    e.Location,
		Note:        note,
		Confidence:  cls.Confidence,
	}
}

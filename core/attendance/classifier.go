package attendance

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRateLimited signals upstream quota exhaustion; the gateway retries
	// these with backoff and never surfaces them if a retry or the fallback
	// succeeds.
	ErrRateLimited = errors.New("classifier: rate limited")
	// ErrServiceError covers any other upstream failure (network, malformed
	// or empty response); never retried.
	ErrServiceError = errors.New("classifier: service error")
)

// Classification is the gateway verdict for one capture.
type Classification struct {
	Status     Status
	Confidence float64 // in [0,1]
	Note       string
}

// Report is the whole-history behavioral summary produced for the admin view.
type Report struct {
	Summary         string   `json:"summary"`
	AtRiskStudents  []string `json:"atRiskStudents"`
	Trend           string   `json:"trend"`
	Recommendations []string `json:"recommendations"`
}

// Classifier wraps the external image understanding service.
//
// Classify must always return a usable Classification for the capture path:
// when the upstream is unreachable, rate limited beyond the retry budget or
// unparseable, implementations return the local Fallback decision instead of
// an error. The only error Classify may return is the caller's context error,
// so an abandoned capture stops retrying and no stale result is applied.
//
// Summarize follows the same retry policy but, instead of the lateness
// fallback, returns SafeReport on failure; the reporting path never fails.
type Classifier interface {
	Classify(ctx context.Context, photo string, loc Location, ts time.Time) (Classification, error)
	Summarize(ctx context.Context, records []Record) (Report, error)
}

// SafeReport is the default report returned when the upstream cannot produce
// one. Wording matches the school's operational runbook.
func SafeReport() Report {
	return Report{
		Summary:         "Analisis sedang tidak dapat dihasilkan karena keterbatasan data atau kuota API.",
		AtRiskStudents:  []string{},
		Trend:           "stabil",
		Recommendations: []string{"Lakukan pemantauan manual sementara waktu."},
	}
}

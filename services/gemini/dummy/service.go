package dummygemini

import (
	"context"
	"time"

	"github.com/smancaringin/presensi/core/attendance"
)

// Service is a local stand-in for the Gemini gateway: every photo passes
// verification. Used in dev and tests.
type Service struct {
	cutoff attendance.Cutoff
	loc    *time.Location
}

var _ attendance.Classifier = (*Service)(nil)

func NewService(cutoff attendance.Cutoff, loc *time.Location) *Service {
	return &Service{cutoff: cutoff, loc: loc}
}

func (svc *Service) Classify(ctx context.Context, photo string, loc attendance.Location, ts time.Time) (attendance.Classification, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Classification{}, err
	}
	status := attendance.StatusPresent
	if svc.cutoff.IsLate(ts, svc.loc) {
		status = attendance.StatusLate
	}
	return attendance.Classification{
		Status:     status,
		Confidence: 0.99,
		Note:       "Verifikasi lokal (mode pengembangan).",
	}, nil
}

func (svc *Service) Summarize(ctx context.Context, records []attendance.Record) (attendance.Report, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Report{}, err
	}
	return attendance.SafeReport(), nil
}

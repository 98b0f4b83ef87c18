package dummyspreadsheet

import (
	"context"
	"sync"

	"github.com/smancaringin/presensi/core/attendance"
)

// Service is an in-process spreadsheet sink for dev and tests. Offline and
// FailNext are settable at runtime to exercise the capture retry path.
type Service struct {
	mu       sync.Mutex
	Offline  bool
	FailNext bool
	Rows     []attendance.Record
}

var _ attendance.RecordSyncer = (*Service)(nil)

func NewService() *Service {
	return &Service{}
}

func (svc *Service) Sync(ctx context.Context, rec attendance.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.Offline {
		return attendance.ErrOffline
	}
	if svc.FailNext {
		svc.FailNext = false
		return attendance.ErrSyncFailed
	}
	svc.Rows = append(svc.Rows, rec)
	return nil
}

// Committed returns a snapshot of the rows the sink accepted.
func (svc *Service) Committed() []attendance.Record {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]attendance.Record, len(svc.Rows))
	copy(out, svc.Rows)
	return out
}

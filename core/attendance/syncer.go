package attendance

import (
	"context"
	"errors"
)

var (
	// ErrOffline means no commit attempt was made: connectivity is known
	// absent or no sink is configured.
	ErrOffline = errors.New("sync: offline")
	// ErrSyncFailed is a transient sink failure; the caller decides whether
	// to retry. Never retried automatically.
	ErrSyncFailed = errors.New("sync: transient failure")
)

// RecordSyncer commits one record to the external spreadsheet sink.
// A nil return confirms the commit; only then may the record be appended to
// the authoritative log.
type RecordSyncer interface {
	Sync(ctx context.Context, rec Record) error
}

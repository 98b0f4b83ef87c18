package testutil

import (
	"testing"
	"time"

	"github.com/smancaringin/presensi/core/attendance"
)

// CreateRecord persists an attendance record for a test, failing the test on
// error.
func CreateRecord(
	t *testing.T,
	repo attendance.Repository,
	id, class, name string,
	status attendance.Status,
	ts time.Time,
) attendance.Record {
	t.Helper()
	rec, err := repo.CreateRecord(attendance.Record{
		ID:          id,
		StudentName: name,
		ClassID:     class,
		Timestamp:   ts.UTC(),
		Status:      status,
		Confidence:  0.95,
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}

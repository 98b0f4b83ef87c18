package inmemdb

import (
	"sync"

	"github.com/smancaringin/presensi/core/attendance"
)

// DB is the in-memory log used when no database is configured (single-school
// deployments run fine on the spreadsheet as the only durable store).
type DB struct {
	record *recordTable
}

type recordTable struct {
	mutex sync.RWMutex
	table map[string]*attendance.Record
	order []string // append order, for stable iteration
}

func NewDB() *DB {
	return &DB{
		record: &recordTable{table: make(map[string]*attendance.Record)},
	}
}

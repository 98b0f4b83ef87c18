package inmemdb

import (
	"time"

	"github.com/smancaringin/presensi/core/attendance"
)

type recordRepository struct {
	db  *recordTable
	loc *time.Location
}

var _ attendance.Repository = (*recordRepository)(nil)

func NewRecordRepository(db *DB, loc *time.Location) *recordRepository {
	return &recordRepository{db: db.record, loc: loc}
}

func (repo *recordRepository) query() []attendance.Record {
	records := make([]attendance.Record, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		records = append(records, *repo.db.table[id])
	}
	return records
}

// CreateRecord appends the record. Idempotent on ID: a re-commit of an
// already-appended record returns the stored copy unchanged.
func (repo *recordRepository) CreateRecord(rec attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if existing, ok := repo.db.table[rec.ID]; ok {
		return *existing, nil
	}
	repo.db.table[rec.ID] = &rec
	repo.db.order = append(repo.db.order, rec.ID)
	return rec, nil
}

func (repo *recordRepository) GetRecordByID(id string) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.table[id]; ok {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *recordRepository) QueryAllRecords() ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *recordRepository) FilterRecords(filter attendance.QueryFilter) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]attendance.Record, 0)
	for _, rec := range repo.query() {
		if filter.Match(rec, repo.loc) {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (repo *recordRepository) UpdateRecord(rec attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[rec.ID]; !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *recordRepository) DeleteRecordsByID(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		if _, ok := repo.db.table[id]; !ok {
			continue
		}
		delete(repo.db.table, id)
		for i, oid := range repo.db.order {
			if oid == id {
				repo.db.order = append(repo.db.order[:i], repo.db.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

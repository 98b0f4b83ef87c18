package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/smancaringin/presensi/core/attendance"
)

type recordRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

var _ attendance.Repository = (*recordRepository)(nil)

func NewRecordRepository(db *sql.DB, loc *time.Location) *recordRepository {
	return &recordRepository{db: sqlx.NewDb(db, "postgres"), loc: loc}
}

// dbRecord is the table row; a missing GPS reading is NULL, not 0,0.
type dbRecord struct {
	ID          string       `db:"id"`
	StudentName string       `db:"student_name"`
	ClassID     string       `db:"class_id"`
	Timestamp   time.Time    `db:"timestamp"`
	Status      string       `db:"status"`
	PhotoRef    string       `db:"photo_ref"`
	Lat         null.Float64 `db:"lat"`
	Lng         null.Float64 `db:"lng"`
	Note        string       `db:"note"`
	Confidence  float64      `db:"confidence"`
}

func toRow(rec attendance.Record) dbRecord {
	row := dbRecord{
		ID:          rec.ID,
		StudentName: rec.StudentName,
		ClassID:     rec.ClassID,
		Timestamp:   rec.Timestamp.UTC(),
		Status:      string(rec.Status),
		PhotoRef:    rec.PhotoRef,
		Note:        rec.Note,
		Confidence:  rec.Confidence,
	}
	if !rec.Location.Unknown() {
		row.Lat = null.Float64From(rec.Location.Lat)
		row.Lng = null.Float64From(rec.Location.Lng)
	}
	return row
}

func (row dbRecord) toRecord() attendance.Record {
	rec := attendance.Record{
		ID:          row.ID,
		StudentName: row.StudentName,
		ClassID:     row.ClassID,
		Timestamp:   row.Timestamp.UTC(),
		Status:      attendance.Status(row.Status),
		PhotoRef:    row.PhotoRef,
		Note:        row.Note,
		Confidence:  row.Confidence,
	}
	if row.Lat.Valid && row.Lng.Valid {
		rec.Location = attendance.Location{Lat: row.Lat.Float64, Lng: row.Lng.Float64}
	}
	return rec
}

func toRecords(rows []dbRecord) []attendance.Record {
	records := make([]attendance.Record, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}
	return records
}

// CreateRecord appends the record. ON CONFLICT DO NOTHING keeps re-commits of
// an already-appended record from duplicating it.
func (repo *recordRepository) CreateRecord(rec attendance.Record) (attendance.Record, error) {
	const q = `
	INSERT INTO attendance_record (id, student_name, class_id, timestamp, status, photo_ref, lat, lng, note, confidence)
	VALUES (:id, :student_name, :class_id, :timestamp, :status, :photo_ref, :lat, :lng, :note, :confidence)
	ON CONFLICT (id) DO NOTHING`

	if _, err := repo.db.NamedExec(q, toRow(rec)); err != nil {
		return attendance.Record{}, errors.Wrap(err, "sqlx.CreateRecord")
	}
	return repo.GetRecordByID(rec.ID)
}

func (repo *recordRepository) GetRecordByID(id string) (attendance.Record, error) {
	const q = `SELECT * FROM attendance_record WHERE id = $1`

	var row dbRecord
	if err := repo.db.Get(&row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "sqlx.GetRecordByID")
	}
	return row.toRecord(), nil
}

func (repo *recordRepository) QueryAllRecords() ([]attendance.Record, error) {
	const q = `SELECT * FROM attendance_record ORDER BY timestamp`

	var rows []dbRecord
	if err := repo.db.Select(&rows, q); err != nil {
		return nil, errors.Wrap(err, "sqlx.QueryAllRecords")
	}
	return toRecords(rows), nil
}

// FilterRecords pushes the exact predicates down to SQL; the typo-tolerant
// Search match stays in Go (QueryFilter.Match) since it needs the similarity
// ratio.
func (repo *recordRepository) FilterRecords(filter attendance.QueryFilter) ([]attendance.Record, error) {
	q := `SELECT * FROM attendance_record WHERE 1=1`
	args := map[string]interface{}{}
	if filter.ClassID != "" {
		q += ` AND class_id = :class_id`
		args["class_id"] = filter.ClassID
	}
	if filter.StudentName != "" {
		q += ` AND student_name = :student_name`
		args["student_name"] = filter.StudentName
	}
	q += ` ORDER BY timestamp`

	nstmt, err := repo.db.PrepareNamed(q)
	if err != nil {
		return nil, errors.Wrap(err, "sqlx.FilterRecords")
	}
	defer nstmt.Close()

	var rows []dbRecord
	if err := nstmt.Select(&rows, args); err != nil {
		return nil, errors.Wrap(err, "sqlx.FilterRecords")
	}

	records := make([]attendance.Record, 0, len(rows))
	for _, rec := range toRecords(rows) {
		if filter.Match(rec, repo.loc) {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (repo *recordRepository) UpdateRecord(rec attendance.Record) (attendance.Record, error) {
	const q = `
	UPDATE attendance_record
	SET student_name = :student_name, class_id = :class_id, timestamp = :timestamp, status = :status,
	    photo_ref = :photo_ref, lat = :lat, lng = :lng, note = :note, confidence = :confidence
	WHERE id = :id`

	res, err := repo.db.NamedExec(q, toRow(rec))
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "sqlx.UpdateRecord")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return repo.GetRecordByID(rec.ID)
}

func (repo *recordRepository) DeleteRecordsByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM attendance_record WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "sqlx.DeleteRecordsByID")
	}
	if _, err := repo.db.Exec(repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "sqlx.DeleteRecordsByID")
	}
	return nil
}

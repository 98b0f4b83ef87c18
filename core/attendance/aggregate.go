package attendance

import "time"

type windowKind int

const (
	windowDay windowKind = iota
	windowMonth
)

// Window is a time filter for aggregation: a single calendar day or a
// calendar month. Month windows match the month number in any year; the
// school rotates its log yearly and relies on that.
type Window struct {
	kind  windowKind
	year  int
	month time.Month
	day   int
}

// DayWindow matches records on the calendar day of t in the school timezone.
func DayWindow(t time.Time, loc *time.Location) Window {
	lt := t.In(loc)
	return Window{kind: windowDay, year: lt.Year(), month: lt.Month(), day: lt.Day()}
}

// MonthWindow matches records in the given month, regardless of year.
func MonthWindow(m time.Month) Window {
	return Window{kind: windowMonth, month: m}
}

func (w Window) Contains(t time.Time, loc *time.Location) bool {
	lt := t.In(loc)
	switch w.kind {
	case windowDay:
		return lt.Year() == w.year && lt.Month() == w.month && lt.Day() == w.day
	case windowMonth:
		return lt.Month() == w.month
	default:
		return false
	}
}

// ClassTally holds the attendance counters for one class (or the whole
// school) over a window. Derived, never persisted.
type ClassTally struct {
	ClassID    string `json:"className"`
	Present    int    `json:"present"`
	Sick       int    `json:"sick"`
	Permission int    `json:"permission"`
	Absent     int    `json:"absent"`
	Total      int    `json:"total"`
}

// Percent is the attendance rate: present / total * 100, rounded to the
// nearest integer; 0 when the class has no records.
func (t ClassTally) Percent() int {
	if t.Total == 0 {
		return 0
	}
	return int(float64(t.Present)/float64(t.Total)*100 + 0.5)
}

func (t *ClassTally) add(o ClassTally) {
	t.Present += o.Present
	t.Sick += o.Sick
	t.Permission += o.Permission
	t.Absent += o.Absent
	t.Total += o.Total
}

// AggregatePolicy tunes the roll-up rules.
type AggregatePolicy struct {
	// IncludeRejectedInTotal counts rejected records in Total (they never
	// count toward any status bucket). Default: excluded.
	IncludeRejectedInTotal bool
}

// Aggregate rolls the committed record set into per-class and school-wide
// tallies for a window.
//
// Pure function of its inputs: repeated calls yield identical output.
// Bucketing: present and late both count as present; absent and
// absent-by-photo both count as absent. Malformed records (unknown status,
// class not on roster) are skipped, never abort the aggregation. Classes
// are emitted in roster order, including classes with zero records.
func Aggregate(records []Record, w Window, roster Roster, loc *time.Location, pol AggregatePolicy) (perClass []ClassTally, school ClassTally) {
	ordered := roster.Ordered()

	tallies := make(map[string]*ClassTally, len(ordered))
	perClass = make([]ClassTally, len(ordered))
	for i, classID := range ordered {
		perClass[i] = ClassTally{ClassID: classID}
		tallies[classID] = &perClass[i]
	}

	for _, rec := range records {
		if !w.Contains(rec.Timestamp, loc) {
			continue
		}
		tally, ok := tallies[rec.ClassID]
		if !ok {
			continue
		}
		switch rec.Status {
		case StatusPresent, StatusLate:
			tally.Present++
		case StatusSick:
			tally.Sick++
		case StatusPermission:
			tally.Permission++
		case StatusAbsent, StatusAbsentByPhoto:
			tally.Absent++
		case StatusRejected:
			if pol.IncludeRejectedInTotal {
				tally.Total++
			}
			continue
		default:
			continue
		}
		tally.Total++
	}

	school = ClassTally{ClassID: "TOTAL"}
	for i := range perClass {
		school.add(perClass[i])
	}
	return perClass, school
}

package attendance

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// csvHeader matches the spreadsheet template the school uses; the four (V)
// columns are binary indicators so the exported file splits per status.
var csvHeader = []string{
	"NO",
	"KELAS",
	"NAMA LENGKAP",
	"TANGGAL",
	"JAM",
	"STATUS UTAMA",
	"HADIR (V)",
	"SAKIT (V)",
	"IZIN (V)",
	"ALFA (V)",
	"CATATAN AI",
	"SKOR VALIDASI",
}

// ExportCSV writes the records as a UTF-8 CSV with byte-order mark, one row
// per record, sorted by class then student name. Free-text fields are
// double-quoted with internal quotes doubled.
func ExportCSV(w io.Writer, records []Record, loc *time.Location) error {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ClassID != sorted[j].ClassID {
			return sorted[i].ClassID < sorted[j].ClassID
		}
		return sorted[i].StudentName < sorted[j].StudentName
	})

	var b strings.Builder
	b.WriteString("\uFEFF")
	b.WriteString(strings.Join(csvHeader, ","))

	for i, rec := range sorted {
		lt := rec.Timestamp.In(loc)
		cols := []string{
			fmt.Sprintf("%d", i+1),
			rec.ClassID,
			quoteCSV(rec.StudentName),
			lt.Format("02/01/2006"),
			lt.Format("15:04:05"),
			string(rec.Status),
			indicator(rec.Status == StatusPresent || rec.Status == StatusLate),
			indicator(rec.Status == StatusSick),
			indicator(rec.Status == StatusPermission),
			indicator(rec.Status == StatusAbsent || rec.Status == StatusAbsentByPhoto || rec.Status == StatusRejected),
			quoteCSV(strings.ReplaceAll(rec.Note, "\n", " ")),
			fmt.Sprintf("%d%%", int(rec.Confidence*100+0.5)),
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cols, ","))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func indicator(set bool) string {
	if set {
		return "V"
	}
	return ""
}

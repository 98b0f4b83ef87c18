package spreadsheetsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/smancaringin/presensi/core"
	"github.com/smancaringin/presensi/core/attendance"
)

// Service commits records to the school spreadsheet via an Apps Script
// webhook. The spreadsheet is the sink of record: the authoritative log only
// grows after this service confirms the commit.
type Service struct {
	webhookURL string
	loc        *time.Location
	client     *http.Client
	logger     core.Logger
}

var _ attendance.RecordSyncer = (*Service)(nil)

func NewService(conf *core.Config, logger core.Logger) *Service {
	return &Service{
		webhookURL: conf.Spreadsheet.WebhookURL,
		loc:        conf.Location(),
		client:     &http.Client{Timeout: conf.Spreadsheet.Timeout},
		logger:     logger,
	}
}

// row matches the column layout of the school's spreadsheet template.
type row struct {
	SystemID   string `json:"NO_INDUK_SISTEM"`
	ClassID    string `json:"KELAS"`
	Name       string `json:"NAMA_LENGKAP"`
	Date       string `json:"TANGGAL"`
	TimeIn     string `json:"WAKTU_MASUK"`
	Status     string `json:"STATUS_KEHADIRAN"`
	Note       string `json:"CATATAN_AI"`
	GPS        string `json:"KOORDINAT_GPS"`
	Confidence string `json:"SKOR_VALIDASI"`
}

func (svc *Service) Sync(ctx context.Context, rec attendance.Record) error {
	if svc.webhookURL == "" {
		return attendance.ErrOffline
	}

	lt := rec.Timestamp.In(svc.loc)
	body, err := json.Marshal(row{
		SystemID:   rec.ID,
		ClassID:    rec.ClassID,
		Name:       rec.StudentName,
		Date:       lt.Format("02/01/2006"),
		TimeIn:     lt.Format("15:04:05"),
		Status:     string(rec.Status),
		Note:       rec.Note,
		GPS:        fmt.Sprintf("%v, %v", rec.Location.Lat, rec.Location.Lng),
		Confidence: fmt.Sprintf("%d%%", int(rec.Confidence*100+0.5)),
	})
	if err != nil {
		return errors.Wrap(err, "spreadsheet.Marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.webhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "spreadsheet.NewRequest")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := svc.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		svc.logger.Warn(fmt.Sprintf("spreadsheet: sink unreachable: %v", err))
		return attendance.ErrOffline
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		svc.logger.Warn(fmt.Sprintf("spreadsheet: sink refused record %s: status %d", rec.ID, res.StatusCode))
		return errors.Wrapf(attendance.ErrSyncFailed, "status %d", res.StatusCode)
	}
	return nil
}

package geminisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/smancaringin/presensi/core"
	"github.com/smancaringin/presensi/core/attendance"
)

const backoffFactor = 1.5

type (
	// Service is the Gemini gateway. It owns the retry budget and the
	// fallback policy: the capture path never sees an upstream failure.
	Service struct {
		conf   core.GeminiConfig
		cutoff attendance.Cutoff
		loc    *time.Location
		client *http.Client
		logger core.Logger

		sleep func(ctx context.Context, d time.Duration) error // mockable
	}

	// verdict is the structured JSON the model is instructed to emit for a
	// capture photo.
	verdict struct {
		IsValid         bool    `json:"isValid"`
		Status          string  `json:"status"`
		ConfidenceScore float64 `json:"confidenceScore"`
		Reason          string  `json:"reason"`
		AIInsight       string  `json:"aiInsight"`
	}

	generateRequest struct {
		Contents         []content         `json:"contents"`
		GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	part struct {
		Text       string      `json:"text,omitempty"`
		InlineData *inlineData `json:"inlineData,omitempty"`
	}
	inlineData struct {
		MimeType string `json:"mimeType"`
		Data     string `json:"data"`
	}
	generationConfig struct {
		ResponseMimeType string `json:"responseMimeType,omitempty"`
	}

	generateResponse struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Code    int    `json:"code"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

var _ attendance.Classifier = (*Service)(nil)

func NewService(conf *core.Config, logger core.Logger) *Service {
	cutoff, err := attendance.ParseCutoff(conf.LatenessCutoff)
	if err != nil {
		cutoff = attendance.DefaultCutoff
	}
	return &Service{
		conf:   conf.Gemini,
		cutoff: cutoff,
		loc:    conf.Location(),
		client: &http.Client{},
		logger: logger,
		sleep:  sleep,
	}
}

// Classify sends the capture photo to the flash model and maps its verdict to
// a Classification. Any failure that survives the retry budget degrades to the
// local lateness fallback; the only error returned is the caller's context
// error.
func (svc *Service) Classify(ctx context.Context, photo string, loc attendance.Location, ts time.Time) (attendance.Classification, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{
			{InlineData: &inlineData{MimeType: "image/jpeg", Data: photo}},
			{Text: classifyPrompt(loc, ts.In(svc.loc))},
		}}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}

	raw, err := svc.callWithRetry(ctx, svc.conf.FlashModel, req)
	if err != nil {
		if ctx.Err() != nil {
			return attendance.Classification{}, ctx.Err()
		}
		svc.logger.Warn(fmt.Sprintf("gemini: classification degraded to fallback: %v", err))
		return attendance.Fallback(ts, svc.cutoff, svc.loc), nil
	}

	var v verdict
	if err := json.Unmarshal(stripFences(raw), &v); err != nil {
		svc.logger.Warn(fmt.Sprintf("gemini: unparseable verdict: %v", err))
		return attendance.Fallback(ts, svc.cutoff, svc.loc), nil
	}
	return svc.mapVerdict(v, ts), nil
}

func (svc *Service) mapVerdict(v verdict, ts time.Time) attendance.Classification {
	if v.ConfidenceScore < 0 || v.ConfidenceScore > 1 {
		return attendance.Fallback(ts, svc.cutoff, svc.loc)
	}
	note := v.AIInsight
	if note == "" {
		note = v.Reason
	}
	if !v.IsValid {
		return attendance.Classification{
			Status:     attendance.StatusRejected,
			Confidence: v.ConfidenceScore,
			Note:       note,
		}
	}
	status := attendance.Status(v.Status)
	if !status.Valid() {
		status = attendance.StatusPresent
	}
	return attendance.Classification{
		Status:     status,
		Confidence: v.ConfidenceScore,
		Note:       note,
	}
}

// Summarize asks the pro model for a behavioral report over the whole record
// set. Failure degrades to SafeReport, never an error, except for the
// caller's context error.
func (svc *Service) Summarize(ctx context.Context, records []attendance.Record) (attendance.Report, error) {
	req := generateRequest{
		Contents:         []content{{Parts: []part{{Text: summarizePrompt(records, svc.loc)}}}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}

	raw, err := svc.callWithRetry(ctx, svc.conf.ProModel, req)
	if err != nil {
		if ctx.Err() != nil {
			return attendance.Report{}, ctx.Err()
		}
		svc.logger.Warn(fmt.Sprintf("gemini: report degraded to safe default: %v", err))
		return attendance.SafeReport(), nil
	}

	var report attendance.Report
	if err := json.Unmarshal(stripFences(raw), &report); err != nil {
		svc.logger.Warn(fmt.Sprintf("gemini: unparseable report: %v", err))
		return attendance.SafeReport(), nil
	}
	if report.Summary == "" {
		return attendance.SafeReport(), nil
	}
	if report.AtRiskStudents == nil {
		report.AtRiskStudents = []string{}
	}
	return report, nil
}

// callWithRetry runs up to MaxRetries+1 attempts. Only rate limiting is
// retried, with RetryDelay growing by backoffFactor between attempts; any
// other failure aborts immediately.
func (svc *Service) callWithRetry(ctx context.Context, model string, req generateRequest) (string, error) {
	delay := svc.conf.RetryDelay
	var err error
	for attempt := 0; attempt <= svc.conf.MaxRetries; attempt++ {
		if attempt > 0 {
			if serr := svc.sleep(ctx, delay); serr != nil {
				return "", serr
			}
			delay = time.Duration(float64(delay) * backoffFactor)
		}

		var raw string
		raw, err = svc.call(ctx, model, req)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, attendance.ErrRateLimited) {
			return "", err
		}
	}
	return "", err
}

func (svc *Service) call(ctx context.Context, model string, req generateRequest) (string, error) {
	if svc.conf.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.conf.AttemptTimeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "gemini.Marshal")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", svc.conf.BaseURL, model, svc.conf.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "gemini.NewRequest")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := svc.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Wrapf(attendance.ErrServiceError, "gemini.Do: %v", err)
	}
	defer res.Body.Close()

	var gres generateResponse
	if err := json.NewDecoder(res.Body).Decode(&gres); err != nil && res.StatusCode == http.StatusOK {
		return "", errors.Wrapf(attendance.ErrServiceError, "gemini.Decode: %v", err)
	}

	if res.StatusCode == http.StatusTooManyRequests || (gres.Error != nil && gres.Error.Status == "RESOURCE_EXHAUSTED") {
		return "", attendance.ErrRateLimited
	}
	if res.StatusCode != http.StatusOK {
		return "", errors.Wrapf(attendance.ErrServiceError, "gemini: status %d", res.StatusCode)
	}
	if len(gres.Candidates) == 0 || len(gres.Candidates[0].Content.Parts) == 0 {
		return "", errors.Wrap(attendance.ErrServiceError, "gemini: empty response")
	}
	return gres.Candidates[0].Content.Parts[0].Text, nil
}

func classifyPrompt(loc attendance.Location, ts time.Time) string {
	var b strings.Builder
	b.WriteString("Anda adalah sistem verifikasi presensi sekolah. Periksa foto selfie siswa ini.\n")
	b.WriteString("Tolak foto yang buram, gelap, bukan wajah manusia, atau jelas difoto dari layar lain.\n")
	fmt.Fprintf(&b, "Waktu presensi: %s WIB.\n", ts.Format("2006-01-02 15:04:05"))
	if !loc.Unknown() {
		fmt.Fprintf(&b, "Lokasi GPS: %.6f, %.6f.\n", loc.Lat, loc.Lng)
	}
	b.WriteString(`Jawab HANYA dengan JSON: {"isValid": bool, "status": "HADIR", "confidenceScore": 0.0-1.0, "reason": string, "aiInsight": string}`)
	return b.String()
}

func summarizePrompt(records []attendance.Record, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("Anda adalah analis kehadiran sekolah. Berikut log presensi (kelas;nama;tanggal;status):\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "%s;%s;%s;%s\n", rec.ClassID, rec.StudentName, rec.Timestamp.In(loc).Format("2006-01-02"), rec.Status)
	}
	b.WriteString("\nBuat laporan perilaku kehadiran dalam Bahasa Indonesia.\n")
	b.WriteString(`Jawab HANYA dengan JSON: {"summary": string, "atRiskStudents": [string], "trend": "membaik"|"stabil"|"menurun", "recommendations": [string]}`)
	return b.String()
}

// stripFences removes a markdown code fence the model sometimes wraps its
// JSON in despite the response mime type.
func stripFences(raw string) []byte {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return []byte(strings.TrimSpace(s))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/export"
	"github.com/andesedu/cursos-api/pkg/jobs"
	"github.com/andesedu/cursos-api/pkg/storage"
)

type reportFetcher interface {
	FetchRecords(ctx context.Context, filter models.ReportFilter) ([]models.ReportRecord, error)
}

type exportStore interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

// Export formats accepted by RequestExport.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type exportPayload struct {
	ExportID string
	Format   string
	Filter   models.ReportFilter
}

// ReportService aggregates inscriptions with their dependent entities into
// administrative reports. Generated reports are cached in Redis for a short
// TTL; exports render asynchronously on a worker queue and are fetched
// through signed URLs.
type ReportService struct {
	repo   reportFetcher
	cache  *redis.Client
	store  exportStore
	signer *storage.SignedURLSigner
	queue  *jobs.Queue
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.RWMutex
	exports map[string]*models.ReportExport
}

// NewReportService constructs a ReportService. The cache client may be nil,
// in which case every report is computed from the database.
func NewReportService(repo reportFetcher, cache *redis.Client, store exportStore, signer *storage.SignedURLSigner, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReportService{
		repo:    repo,
		cache:   cache,
		store:   store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		ttl:     cacheTTL,
		logger:  logger,
		exports: make(map[string]*models.ReportExport),
	}
}

// AttachQueue wires the worker queue that renders exports. The queue calls
// back into HandleExportJob.
func (s *ReportService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// Generate builds a report for the filtered inscription set. Equal filters
// within the cache TTL are served from Redis.
func (s *ReportService) Generate(ctx context.Context, filter models.ReportFilter) (*models.Report, error) {
	key := cacheKey(filter)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var report models.Report
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				return &report, nil
			}
			// stale or corrupt entry, fall through and rebuild
			s.cache.Del(ctx, key)
		} else if err != redis.Nil {
			s.logger.Warn("report cache read failed", zap.Error(err))
		}
	}

	records, err := s.repo.FetchRecords(ctx, filter)
	if err != nil {
		return nil, appErrors.Internalf(err, "failed to aggregate report records")
	}
	report := &models.Report{
		Records:     records,
		Summary:     summarize(records),
		GeneratedAt: time.Now().UTC(),
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
				s.logger.Warn("report cache write failed", zap.Error(err))
			}
		}
	}
	return report, nil
}

// RequestExport registers an asynchronous export job and returns its
// tracking record immediately.
func (s *ReportService) RequestExport(ctx context.Context, filter models.ReportFilter, format string) (*models.ReportExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue is not running")
	}

	exp := &models.ReportExport{
		ID:          uuid.NewString(),
		Format:      format,
		Status:      models.ReportExportPending,
		RequestedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.exports[exp.ID] = exp
	s.mu.Unlock()

	job := jobs.Job{
		ID:      exp.ID,
		Type:    "report_export",
		Payload: exportPayload{ExportID: exp.ID, Format: format, Filter: filter},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.markFailed(exp.ID, err)
		return nil, appErrors.Internalf(err, "failed to enqueue export")
	}
	return s.snapshot(exp.ID), nil
}

// GetExport returns the tracking record of an export job.
func (s *ReportService) GetExport(ctx context.Context, id string) (*models.ReportExport, error) {
	if exp := s.snapshot(id); exp != nil {
		return exp, nil
	}
	return nil, appErrors.NotFoundf("export", id)
}

// ResolveDownload validates a signed token and returns the absolute path of
// the export file it references.
func (s *ReportService) ResolveDownload(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return s.store.Path(relPath), nil
}

// HandleExportJob renders one export. It runs on the worker queue; returning
// an error lets the queue retry with backoff.
func (s *ReportService) HandleExportJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportPayload)
	if !ok {
		s.logger.Error("export job carries unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	report, err := s.Generate(ctx, payload.Filter)
	if err != nil {
		s.markFailed(payload.ExportID, err)
		return err
	}
	dataset := buildDataset(report)

	var rendered []byte
	switch payload.Format {
	case ExportFormatPDF:
		rendered, err = s.pdf.Render(dataset, "Inscription Report")
	default:
		rendered, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.markFailed(payload.ExportID, err)
		return err
	}

	relPath := fmt.Sprintf("reports/%s.%s", payload.ExportID, payload.Format)
	if _, err := s.store.Save(relPath, rendered); err != nil {
		s.markFailed(payload.ExportID, err)
		return err
	}
	token, _, err := s.signer.Generate(payload.ExportID, relPath)
	if err != nil {
		s.markFailed(payload.ExportID, err)
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if exp, ok := s.exports[payload.ExportID]; ok {
		exp.Status = models.ReportExportReady
		exp.FilePath = relPath
		exp.DownloadURL = fmt.Sprintf("/reports/exports/download?token=%s", token)
		exp.Error = ""
		exp.CompletedAt = &now
	}
	s.mu.Unlock()
	return nil
}

func (s *ReportService) markFailed(id string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp, ok := s.exports[id]; ok {
		exp.Status = models.ReportExportFailed
		exp.Error = cause.Error()
	}
}

func (s *ReportService) snapshot(id string) *models.ReportExport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.exports[id]
	if !ok {
		return nil
	}
	clone := *exp
	return &clone
}

// summarize folds the record set into aggregate figures. Monetary sums use
// decimal arithmetic so verified amounts never drift.
func summarize(records []models.ReportRecord) models.ReportSummary {
	summary := models.ReportSummary{
		TotalRecords:   len(records),
		CountByCourse:  make(map[int64]int),
		VerifiedAmount: decimal.Zero,
	}
	for _, record := range records {
		summary.CountByCourse[record.Course.ID]++
		if record.Invoice != nil && record.Invoice.PaymentVerified {
			summary.VerifiedCount++
			summary.VerifiedAmount = summary.VerifiedAmount.Add(record.Invoice.AmountPaid)
		}
	}
	return summary
}

func buildDataset(report *models.Report) export.Dataset {
	headers := []string{"ID", "Course", "Short Code", "Person", "Email", "Billing", "Status", "Payment Verified", "Amount Paid", "Created At"}
	rows := make([]map[string]string, 0, len(report.Records))
	for _, record := range report.Records {
		verified := "no"
		amount := ""
		if record.Invoice != nil {
			amount = record.Invoice.AmountPaid.StringFixed(2)
			if record.Invoice.PaymentVerified {
				verified = "yes"
			}
		}
		rows = append(rows, map[string]string{
			"ID":               strconv.FormatInt(record.Inscription.ID, 10),
			"Course":           record.Course.Name,
			"Short Code":       record.Course.ShortCode,
			"Person":           record.Person.FullName,
			"Email":            record.Person.Email,
			"Billing":          record.Billing.LegalName,
			"Status":           string(record.Inscription.DerivedStatus),
			"Payment Verified": verified,
			"Amount Paid":      amount,
			"Created At":       record.Inscription.CreatedAt.Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Headers: headers,
		Rows:    rows,
		Summary: []export.SummaryLine{
			{Label: "Total records", Value: strconv.Itoa(report.Summary.TotalRecords)},
			{Label: "Verified payments", Value: strconv.Itoa(report.Summary.VerifiedCount)},
			{Label: "Verified amount", Value: report.Summary.VerifiedAmount.StringFixed(2)},
		},
	}
}

func cacheKey(filter models.ReportFilter) string {
	var b strings.Builder
	b.WriteString("reports:v1")
	if filter.CourseID != nil {
		fmt.Fprintf(&b, ":course=%d", *filter.CourseID)
	}
	if filter.From != nil {
		fmt.Fprintf(&b, ":from=%d", filter.From.Unix())
	}
	if filter.To != nil {
		fmt.Fprintf(&b, ":to=%d", filter.To.Unix())
	}
	if filter.Verified != nil {
		fmt.Fprintf(&b, ":verified=%t", *filter.Verified)
	}
	if filter.Enrolled != nil {
		fmt.Fprintf(&b, ":enrolled=%t", *filter.Enrolled)
	}
	return b.String()
}

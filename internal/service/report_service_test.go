package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/jobs"
	"github.com/andesedu/cursos-api/pkg/storage"
)

type mockReportFetcher struct {
	records []models.ReportRecord
	calls   int
}

func (m *mockReportFetcher) FetchRecords(ctx context.Context, filter models.ReportFilter) ([]models.ReportRecord, error) {
	m.calls++
	return m.records, nil
}

func reportRecords() []models.ReportRecord {
	course := models.Course{ID: 1, Name: "Go Basics", ShortCode: "GO-101"}
	person := models.Person{ID: 10, FullName: "Ada", Email: "ada@example.com"}
	billing := models.BillingProfile{ID: 20, PersonID: 10, LegalName: "Ada Ltd"}
	detail := func(id int64, enrolled bool) models.InscriptionDetail {
		return models.InscriptionDetail{
			Inscription:   models.Inscription{ID: id, CourseID: 1, PersonID: 10, Enrolled: enrolled, CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
			DerivedStatus: models.StatusOf(enrolled),
		}
	}
	return []models.ReportRecord{
		{
			Inscription: detail(1, true),
			Course:      course, Person: person, Billing: billing,
			Invoice: &models.Invoice{ID: 1, InscriptionID: 1, AmountPaid: decimal.RequireFromString("100.50"), PaymentVerified: true},
		},
		{
			Inscription: detail(2, true),
			Course:      course, Person: person, Billing: billing,
			Invoice: &models.Invoice{ID: 2, InscriptionID: 2, AmountPaid: decimal.RequireFromString("49.50"), PaymentVerified: true},
		},
		{
			Inscription: detail(3, false),
			Course:      course, Person: person, Billing: billing,
		},
	}
}

func newReportService(t *testing.T, fetcher *mockReportFetcher) *ReportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewReportService(fetcher, nil, store, signer, time.Minute, zap.NewNop())
}

func TestReportGenerateSummarizes(t *testing.T) {
	fetcher := &mockReportFetcher{records: reportRecords()}
	svc := newReportService(t, fetcher)

	report, err := svc.Generate(context.Background(), models.ReportFilter{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Summary.TotalRecords)
	assert.Equal(t, 2, report.Summary.VerifiedCount)
	assert.True(t, report.Summary.VerifiedAmount.Equal(decimal.RequireFromString("150.00")),
		"verified amount %s", report.Summary.VerifiedAmount)
	assert.Equal(t, 3, report.Summary.CountByCourse[1])
}

func TestReportGenerateWithoutCacheHitsRepoEveryTime(t *testing.T) {
	fetcher := &mockReportFetcher{records: reportRecords()}
	svc := newReportService(t, fetcher)

	_, err := svc.Generate(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestReportDatasetRows(t *testing.T) {
	fetcher := &mockReportFetcher{records: reportRecords()}
	svc := newReportService(t, fetcher)

	report, err := svc.Generate(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	dataset := buildDataset(report)

	require.Len(t, dataset.Rows, 3)
	assert.Equal(t, "ENROLLED", dataset.Rows[0]["Status"])
	assert.Equal(t, "yes", dataset.Rows[0]["Payment Verified"])
	assert.Equal(t, "100.50", dataset.Rows[0]["Amount Paid"])
	assert.Equal(t, "no", dataset.Rows[2]["Payment Verified"])
	assert.Equal(t, "", dataset.Rows[2]["Amount Paid"])
	require.Len(t, dataset.Summary, 3)
	assert.Equal(t, "150.00", dataset.Summary[2].Value)
}

func TestReportRequestExportRejectsUnknownFormat(t *testing.T) {
	svc := newReportService(t, &mockReportFetcher{})

	_, err := svc.RequestExport(context.Background(), models.ReportFilter{}, "xlsx")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestReportRequestExportWithoutQueue(t *testing.T) {
	svc := newReportService(t, &mockReportFetcher{})

	_, err := svc.RequestExport(context.Background(), models.ReportFilter{}, ExportFormatCSV)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestReportExportLifecycle(t *testing.T) {
	fetcher := &mockReportFetcher{records: reportRecords()}
	svc := newReportService(t, fetcher)

	queue := jobs.NewQueue("report-exports-test", svc.HandleExportJob, jobs.QueueConfig{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Stop()
	svc.AttachQueue(queue)

	exp, err := svc.RequestExport(context.Background(), models.ReportFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, models.ReportExportPending, exp.Status)

	require.Eventually(t, func() bool {
		current, err := svc.GetExport(context.Background(), exp.ID)
		return err == nil && current.Status == models.ReportExportReady
	}, 5*time.Second, 10*time.Millisecond)

	ready, err := svc.GetExport(context.Background(), exp.ID)
	require.NoError(t, err)
	require.NotEmpty(t, ready.DownloadURL)
	require.NotNil(t, ready.CompletedAt)

	token := strings.TrimPrefix(ready.DownloadURL, "/reports/exports/download?token=")
	path, err := svc.ResolveDownload(token)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "GO-101")
	assert.Contains(t, string(content), "Verified amount,150.00")
}

func TestReportGetExportUnknown(t *testing.T) {
	svc := newReportService(t, &mockReportFetcher{})

	_, err := svc.GetExport(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestReportResolveDownloadRejectsBadToken(t *testing.T) {
	svc := newReportService(t, &mockReportFetcher{})

	_, err := svc.ResolveDownload("not.a.valid.token")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

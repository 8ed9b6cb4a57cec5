package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportFilter selects the inscription set an administrative report covers.
type ReportFilter struct {
	CourseID *int64
	From     *time.Time
	To       *time.Time
	Verified *bool
	Enrolled *bool
}

// ReportRecord is one inscription enriched with its dependent entities.
type ReportRecord struct {
	Inscription InscriptionDetail `json:"inscription"`
	Course      Course            `json:"course"`
	Person      Person            `json:"person"`
	Billing     BillingProfile    `json:"billing"`
	Invoice     *Invoice          `json:"invoice,omitempty"`
}

// ReportSummary aggregates the filtered set. Monetary sums use exact decimal
// arithmetic.
type ReportSummary struct {
	TotalRecords   int             `json:"total_records"`
	CountByCourse  map[int64]int   `json:"count_by_course"`
	VerifiedAmount decimal.Decimal `json:"verified_amount"`
	VerifiedCount  int             `json:"verified_count"`
}

// Report is the aggregator's structured result handed to renderers.
type Report struct {
	Records     []ReportRecord `json:"records"`
	Summary     ReportSummary  `json:"summary"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// ReportExportStatus tracks asynchronous export jobs.
type ReportExportStatus string

// Export job states.
const (
	ReportExportPending ReportExportStatus = "PENDING"
	ReportExportReady   ReportExportStatus = "READY"
	ReportExportFailed  ReportExportStatus = "FAILED"
)

// ReportExport describes an async export request and its outcome.
type ReportExport struct {
	ID          string             `json:"id"`
	Format      string             `json:"format"`
	Status      ReportExportStatus `json:"status"`
	FilePath    string             `json:"-"`
	DownloadURL string             `json:"download_url,omitempty"`
	Error       string             `json:"error,omitempty"`
	RequestedAt time.Time          `json:"requested_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/andesedu/cursos-api/internal/models"
)

// ReportRepository reads committed inscription state for aggregation. It
// never mutates anything.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// reportRow flattens one inscription with every dependent entity for a
// single scan; invoice columns are nullable because an inscription may not
// have been invoiced yet.
type reportRow struct {
	InscriptionID int64     `db:"inscription_id"`
	Enrolled      bool      `db:"enrolled"`
	CreatedAt     time.Time `db:"created_at"`
	DiscountID    *int64    `db:"discount_id"`

	CourseID        int64           `db:"course_id"`
	CourseName      string          `db:"course_name"`
	CourseShortCode string          `db:"course_short_code"`
	CourseModality  string          `db:"course_modality"`
	CoursePrice     decimal.Decimal `db:"course_price"`
	CourseStart     time.Time       `db:"course_start"`
	CourseEnd       time.Time       `db:"course_end"`

	PersonID             int64  `db:"person_id"`
	PersonIdentification string `db:"person_identification"`
	PersonName           string `db:"person_name"`
	PersonEmail          string `db:"person_email"`
	PersonCountry        string `db:"person_country"`

	BillingID   int64  `db:"billing_id"`
	BillingName string `db:"billing_name"`
	BillingTax  string `db:"billing_tax_id"`

	VoucherID       int64  `db:"voucher_id"`
	VoucherFilename string `db:"voucher_filename"`

	InvoiceID       *int64           `db:"invoice_id"`
	AmountPaid      *decimal.Decimal `db:"amount_paid"`
	PaymentVerified *bool            `db:"payment_verified"`
	IncomeNumber    *string          `db:"income_number"`
	InvoiceNumber   *string          `db:"invoice_number"`
}

// FetchRecords returns every inscription matching the filter, enriched with
// course, person, billing, voucher and invoice data, ordered by creation.
func (r *ReportRepository) FetchRecords(ctx context.Context, filter models.ReportFilter) ([]models.ReportRecord, error) {
	var conditions []string
	var args []interface{}

	if filter.CourseID != nil {
		conditions = append(conditions, fmt.Sprintf("i.course_id = $%d", len(args)+1))
		args = append(args, *filter.CourseID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("i.created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("i.created_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("COALESCE(inv.payment_verified, FALSE) = $%d", len(args)+1))
		args = append(args, *filter.Verified)
	}
	if filter.Enrolled != nil {
		conditions = append(conditions, fmt.Sprintf("i.enrolled = $%d", len(args)+1))
		args = append(args, *filter.Enrolled)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT i.id AS inscription_id, i.enrolled, i.created_at, i.discount_id,
        c.id AS course_id, c.name AS course_name, c.short_code AS course_short_code, c.modality AS course_modality,
        c.price AS course_price, c.start_date AS course_start, c.end_date AS course_end,
        p.id AS person_id, p.identification AS person_identification, p.full_name AS person_name,
        p.email AS person_email, p.country AS person_country,
        b.id AS billing_id, b.legal_name AS billing_name, b.tax_id AS billing_tax_id,
        v.id AS voucher_id, v.original_filename AS voucher_filename,
        inv.id AS invoice_id, inv.amount_paid, inv.payment_verified, inv.income_number, inv.invoice_number
        FROM inscriptions i
        JOIN courses c ON c.id = i.course_id
        JOIN persons p ON p.id = i.person_id
        JOIN billing_profiles b ON b.id = i.billing_id
        JOIN vouchers v ON v.id = i.voucher_id
        LEFT JOIN invoices inv ON inv.inscription_id = i.id` + clause + " ORDER BY i.created_at ASC"

	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("fetch report records: %w", err)
	}

	records := make([]models.ReportRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, assembleRecord(row))
	}
	return records, nil
}

func assembleRecord(row reportRow) models.ReportRecord {
	record := models.ReportRecord{
		Inscription: models.InscriptionDetail{
			Inscription: models.Inscription{
				ID:         row.InscriptionID,
				CourseID:   row.CourseID,
				PersonID:   row.PersonID,
				BillingID:  row.BillingID,
				VoucherID:  row.VoucherID,
				DiscountID: row.DiscountID,
				Enrolled:   row.Enrolled,
				CreatedAt:  row.CreatedAt,
			},
			DerivedStatus:   models.StatusOf(row.Enrolled),
			CourseName:      row.CourseName,
			CourseShortCode: row.CourseShortCode,
			PersonName:      row.PersonName,
			PersonEmail:     row.PersonEmail,
			BillingName:     row.BillingName,
			VoucherFilename: row.VoucherFilename,
		},
		Course: models.Course{
			ID:        row.CourseID,
			Name:      row.CourseName,
			ShortCode: row.CourseShortCode,
			Modality:  models.CourseModality(row.CourseModality),
			Price:     row.CoursePrice,
			StartDate: row.CourseStart,
			EndDate:   row.CourseEnd,
		},
		Person: models.Person{
			ID:             row.PersonID,
			Identification: row.PersonIdentification,
			FullName:       row.PersonName,
			Email:          row.PersonEmail,
			Country:        row.PersonCountry,
		},
		Billing: models.BillingProfile{
			ID:        row.BillingID,
			PersonID:  row.PersonID,
			LegalName: row.BillingName,
			TaxID:     row.BillingTax,
		},
	}
	if row.InvoiceID != nil {
		invoice := models.Invoice{
			ID:            *row.InvoiceID,
			InscriptionID: row.InscriptionID,
			BillingID:     row.BillingID,
		}
		if row.AmountPaid != nil {
			invoice.AmountPaid = *row.AmountPaid
		}
		if row.PaymentVerified != nil {
			invoice.PaymentVerified = *row.PaymentVerified
		}
		if row.IncomeNumber != nil {
			invoice.IncomeNumber = *row.IncomeNumber
		}
		if row.InvoiceNumber != nil {
			invoice.InvoiceNumber = *row.InvoiceNumber
		}
		record.Invoice = &invoice
	}
	return record
}

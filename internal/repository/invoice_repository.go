package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/pkg/database"
)

// InvoiceRepository handles persistence of invoices.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs the repository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, inscription_id, billing_id, amount_paid, payment_verified, income_number, invoice_number, created_at, updated_at`

// Unique constraint names on the invoices table, used to translate
// store-level rejections into field-specific conflicts.
const (
	constraintInvoiceInscription = "invoices_inscription_id_key"
	constraintInvoiceNumber      = "invoices_invoice_number_key"
	constraintIncomeNumber       = "invoices_income_number_key"
)

// translateUnique maps a unique-violation into the typed duplicate error the
// conflict rules expect, or returns err unchanged.
func (r *InvoiceRepository) translateUnique(err error, invoice *models.Invoice) error {
	constraint, ok := database.ViolatedConstraint(err)
	if !ok {
		return err
	}
	switch constraint {
	case constraintInvoiceInscription:
		return &DuplicateInvoiceError{InscriptionID: invoice.InscriptionID}
	case constraintInvoiceNumber:
		return &DuplicateNumberError{Field: "invoice number", Value: invoice.InvoiceNumber}
	case constraintIncomeNumber:
		return &DuplicateNumberError{Field: "income number", Value: invoice.IncomeNumber}
	default:
		return err
	}
}

// Create persists a new invoice inside one transaction: duplicate checks and
// the insert run atomically, with the unique indexes as the final backstop.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin invoice transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.GetContext(ctx, &exists, "SELECT 1 FROM invoices WHERE inscription_id = $1 LIMIT 1", invoice.InscriptionID)
	if err == nil {
		return &DuplicateInvoiceError{InscriptionID: invoice.InscriptionID}
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check invoice per inscription: %w", err)
	}

	// Unassigned numbers are stored as empty strings and stay exempt from
	// uniqueness; the partial unique indexes skip them the same way.
	if invoice.InvoiceNumber != "" {
		err = tx.GetContext(ctx, &exists, "SELECT 1 FROM invoices WHERE invoice_number = $1 LIMIT 1", invoice.InvoiceNumber)
		if err == nil {
			return &DuplicateNumberError{Field: "invoice number", Value: invoice.InvoiceNumber}
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check invoice number: %w", err)
		}
	}

	if invoice.IncomeNumber != "" {
		err = tx.GetContext(ctx, &exists, "SELECT 1 FROM invoices WHERE income_number = $1 LIMIT 1", invoice.IncomeNumber)
		if err == nil {
			return &DuplicateNumberError{Field: "income number", Value: invoice.IncomeNumber}
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check income number: %w", err)
		}
	}

	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	invoice.PaymentVerified = false

	const insertQuery = `INSERT INTO invoices (inscription_id, billing_id, amount_paid, payment_verified, income_number, invoice_number, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err = tx.GetContext(ctx, &invoice.ID, insertQuery,
		invoice.InscriptionID, invoice.BillingID, invoice.AmountPaid, invoice.PaymentVerified,
		invoice.IncomeNumber, invoice.InvoiceNumber, invoice.CreatedAt, invoice.UpdatedAt); err != nil {
		return r.translateUnique(fmt.Errorf("insert invoice: %w", err), invoice)
	}

	if err = tx.Commit(); err != nil {
		return r.translateUnique(fmt.Errorf("commit invoice: %w", err), invoice)
	}
	return nil
}

// FindByID returns an invoice by its primary key.
func (r *InvoiceRepository) FindByID(ctx context.Context, id int64) (*models.Invoice, error) {
	return r.findBy(ctx, "id", id)
}

// FindByInvoiceNumber returns an invoice by its unique invoice number.
func (r *InvoiceRepository) FindByInvoiceNumber(ctx context.Context, number string) (*models.Invoice, error) {
	return r.findBy(ctx, "invoice_number", number)
}

// FindByIncomeNumber returns an invoice by its unique income number.
func (r *InvoiceRepository) FindByIncomeNumber(ctx context.Context, number string) (*models.Invoice, error) {
	return r.findBy(ctx, "income_number", number)
}

// FindByInscriptionID returns the invoice issued against an inscription.
func (r *InvoiceRepository) FindByInscriptionID(ctx context.Context, inscriptionID int64) (*models.Invoice, error) {
	return r.findBy(ctx, "inscription_id", inscriptionID)
}

func (r *InvoiceRepository) findBy(ctx context.Context, field string, value interface{}) (*models.Invoice, error) {
	query := fmt.Sprintf("SELECT %s FROM invoices WHERE %s = $1", invoiceColumns, field)
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, value); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ExistsByInvoiceNumber checks invoice-number uniqueness. A value only
// conflicts when it belongs to a different record than excludeID.
func (r *InvoiceRepository) ExistsByInvoiceNumber(ctx context.Context, number string, excludeID int64) (bool, error) {
	return r.existsNumber(ctx, "invoice_number", number, excludeID)
}

// ExistsByIncomeNumber checks income-number uniqueness with self-exclusion.
func (r *InvoiceRepository) ExistsByIncomeNumber(ctx context.Context, number string, excludeID int64) (bool, error) {
	return r.existsNumber(ctx, "income_number", number, excludeID)
}

// ExistsByInscription reports whether an inscription already has an invoice.
func (r *InvoiceRepository) ExistsByInscription(ctx context.Context, inscriptionID int64) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM invoices WHERE inscription_id = $1 LIMIT 1", inscriptionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check inscription invoice: %w", err)
	}
	return true, nil
}

func (r *InvoiceRepository) existsNumber(ctx context.Context, field, number string, excludeID int64) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM invoices WHERE %s = $1", field)
	args := []interface{}{number}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", field, err)
	}
	return true, nil
}

// UpdateNumbers applies a partial update of the administrative numbers.
// Only supplied fields land in the SET clause; an absent field keeps its
// stored value. Returns sql.ErrNoRows when the invoice is gone.
func (r *InvoiceRepository) UpdateNumbers(ctx context.Context, id int64, changes models.InvoiceNumberChanges) error {
	if changes.Empty() {
		return nil
	}

	sets := make([]string, 0, 3)
	args := []interface{}{id}
	target := models.Invoice{}

	if changes.InvoiceNumber.Set {
		args = append(args, changes.InvoiceNumber.Value)
		sets = append(sets, fmt.Sprintf("invoice_number = $%d", len(args)))
		target.InvoiceNumber = changes.InvoiceNumber.Value
	}
	if changes.IncomeNumber.Set {
		args = append(args, changes.IncomeNumber.Value)
		sets = append(sets, fmt.Sprintf("income_number = $%d", len(args)))
		target.IncomeNumber = changes.IncomeNumber.Value
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf("UPDATE invoices SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return r.translateUnique(fmt.Errorf("update invoice numbers: %w", err), &target)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invoice numbers result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// VerifyPayment flips the one-way verification flag inside a transaction.
// A second call observes the row locked and already verified and fails with
// AlreadyVerifiedError; the flag can never be reset through this repository.
func (r *InvoiceRepository) VerifyPayment(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin verify transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var verified bool
	err = tx.GetContext(ctx, &verified, "SELECT payment_verified FROM invoices WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock invoice: %w", err)
	}
	if verified {
		return &AlreadyVerifiedError{InvoiceID: id}
	}

	if _, err = tx.ExecContext(ctx, "UPDATE invoices SET payment_verified = TRUE, updated_at = $2 WHERE id = $1", id, time.Now().UTC()); err != nil {
		return fmt.Errorf("verify payment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit verification: %w", err)
	}
	return nil
}

// Delete removes an invoice only while unverified. It reports whether a row
// was actually deleted so the caller can distinguish "verified" from
// "missing".
func (r *InvoiceRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM invoices WHERE id = $1 AND payment_verified = FALSE`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete invoice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete invoice result: %w", err)
	}
	return affected > 0, nil
}

// List returns invoices with pagination and an optional relational detail
// projection (course, person, billing).
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, int, error) {
	base := "FROM invoices inv"
	if filter.IncludeDetail {
		base += ` LEFT JOIN inscriptions i ON i.id = inv.inscription_id
LEFT JOIN courses c ON c.id = i.course_id
LEFT JOIN persons p ON p.id = i.person_id
LEFT JOIN billing_profiles b ON b.id = inv.billing_id`
	}

	var conditions []string
	var args []interface{}
	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("inv.payment_verified = $%d", len(args)+1))
		args = append(args, *filter.Verified)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	columns := `inv.id, inv.inscription_id, inv.billing_id, inv.amount_paid, inv.payment_verified, inv.income_number, inv.invoice_number, inv.created_at, inv.updated_at`
	if filter.IncludeDetail {
		columns += `, c.name AS course_name, p.full_name AS person_name, b.legal_name AS billing_name`
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY inv.created_at DESC LIMIT %d OFFSET %d", columns, base+clause, size, offset)

	var invoices []models.InvoiceDetail
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

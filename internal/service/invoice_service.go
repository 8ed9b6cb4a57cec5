package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type invoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id int64) (*models.Invoice, error)
	FindByInvoiceNumber(ctx context.Context, number string) (*models.Invoice, error)
	FindByIncomeNumber(ctx context.Context, number string) (*models.Invoice, error)
	FindByInscriptionID(ctx context.Context, inscriptionID int64) (*models.Invoice, error)
	UpdateNumbers(ctx context.Context, id int64, changes models.InvoiceNumberChanges) error
	VerifyPayment(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, int, error)
}

type invoiceInscriptionReader interface {
	FindByID(ctx context.Context, id int64) (*models.Inscription, error)
}

// CreateInvoiceRequest represents payload for issuing invoices.
type CreateInvoiceRequest struct {
	InscriptionID int64           `json:"inscription_id" validate:"required,gt=0"`
	BillingID     int64           `json:"billing_id" validate:"required,gt=0"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	InvoiceNumber string          `json:"invoice_number" validate:"omitempty,max=40"`
	IncomeNumber  string          `json:"income_number" validate:"omitempty,max=40"`
}

// invoiceNumberMaxLen caps the administrative numbers, matching the column
// width of the invoices table.
const invoiceNumberMaxLen = 40

// InvoiceService manages the financial record attached to inscriptions.
// Verification is one way: once a payment is verified the invoice becomes
// immutable evidence and can no longer be deleted.
type InvoiceService struct {
	repo         invoiceRepository
	inscriptions invoiceInscriptionReader
	refs         *ReferenceValidator
	guard        *ConflictGuard
	audit        *AuditRecorder
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(repo invoiceRepository, inscriptions invoiceInscriptionReader, refs *ReferenceValidator, guard *ConflictGuard, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{repo: repo, inscriptions: inscriptions, refs: refs, guard: guard, audit: audit, validator: validate, logger: logger}
}

// List returns invoices plus pagination data.
func (s *InvoiceService) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, *models.Pagination, error) {
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internalf(err, "failed to list invoices")
	}
	return invoices, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an invoice by id.
func (s *InvoiceService) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "invoice", id)
	}
	return invoice, nil
}

// GetByInvoiceNumber returns an invoice by its administrative number.
func (s *InvoiceService) GetByInvoiceNumber(ctx context.Context, number string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByInvoiceNumber(ctx, number)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NotFoundBy("invoice", "invoice number", number)
		}
		return nil, appErrors.Internalf(err, "failed to load invoice")
	}
	return invoice, nil
}

// GetByIncomeNumber returns an invoice by its income number.
func (s *InvoiceService) GetByIncomeNumber(ctx context.Context, number string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByIncomeNumber(ctx, number)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NotFoundBy("invoice", "income number", number)
		}
		return nil, appErrors.Internalf(err, "failed to load invoice")
	}
	return invoice, nil
}

// GetByInscription returns the invoice issued for an inscription.
func (s *InvoiceService) GetByInscription(ctx context.Context, inscriptionID int64) (*models.Invoice, error) {
	invoice, err := s.repo.FindByInscriptionID(ctx, inscriptionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NotFoundBy("invoice", "inscription", inscriptionID)
		}
		return nil, appErrors.Internalf(err, "failed to load invoice")
	}
	return invoice, nil
}

// Create issues an invoice for an inscription. At most one invoice exists
// per inscription, and assigned invoice or income numbers must be unique.
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest, actor Actor) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}
	if req.AmountPaid.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount paid must not be negative")
	}

	inscription, err := s.inscriptions.FindByID(ctx, req.InscriptionID)
	if err != nil {
		return nil, classifyLookup(err, "inscription", req.InscriptionID)
	}
	billing, err := s.refs.ResolveBilling(ctx, req.BillingID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if billing.PersonID != inscription.PersonID {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("billing profile %d belongs to a different person", req.BillingID))
	}

	invoiceNumber := strings.TrimSpace(req.InvoiceNumber)
	incomeNumber := strings.TrimSpace(req.IncomeNumber)
	if err := s.guard.CheckSingleInvoice(ctx, req.InscriptionID); err != nil {
		return nil, appErrors.FromError(err)
	}
	if err := s.guard.CheckInvoiceNumbers(ctx, invoiceNumber, incomeNumber, 0); err != nil {
		return nil, appErrors.FromError(err)
	}

	invoice := &models.Invoice{
		InscriptionID: req.InscriptionID,
		BillingID:     req.BillingID,
		AmountPaid:    req.AmountPaid,
		InvoiceNumber: invoiceNumber,
		IncomeNumber:  incomeNumber,
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		if translated := s.guard.TranslateWrite(err); appErrors.IsConflict(translated) {
			return nil, appErrors.FromError(translated)
		}
		return nil, appErrors.Internalf(err, "failed to create invoice")
	}

	s.audit.Record(ctx, actor.UserIDRef(), models.AuditActionInvoiceCreated, "invoice", invoice.ID,
		fmt.Sprintf("invoice issued for inscription %d", req.InscriptionID))
	return invoice, nil
}

// UpdateNumbers applies a partial update of the invoice and income numbers.
// An absent field keeps its stored value, an explicit null clears the number
// back to unassigned, and assigned numbers stay unique across other invoices.
func (s *InvoiceService) UpdateNumbers(ctx context.Context, id int64, changes models.InvoiceNumberChanges, actor Actor) (*models.Invoice, error) {
	if changes.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no invoice fields supplied")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "invoice", id)
	}

	invoiceNumber := current.InvoiceNumber
	if changes.InvoiceNumber.Set {
		invoiceNumber = strings.TrimSpace(changes.InvoiceNumber.Value)
		if len(invoiceNumber) > invoiceNumberMaxLen {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invoice_number must not exceed 40 characters")
		}
		changes.InvoiceNumber.Value = invoiceNumber
	}
	incomeNumber := current.IncomeNumber
	if changes.IncomeNumber.Set {
		incomeNumber = strings.TrimSpace(changes.IncomeNumber.Value)
		if len(incomeNumber) > invoiceNumberMaxLen {
			return nil, appErrors.Clone(appErrors.ErrValidation, "income_number must not exceed 40 characters")
		}
		changes.IncomeNumber.Value = incomeNumber
	}

	if err := s.guard.CheckInvoiceNumbers(ctx, invoiceNumber, incomeNumber, id); err != nil {
		return nil, appErrors.FromError(err)
	}
	if err := s.repo.UpdateNumbers(ctx, id, changes); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NotFoundf("invoice", id)
		}
		if translated := s.guard.TranslateWrite(err); appErrors.IsConflict(translated) {
			return nil, appErrors.FromError(translated)
		}
		return nil, appErrors.Internalf(err, "failed to update invoice numbers")
	}

	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Internalf(err, "failed to load updated invoice")
	}
	return invoice, nil
}

// VerifyPayment flips the one-way verification flag. Repeated verification
// reports a conflict and the flag can never be lowered again.
func (s *InvoiceService) VerifyPayment(ctx context.Context, id int64, actor Actor) (*models.Invoice, error) {
	if err := s.repo.VerifyPayment(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NotFoundf("invoice", id)
		}
		if translated := s.guard.TranslateWrite(err); appErrors.IsConflict(translated) {
			return nil, appErrors.FromError(translated)
		}
		return nil, appErrors.Internalf(err, "failed to verify payment")
	}

	s.audit.Record(ctx, actor.UserIDRef(), models.AuditActionPaymentVerified, "invoice", id, "payment verified")

	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Internalf(err, "failed to load verified invoice")
	}
	return invoice, nil
}

// Delete removes an unverified invoice. The repository's delete statement
// only matches unverified rows, so a concurrent verification cannot slip a
// verified invoice into the bin.
func (s *InvoiceService) Delete(ctx context.Context, id int64, actor Actor) error {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return classifyLookup(err, "invoice", id)
	}
	if invoice.PaymentVerified {
		return appErrors.Conflictf("invoice %d is verified and cannot be deleted", id)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Internalf(err, "failed to delete invoice")
	}
	if !deleted {
		return appErrors.Conflictf("invoice %d is verified and cannot be deleted", id)
	}

	s.audit.Record(ctx, actor.UserIDRef(), models.AuditActionInvoiceDeleted, "invoice", id,
		fmt.Sprintf("unverified invoice for inscription %d removed", invoice.InscriptionID))
	return nil
}

package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type inscriptionRepository interface {
	List(ctx context.Context, filter models.InscriptionFilter) ([]models.InscriptionDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.Inscription, error)
	FindDetailByID(ctx context.Context, id int64) (*models.InscriptionDetail, error)
	Create(ctx context.Context, inscription *models.Inscription) error
	ApplyChanges(ctx context.Context, inscription *models.Inscription, changes models.InscriptionChanges) error
	Delete(ctx context.Context, id int64) error
}

type inscriptionInvoiceReader interface {
	FindByInscriptionID(ctx context.Context, inscriptionID int64) (*models.Invoice, error)
}

// CreateInscriptionRequest represents payload for creating inscriptions.
type CreateInscriptionRequest struct {
	CourseID   int64  `json:"course_id" validate:"required,gt=0"`
	PersonID   int64  `json:"person_id" validate:"required,gt=0"`
	BillingID  int64  `json:"billing_id" validate:"required,gt=0"`
	VoucherID  int64  `json:"voucher_id" validate:"required,gt=0"`
	DiscountID *int64 `json:"discount_id" validate:"omitempty,gt=0"`
}

// Actor identifies the authenticated staff user performing an operation.
type Actor struct {
	UserID int64
	Role   models.UserRole
}

// UserIDRef returns the actor's user id as a pointer for audit records, nil
// for the zero actor.
func (a Actor) UserIDRef() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// InscriptionService drives the inscription lifecycle. Every inscription is
// born PENDING; the ENROLLED state is derived from the enrolled flag, which
// only an administrator can raise and which never goes back down.
type InscriptionService struct {
	repo      inscriptionRepository
	invoices  inscriptionInvoiceReader
	refs      *ReferenceValidator
	guard     *ConflictGuard
	audit     *AuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInscriptionService constructs an InscriptionService.
func NewInscriptionService(repo inscriptionRepository, invoices inscriptionInvoiceReader, refs *ReferenceValidator, guard *ConflictGuard, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger) *InscriptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InscriptionService{repo: repo, invoices: invoices, refs: refs, guard: guard, audit: audit, validator: validate, logger: logger}
}

// List returns enriched inscriptions plus pagination data.
func (s *InscriptionService) List(ctx context.Context, filter models.InscriptionFilter) ([]models.InscriptionDetail, *models.Pagination, error) {
	inscriptions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internalf(err, "failed to list inscriptions")
	}
	return inscriptions, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one enriched inscription.
func (s *InscriptionService) Get(ctx context.Context, id int64) (*models.InscriptionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "inscription", id)
	}
	return detail, nil
}

// Create validates every reference, enforces the uniqueness rules and
// persists a new PENDING inscription. The repository re-checks both unique
// rules inside its transaction, so a concurrent duplicate surfaces here as
// the same conflict error the up-front check would have produced.
func (s *InscriptionService) Create(ctx context.Context, req CreateInscriptionRequest, actor Actor) (*models.InscriptionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inscription payload")
	}

	refs, err := s.refs.ResolveInscription(ctx, req.CourseID, req.PersonID, req.BillingID, req.VoucherID, req.DiscountID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if refs.Billing.PersonID != req.PersonID {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("billing profile %d belongs to a different person", req.BillingID))
	}
	if err := s.guard.CheckInscriptionPair(ctx, req.CourseID, req.PersonID, 0); err != nil {
		return nil, appErrors.FromError(err)
	}
	if err := s.guard.CheckVoucherUnused(ctx, req.VoucherID, 0); err != nil {
		return nil, appErrors.FromError(err)
	}

	inscription := &models.Inscription{
		CourseID:   req.CourseID,
		PersonID:   req.PersonID,
		BillingID:  req.BillingID,
		VoucherID:  req.VoucherID,
		DiscountID: req.DiscountID,
	}
	if err := s.repo.Create(ctx, inscription); err != nil {
		if translated := s.guard.TranslateWrite(err); appErrors.IsConflict(translated) {
			return nil, appErrors.FromError(translated)
		}
		return nil, appErrors.Internalf(err, "failed to create inscription")
	}

	s.audit.Record(ctx, actor.UserIDRef(), models.AuditActionInscriptionCreated, "inscription", inscription.ID,
		fmt.Sprintf("person %d inscribed in course %q", req.PersonID, refs.Course.ShortCode))

	detail, err := s.repo.FindDetailByID(ctx, inscription.ID)
	if err != nil {
		return nil, appErrors.Internalf(err, "failed to load created inscription")
	}
	return detail, nil
}

// Update applies a partial update. Absent fields keep their values; an
// explicit null on discount_id clears the discount. Changing the course or
// flipping the enrolled flag is restricted to administrators, and the
// enrolled flag only moves from false to true.
func (s *InscriptionService) Update(ctx context.Context, id int64, changes models.InscriptionChanges, actor Actor) (*models.InscriptionDetail, error) {
	if changes.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no updatable fields supplied")
	}

	inscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "inscription", id)
	}

	if (changes.CourseID.Set || changes.Enrolled.Set) && actor.Role != models.UserRoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can reassign courses or enroll students")
	}

	enrolling := false
	if changes.Enrolled.Set {
		if !changes.Enrolled.Valid {
			return nil, appErrors.Clone(appErrors.ErrValidation, "enrolled must not be null")
		}
		if !changes.Enrolled.Value && inscription.Enrolled {
			return nil, appErrors.Conflictf("inscription %d is already enrolled and cannot go back to pending", id)
		}
		enrolling = changes.Enrolled.Value && !inscription.Enrolled
	}

	targetCourse := inscription.CourseID
	if changes.CourseID.Set {
		if !changes.CourseID.Valid {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course_id must not be null")
		}
		targetCourse = changes.CourseID.Value
		if _, err := s.refs.ResolveCourse(ctx, targetCourse); err != nil {
			return nil, appErrors.FromError(err)
		}
		if targetCourse != inscription.CourseID {
			if err := s.guard.CheckInscriptionPair(ctx, targetCourse, inscription.PersonID, id); err != nil {
				return nil, appErrors.FromError(err)
			}
		}
	}

	if changes.BillingID.Set {
		if !changes.BillingID.Valid {
			return nil, appErrors.Clone(appErrors.ErrValidation, "billing_id must not be null")
		}
		billing, err := s.refs.ResolveBilling(ctx, changes.BillingID.Value)
		if err != nil {
			return nil, appErrors.FromError(err)
		}
		if billing.PersonID != inscription.PersonID {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("billing profile %d belongs to a different person", changes.BillingID.Value))
		}
	}

	if changes.DiscountID.Set && changes.DiscountID.Valid {
		if _, err := s.refs.ResolveDiscount(ctx, changes.DiscountID.Value); err != nil {
			return nil, appErrors.FromError(err)
		}
	}

	if err := s.repo.ApplyChanges(ctx, inscription, changes); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NotFoundf("inscription", id)
		}
		if translated := s.guard.TranslateWrite(err); appErrors.IsConflict(translated) {
			return nil, appErrors.FromError(translated)
		}
		return nil, appErrors.Internalf(err, "failed to update inscription")
	}

	action := models.AuditActionInscriptionUpdated
	detailMsg := "inscription fields updated"
	if enrolling {
		action = models.AuditActionStudentEnrolled
		detailMsg = fmt.Sprintf("person %d enrolled in course %d", inscription.PersonID, targetCourse)
	}
	s.audit.Record(ctx, actor.UserIDRef(), action, "inscription", id, detailMsg)

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Internalf(err, "failed to load updated inscription")
	}
	return detail, nil
}

// Delete removes an inscription that is still pending. Enrolled inscriptions
// and inscriptions whose invoice exists are kept; the invoice must be removed
// first, and a verified invoice pins both records forever.
func (s *InscriptionService) Delete(ctx context.Context, id int64, actor Actor) error {
	inscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return classifyLookup(err, "inscription", id)
	}
	if inscription.Enrolled {
		return appErrors.Conflictf("inscription %d is enrolled and cannot be deleted", id)
	}

	invoice, err := s.invoices.FindByInscriptionID(ctx, id)
	switch {
	case err == sql.ErrNoRows:
		// no invoice, deletable
	case err != nil:
		return appErrors.Internalf(err, "failed to check inscription invoice")
	case invoice.PaymentVerified:
		return appErrors.Conflictf("inscription %d has a verified payment and cannot be deleted", id)
	default:
		return appErrors.Conflictf("inscription %d has an invoice; delete the invoice first", id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.NotFoundf("inscription", id)
		}
		return appErrors.Internalf(err, "failed to delete inscription")
	}

	s.audit.Record(ctx, actor.UserIDRef(), models.AuditActionInscriptionDeleted, "inscription", id,
		fmt.Sprintf("pending inscription of person %d removed", inscription.PersonID))
	return nil
}

package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type billingRepository interface {
	FindByID(ctx context.Context, id int64) (*models.BillingProfile, error)
	ListByPerson(ctx context.Context, personID int64) ([]models.BillingProfile, error)
	Create(ctx context.Context, billing *models.BillingProfile) error
	Update(ctx context.Context, billing *models.BillingProfile) error
}

// CreateBillingRequest represents payload for registering billing profiles.
type CreateBillingRequest struct {
	PersonID  int64  `json:"person_id" validate:"required,gt=0"`
	LegalName string `json:"legal_name" validate:"required,min=3,max=200"`
	TaxID     string `json:"tax_id" validate:"required,min=5,max=30"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	Email     string `json:"email" validate:"required,email"`
	Address   string `json:"address" validate:"omitempty,max=300"`
}

// UpdateBillingRequest represents payload for updating billing profiles.
// The owning person never changes.
type UpdateBillingRequest struct {
	LegalName string `json:"legal_name" validate:"required,min=3,max=200"`
	TaxID     string `json:"tax_id" validate:"required,min=5,max=30"`
	Phone     string `json:"phone" validate:"omitempty,max=30"`
	Email     string `json:"email" validate:"required,email"`
	Address   string `json:"address" validate:"omitempty,max=300"`
}

// BillingService orchestrates billing profile operations.
type BillingService struct {
	repo      billingRepository
	persons   personReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBillingService constructs a BillingService.
func NewBillingService(repo billingRepository, persons personReader, validate *validator.Validate, logger *zap.Logger) *BillingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{repo: repo, persons: persons, validator: validate, logger: logger}
}

// Get returns a billing profile by id.
func (s *BillingService) Get(ctx context.Context, id int64) (*models.BillingProfile, error) {
	billing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "billing profile", id)
	}
	return billing, nil
}

// ListByPerson returns every billing profile a person registered.
func (s *BillingService) ListByPerson(ctx context.Context, personID int64) ([]models.BillingProfile, error) {
	if _, err := s.persons.FindByID(ctx, personID); err != nil {
		return nil, classifyLookup(err, "person", personID)
	}
	billings, err := s.repo.ListByPerson(ctx, personID)
	if err != nil {
		return nil, appErrors.Internalf(err, "failed to list billing profiles")
	}
	return billings, nil
}

// Create registers a billing profile for an existing person.
func (s *BillingService) Create(ctx context.Context, req CreateBillingRequest) (*models.BillingProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid billing payload")
	}
	if _, err := s.persons.FindByID(ctx, req.PersonID); err != nil {
		return nil, classifyLookup(err, "person", req.PersonID)
	}

	billing := &models.BillingProfile{
		PersonID:  req.PersonID,
		LegalName: strings.TrimSpace(req.LegalName),
		TaxID:     strings.TrimSpace(req.TaxID),
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Address:   strings.TrimSpace(req.Address),
	}
	if err := s.repo.Create(ctx, billing); err != nil {
		return nil, appErrors.Internalf(err, "failed to create billing profile")
	}
	return billing, nil
}

// Update rewrites a billing profile.
func (s *BillingService) Update(ctx context.Context, id int64, req UpdateBillingRequest) (*models.BillingProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid billing payload")
	}
	billing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "billing profile", id)
	}

	billing.LegalName = strings.TrimSpace(req.LegalName)
	billing.TaxID = strings.TrimSpace(req.TaxID)
	billing.Phone = strings.TrimSpace(req.Phone)
	billing.Email = strings.ToLower(strings.TrimSpace(req.Email))
	billing.Address = strings.TrimSpace(req.Address)

	if err := s.repo.Update(ctx, billing); err != nil {
		return nil, appErrors.Internalf(err, "failed to update billing profile")
	}
	return billing, nil
}

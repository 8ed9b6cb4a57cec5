package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type discountRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Discount, error)
	Create(ctx context.Context, discount *models.Discount) error
}

// CreateDiscountRequest represents payload for registering discounts.
type CreateDiscountRequest struct {
	Type         models.DiscountType `json:"type" validate:"required,oneof=GROUP FLAT PERCENTAGE INSTITUTION"`
	StudentCount int                 `json:"student_count" validate:"omitempty,gte=0"`
	Amount       decimal.Decimal     `json:"amount"`
	Percentage   decimal.Decimal     `json:"percentage"`
}

// DiscountService registers and resolves discounts.
type DiscountService struct {
	repo      discountRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDiscountService constructs a DiscountService.
func NewDiscountService(repo discountRepository, validate *validator.Validate, logger *zap.Logger) *DiscountService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscountService{repo: repo, validator: validate, logger: logger}
}

// Get returns a discount by id.
func (s *DiscountService) Get(ctx context.Context, id int64) (*models.Discount, error) {
	discount, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "discount", id)
	}
	return discount, nil
}

// Create registers a discount. Percentage discounts must carry a percentage
// between 0 and 100; amount-based ones must not be negative.
func (s *DiscountService) Create(ctx context.Context, req CreateDiscountRequest) (*models.Discount, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discount payload")
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount amount must not be negative")
	}
	if req.Type == models.DiscountTypePercentage {
		if req.Percentage.IsNegative() || req.Percentage.GreaterThan(decimal.NewFromInt(100)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "discount percentage must be between 0 and 100")
		}
	}

	discount := &models.Discount{
		Type:         req.Type,
		StudentCount: req.StudentCount,
		Amount:       req.Amount,
		Percentage:   req.Percentage,
	}
	if err := s.repo.Create(ctx, discount); err != nil {
		return nil, appErrors.Internalf(err, "failed to create discount")
	}
	return discount, nil
}

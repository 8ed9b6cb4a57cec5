package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andesedu/cursos-api/internal/models"
)

// DiscountRepository manages persistence for discounts.
type DiscountRepository struct {
	db *sqlx.DB
}

// NewDiscountRepository constructs a DiscountRepository.
func NewDiscountRepository(db *sqlx.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// FindByID fetches a discount by ID.
func (r *DiscountRepository) FindByID(ctx context.Context, id int64) (*models.Discount, error) {
	const query = `SELECT id, type, student_count, amount, percentage, created_at FROM discounts WHERE id = $1`
	var discount models.Discount
	if err := r.db.GetContext(ctx, &discount, query, id); err != nil {
		return nil, err
	}
	return &discount, nil
}

// Create persists a discount returning its generated ID.
func (r *DiscountRepository) Create(ctx context.Context, discount *models.Discount) error {
	if discount.CreatedAt.IsZero() {
		discount.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO discounts (type, student_count, amount, percentage, created_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &discount.ID, query,
		discount.Type, discount.StudentCount, discount.Amount, discount.Percentage, discount.CreatedAt); err != nil {
		return fmt.Errorf("create discount: %w", err)
	}
	return nil
}

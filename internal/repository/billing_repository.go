package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andesedu/cursos-api/internal/models"
)

// BillingRepository manages persistence for billing profiles.
type BillingRepository struct {
	db *sqlx.DB
}

// NewBillingRepository constructs a BillingRepository.
func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// FindByID fetches a billing profile by ID.
func (r *BillingRepository) FindByID(ctx context.Context, id int64) (*models.BillingProfile, error) {
	const query = `SELECT id, person_id, legal_name, tax_id, phone, email, address, created_at, updated_at FROM billing_profiles WHERE id = $1`
	var profile models.BillingProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListByPerson returns every profile a person has registered, newest first.
func (r *BillingRepository) ListByPerson(ctx context.Context, personID int64) ([]models.BillingProfile, error) {
	const query = `SELECT id, person_id, legal_name, tax_id, phone, email, address, created_at, updated_at
        FROM billing_profiles WHERE person_id = $1 ORDER BY created_at DESC`
	var profiles []models.BillingProfile
	if err := r.db.SelectContext(ctx, &profiles, query, personID); err != nil {
		return nil, fmt.Errorf("list billing profiles: %w", err)
	}
	return profiles, nil
}

// Create persists a new billing profile returning its generated ID.
func (r *BillingRepository) Create(ctx context.Context, profile *models.BillingProfile) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	const query = `INSERT INTO billing_profiles (person_id, legal_name, tax_id, phone, email, address, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.GetContext(ctx, &profile.ID, query,
		profile.PersonID, profile.LegalName, profile.TaxID, profile.Phone, profile.Email, profile.Address, profile.CreatedAt, profile.UpdatedAt); err != nil {
		return fmt.Errorf("create billing profile: %w", err)
	}
	return nil
}

// Update rewrites mutable billing attributes.
func (r *BillingRepository) Update(ctx context.Context, profile *models.BillingProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE billing_profiles SET legal_name = $2, tax_id = $3, phone = $4, email = $5, address = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		profile.ID, profile.LegalName, profile.TaxID, profile.Phone, profile.Email, profile.Address, profile.UpdatedAt); err != nil {
		return fmt.Errorf("update billing profile: %w", err)
	}
	return nil
}

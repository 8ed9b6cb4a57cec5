package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/andesedu/cursos-api/internal/models"
)

// VoucherRepository manages persistence for payment voucher metadata.
type VoucherRepository struct {
	db *sqlx.DB
}

// NewVoucherRepository constructs a VoucherRepository.
func NewVoucherRepository(db *sqlx.DB) *VoucherRepository {
	return &VoucherRepository{db: db}
}

// FindByID fetches voucher metadata by ID.
func (r *VoucherRepository) FindByID(ctx context.Context, id int64) (*models.Voucher, error) {
	const query = `SELECT id, storage_key, mime_type, original_filename, uploaded_at FROM vouchers WHERE id = $1`
	var voucher models.Voucher
	if err := r.db.GetContext(ctx, &voucher, query, id); err != nil {
		return nil, err
	}
	return &voucher, nil
}

// Create persists voucher metadata returning its generated ID. The storage
// key is assigned here; the file bytes live with the storage collaborator.
func (r *VoucherRepository) Create(ctx context.Context, voucher *models.Voucher) error {
	if voucher.StorageKey == "" {
		voucher.StorageKey = uuid.NewString()
	}
	if voucher.UploadedAt.IsZero() {
		voucher.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO vouchers (storage_key, mime_type, original_filename, uploaded_at)
        VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &voucher.ID, query,
		voucher.StorageKey, voucher.MIMEType, voucher.OriginalFilename, voucher.UploadedAt); err != nil {
		return fmt.Errorf("create voucher: %w", err)
	}
	return nil
}

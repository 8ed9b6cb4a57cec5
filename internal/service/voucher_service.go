package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/pkg/config"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type voucherRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Voucher, error)
	Create(ctx context.Context, voucher *models.Voucher) error
}

type voucherStore interface {
	Save(filename string, data []byte) (string, error)
}

// VoucherService registers uploaded payment receipts. Bytes land in blob
// storage under a generated key; only metadata is persisted in the database.
type VoucherService struct {
	repo   voucherRepository
	store  voucherStore
	cfg    config.VouchersConfig
	logger *zap.Logger
}

// NewVoucherService constructs a VoucherService.
func NewVoucherService(repo voucherRepository, store voucherStore, cfg config.VouchersConfig, logger *zap.Logger) *VoucherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoucherService{repo: repo, store: store, cfg: cfg, logger: logger}
}

// Get returns voucher metadata by id.
func (s *VoucherService) Get(ctx context.Context, id int64) (*models.Voucher, error) {
	voucher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "voucher", id)
	}
	return voucher, nil
}

// Register validates an upload against the configured MIME allow list and
// size cap, stores the bytes and persists the metadata.
func (s *VoucherService) Register(ctx context.Context, originalFilename, mimeType string, data []byte) (*models.Voucher, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if originalFilename = strings.TrimSpace(originalFilename); originalFilename == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "voucher filename is required")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "voucher file is empty")
	}
	if s.cfg.MaxFileSizeBytes > 0 && int64(len(data)) > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("voucher file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	if !s.mimeAllowed(mimeType) {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("voucher MIME type %q is not accepted", mimeType))
	}

	key := fmt.Sprintf("vouchers/%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(originalFilename)))
	if _, err := s.store.Save(key, data); err != nil {
		return nil, appErrors.Internalf(err, "failed to store voucher file")
	}

	voucher := &models.Voucher{
		StorageKey:       key,
		MIMEType:         mimeType,
		OriginalFilename: originalFilename,
		UploadedAt:       time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, voucher); err != nil {
		return nil, appErrors.Internalf(err, "failed to register voucher")
	}
	return voucher, nil
}

func (s *VoucherService) mimeAllowed(mimeType string) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(strings.TrimSpace(allowed), mimeType) {
			return true
		}
	}
	return false
}

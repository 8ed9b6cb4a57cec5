package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resource string, resourceID int64) ([]models.AuditLog, error)
}

// AuditRecorder appends trail records for completed state transitions.
// Recording is best effort: failures are logged and never propagate to the
// caller, so the primary operation's outcome is unaffected.
type AuditRecorder struct {
	repo   auditStore
	logger *zap.Logger
}

// NewAuditRecorder constructs an AuditRecorder.
func NewAuditRecorder(repo auditStore, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, logger: logger}
}

// Record appends one audit entry.
func (a *AuditRecorder) Record(ctx context.Context, userID *int64, action, resource string, resourceID int64, detail string) {
	if a == nil || a.repo == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.repo.Create(ctx, entry); err != nil {
		a.logger.Warn("audit record failed",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.Int64("resource_id", resourceID),
			zap.Error(err))
	}
}

// Trail returns the recorded entries of one resource, newest first.
func (a *AuditRecorder) Trail(ctx context.Context, resource string, resourceID int64) ([]models.AuditLog, error) {
	if a == nil || a.repo == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := a.repo.ListByResource(ctx, resource, resourceID)
	if err != nil {
		return nil, appErrors.Internalf(err, "failed to load audit trail")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return logs, nil
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
)

type mockAuditStore struct {
	entries []models.AuditLog
}

func (m *mockAuditStore) Create(ctx context.Context, log *models.AuditLog) error {
	m.entries = append(m.entries, *log)
	return nil
}

func (m *mockAuditStore) ListByResource(ctx context.Context, resource string, resourceID int64) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for _, e := range m.entries {
		if e.Resource == resource && e.ResourceID != nil && *e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestAuditRecorderTrail(t *testing.T) {
	store := &mockAuditStore{}
	recorder := NewAuditRecorder(store, zap.NewNop())
	userID := int64(1)

	recorder.Record(context.Background(), &userID, models.AuditActionInvoiceCreated, "invoice", 7, "invoice issued for inscription 42")
	recorder.Record(context.Background(), &userID, models.AuditActionPaymentVerified, "invoice", 7, "payment verified")
	recorder.Record(context.Background(), &userID, models.AuditActionInvoiceCreated, "invoice", 8, "invoice issued for inscription 43")

	trail, err := recorder.Trail(context.Background(), "invoice", 7)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.AuditActionInvoiceCreated, trail[0].Action)
	assert.Equal(t, models.AuditActionPaymentVerified, trail[1].Action)
}

func TestAuditRecorderTrailWithoutStore(t *testing.T) {
	recorder := NewAuditRecorder(nil, zap.NewNop())

	trail, err := recorder.Trail(context.Background(), "invoice", 7)
	require.NoError(t, err)
	assert.Empty(t, trail)
}

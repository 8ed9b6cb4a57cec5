package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/service"
)

func TestAuditHandlerTrailMissingResource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuditHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/audit?resource_id=7", nil)

	handler.Trail(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerTrailInvalidResourceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuditHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/audit?resource=invoice&resource_id=abc", nil)

	handler.Trail(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerTrailEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuditHandler(service.NewAuditRecorder(nil, zap.NewNop()))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/audit?resource=invoice&resource_id=7", nil)

	handler.Trail(c)
	require.Equal(t, http.StatusOK, w.Code)
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andesedu/cursos-api/internal/service"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/response"
)

// AuditHandler exposes the recorded audit trail of staff-managed resources.
type AuditHandler struct {
	audit *service.AuditRecorder
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(audit *service.AuditRecorder) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Trail godoc
// @Summary List audit entries for a resource
// @Tags Audit
// @Produce json
// @Param resource query string true "Resource kind (inscription, invoice, ...)"
// @Param resource_id query int true "Resource ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /audit [get]
func (h *AuditHandler) Trail(c *gin.Context) {
	resource := strings.TrimSpace(c.Query("resource"))
	resourceID, err := strconv.ParseInt(c.Query("resource_id"), 10, 64)
	if resource == "" || err != nil || resourceID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "resource and a positive resource_id are required"))
		return
	}
	logs, trailErr := h.audit.Trail(c.Request.Context(), resource, resourceID)
	if trailErr != nil {
		response.Error(c, trailErr)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

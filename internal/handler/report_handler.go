package handler

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/internal/service"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/response"
)

// ReportHandler wires report aggregation and export to HTTP routes.
type ReportHandler struct {
	reports *service.ReportService
	metrics *service.MetricsService
}

// NewReportHandler constructs a new ReportHandler.
func NewReportHandler(reports *service.ReportService, metrics *service.MetricsService) *ReportHandler {
	return &ReportHandler{reports: reports, metrics: metrics}
}

func reportFilterFromQuery(c *gin.Context) models.ReportFilter {
	var filter models.ReportFilter
	if courseID, err := strconv.ParseInt(c.Query("course_id"), 10, 64); err == nil && courseID > 0 {
		filter.CourseID = &courseID
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = &to
	}
	if verified := c.Query("verified"); verified != "" {
		val := strings.EqualFold(verified, "true")
		filter.Verified = &val
	}
	if enrolled := c.Query("enrolled"); enrolled != "" {
		val := strings.EqualFold(enrolled, "true")
		filter.Enrolled = &val
	}
	return filter
}

// Generate godoc
// @Summary Generate an administrative report
// @Tags Reports
// @Produce json
// @Param course_id query int false "Filter by course"
// @Param from query string false "Created from (RFC3339)"
// @Param to query string false "Created to (RFC3339)"
// @Param verified query bool false "Filter by payment verification"
// @Param enrolled query bool false "Filter by enrollment state"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports [get]
func (h *ReportHandler) Generate(c *gin.Context) {
	report, err := h.reports.Generate(c.Request.Context(), reportFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// RequestExport godoc
// @Summary Request an asynchronous report export
// @Tags Reports
// @Produce json
// @Param format query string true "Export format (csv/pdf)"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/exports [post]
func (h *ReportHandler) RequestExport(c *gin.Context) {
	format := c.Query("format")
	exp, err := h.reports.RequestExport(c.Request.Context(), reportFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncExportRequested(exp.Format)
	}
	response.JSON(c, http.StatusAccepted, exp, nil)
}

// GetExport godoc
// @Summary Get export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Export ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) GetExport(c *gin.Context) {
	exp, err := h.reports.GetExport(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exp, nil)
}

// Download godoc
// @Summary Download an export through a signed URL
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/exports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token is required"))
		return
	}
	path, err := h.reports.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

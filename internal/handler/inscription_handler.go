package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/internal/service"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/response"
)

// InscriptionHandler wires the inscription lifecycle to HTTP routes.
type InscriptionHandler struct {
	inscriptions *service.InscriptionService
	metrics      *service.MetricsService
}

// NewInscriptionHandler constructs a new InscriptionHandler.
func NewInscriptionHandler(inscriptions *service.InscriptionService, metrics *service.MetricsService) *InscriptionHandler {
	return &InscriptionHandler{inscriptions: inscriptions, metrics: metrics}
}

// List godoc
// @Summary List inscriptions
// @Tags Inscriptions
// @Produce json
// @Param course_id query int false "Filter by course"
// @Param person_id query int false "Filter by person"
// @Param enrolled query bool false "Filter by enrollment state"
// @Param from query string false "Created from (RFC3339)"
// @Param to query string false "Created to (RFC3339)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (created_at,course_name,person_name)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inscriptions [get]
func (h *InscriptionHandler) List(c *gin.Context) {
	filter := models.InscriptionFilter{
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if courseID, err := strconv.ParseInt(c.Query("course_id"), 10, 64); err == nil {
		filter.CourseID = courseID
	}
	if personID, err := strconv.ParseInt(c.Query("person_id"), 10, 64); err == nil {
		filter.PersonID = personID
	}
	if enrolled := c.Query("enrolled"); enrolled != "" {
		switch strings.ToLower(enrolled) {
		case "true":
			val := true
			filter.Enrolled = &val
		case "false":
			val := false
			filter.Enrolled = &val
		}
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	inscriptions, pagination, err := h.inscriptions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inscriptions, pagination)
}

// Get godoc
// @Summary Get inscription detail
// @Tags Inscriptions
// @Produce json
// @Param id path int true "Inscription ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inscriptions/{id} [get]
func (h *InscriptionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid inscription id"))
		return
	}
	inscription, err := h.inscriptions.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inscription, nil)
}

// Create godoc
// @Summary Create inscription
// @Tags Inscriptions
// @Accept json
// @Produce json
// @Param payload body service.CreateInscriptionRequest true "Inscription payload"
// @Success 201 {object} response.Envelope
// @Router /inscriptions [post]
func (h *InscriptionHandler) Create(c *gin.Context) {
	var req service.CreateInscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid inscription payload"))
		return
	}
	inscription, err := h.inscriptions.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncInscriptionsCreated()
	}
	response.Created(c, inscription)
}

// Update godoc
// @Summary Partially update inscription
// @Tags Inscriptions
// @Accept json
// @Produce json
// @Param id path int true "Inscription ID"
// @Param payload body models.InscriptionChanges true "Changed fields"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inscriptions/{id} [patch]
func (h *InscriptionHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid inscription id"))
		return
	}
	var changes models.InscriptionChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid inscription payload"))
		return
	}

	enrolling := changes.Enrolled.Set && changes.Enrolled.Valid && changes.Enrolled.Value
	inscription, err := h.inscriptions.Update(c.Request.Context(), id, changes, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if enrolling && h.metrics != nil {
		h.metrics.IncStudentsEnrolled()
	}
	response.JSON(c, http.StatusOK, inscription, nil)
}

// Delete godoc
// @Summary Delete pending inscription
// @Tags Inscriptions
// @Param id path int true "Inscription ID"
// @Success 204
// @Security BearerAuth
// @Router /inscriptions/{id} [delete]
func (h *InscriptionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid inscription id"))
		return
	}
	if err := h.inscriptions.Delete(c.Request.Context(), id, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

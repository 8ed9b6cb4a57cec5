package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andesedu/cursos-api/internal/service"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/response"
)

// BillingHandler wires billing profile services to HTTP routes.
type BillingHandler struct {
	billings *service.BillingService
}

// NewBillingHandler constructs a new BillingHandler.
func NewBillingHandler(billings *service.BillingService) *BillingHandler {
	return &BillingHandler{billings: billings}
}

// Get godoc
// @Summary Get billing profile
// @Tags Billings
// @Produce json
// @Param id path int true "Billing ID"
// @Success 200 {object} response.Envelope
// @Router /billings/{id} [get]
func (h *BillingHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid billing id"))
		return
	}
	billing, err := h.billings.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, billing, nil)
}

// Create godoc
// @Summary Register billing profile
// @Tags Billings
// @Accept json
// @Produce json
// @Param payload body service.CreateBillingRequest true "Billing payload"
// @Success 201 {object} response.Envelope
// @Router /billings [post]
func (h *BillingHandler) Create(c *gin.Context) {
	var req service.CreateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid billing payload"))
		return
	}
	billing, err := h.billings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, billing)
}

// Update godoc
// @Summary Update billing profile
// @Tags Billings
// @Accept json
// @Produce json
// @Param id path int true "Billing ID"
// @Param payload body service.UpdateBillingRequest true "Billing payload"
// @Success 200 {object} response.Envelope
// @Router /billings/{id} [put]
func (h *BillingHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid billing id"))
		return
	}
	var req service.UpdateBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid billing payload"))
		return
	}
	billing, err := h.billings.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, billing, nil)
}

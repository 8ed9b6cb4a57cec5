package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andesedu/cursos-api/internal/service"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/response"
)

// DiscountHandler wires discount services to HTTP routes.
type DiscountHandler struct {
	discounts *service.DiscountService
}

// NewDiscountHandler constructs a new DiscountHandler.
func NewDiscountHandler(discounts *service.DiscountService) *DiscountHandler {
	return &DiscountHandler{discounts: discounts}
}

// Get godoc
// @Summary Get discount
// @Tags Discounts
// @Produce json
// @Param id path int true "Discount ID"
// @Success 200 {object} response.Envelope
// @Router /discounts/{id} [get]
func (h *DiscountHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid discount id"))
		return
	}
	discount, err := h.discounts.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, discount, nil)
}

// Create godoc
// @Summary Register discount
// @Tags Discounts
// @Accept json
// @Produce json
// @Param payload body service.CreateDiscountRequest true "Discount payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /discounts [post]
func (h *DiscountHandler) Create(c *gin.Context) {
	var req service.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discount payload"))
		return
	}
	discount, err := h.discounts.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, discount)
}

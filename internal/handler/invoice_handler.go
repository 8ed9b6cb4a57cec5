package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/internal/service"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/response"
)

// InvoiceHandler wires invoice services to HTTP routes.
type InvoiceHandler struct {
	invoices *service.InvoiceService
	metrics  *service.MetricsService
}

// NewInvoiceHandler constructs a new InvoiceHandler.
func NewInvoiceHandler(invoices *service.InvoiceService, metrics *service.MetricsService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, metrics: metrics}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param verified query bool false "Filter by verification state"
// @Param detail query bool false "Include course/person/billing context"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := models.InvoiceFilter{
		IncludeDetail: strings.EqualFold(c.Query("detail"), "true"),
	}
	if verified := c.Query("verified"); verified != "" {
		switch strings.ToLower(verified) {
		case "true":
			val := true
			filter.Verified = &val
		case "false":
			val := false
			filter.Verified = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	invoices, pagination, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get godoc
// @Summary Get invoice by id
// @Tags Invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid invoice id"))
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// GetByInvoiceNumber godoc
// @Summary Get invoice by invoice number
// @Tags Invoices
// @Produce json
// @Param number path string true "Invoice number"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/by-number/{number} [get]
func (h *InvoiceHandler) GetByInvoiceNumber(c *gin.Context) {
	invoice, err := h.invoices.GetByInvoiceNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// GetByIncomeNumber godoc
// @Summary Get invoice by income number
// @Tags Invoices
// @Produce json
// @Param number path string true "Income number"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/by-income/{number} [get]
func (h *InvoiceHandler) GetByIncomeNumber(c *gin.Context) {
	invoice, err := h.invoices.GetByIncomeNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// GetByInscription godoc
// @Summary Get the invoice of an inscription
// @Tags Invoices
// @Produce json
// @Param id path int true "Inscription ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inscriptions/{id}/invoice [get]
func (h *InvoiceHandler) GetByInscription(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid inscription id"))
		return
	}
	invoice, err := h.invoices.GetByInscription(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Create godoc
// @Summary Issue invoice for an inscription
// @Tags Invoices
// @Accept json
// @Produce json
// @Param payload body service.CreateInvoiceRequest true "Invoice payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invoice payload"))
		return
	}
	invoice, err := h.invoices.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// UpdateNumbers godoc
// @Summary Update invoice and income numbers
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path int true "Invoice ID"
// @Param payload body models.InvoiceNumberChanges true "Numbers payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id}/numbers [put]
func (h *InvoiceHandler) UpdateNumbers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid invoice id"))
		return
	}
	var changes models.InvoiceNumberChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invoice payload"))
		return
	}
	invoice, err := h.invoices.UpdateNumbers(c.Request.Context(), id, changes, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// VerifyPayment godoc
// @Summary Verify the payment of an invoice
// @Tags Invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id}/verify [post]
func (h *InvoiceHandler) VerifyPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid invoice id"))
		return
	}
	invoice, err := h.invoices.VerifyPayment(c.Request.Context(), id, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncPaymentsVerified()
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Delete godoc
// @Summary Delete unverified invoice
// @Tags Invoices
// @Param id path int true "Invoice ID"
// @Success 204
// @Security BearerAuth
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid invoice id"))
		return
	}
	if err := h.invoices.Delete(c.Request.Context(), id, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

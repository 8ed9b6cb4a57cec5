package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andesedu/cursos-api/internal/service"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
	"github.com/andesedu/cursos-api/pkg/response"
)

// VoucherHandler wires voucher upload and lookup to HTTP routes.
type VoucherHandler struct {
	vouchers *service.VoucherService
}

// NewVoucherHandler constructs a new VoucherHandler.
func NewVoucherHandler(vouchers *service.VoucherService) *VoucherHandler {
	return &VoucherHandler{vouchers: vouchers}
}

// Get godoc
// @Summary Get voucher metadata
// @Tags Vouchers
// @Produce json
// @Param id path int true "Voucher ID"
// @Success 200 {object} response.Envelope
// @Router /vouchers/{id} [get]
func (h *VoucherHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid voucher id"))
		return
	}
	voucher, err := h.vouchers.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, voucher, nil)
}

// Upload godoc
// @Summary Upload a payment voucher
// @Tags Vouchers
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Voucher file"
// @Success 201 {object} response.Envelope
// @Router /vouchers [post]
func (h *VoucherHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "voucher file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Internalf(err, "failed to read voucher upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Internalf(err, "failed to read voucher upload"))
		return
	}

	voucher, err := h.vouchers.Register(c.Request.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, voucher)
}

package admin

import (
	handlershared "github.com/bakehouse-next/internal/http/handlers/shared"
	"github.com/bakehouse-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CreatePOSOrder 门店收银下单
func (h *Handler) CreatePOSOrder(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	var req handlershared.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	input := req.ToOrderInput()
	input.StaffID = staffID
	result, err := h.OrderService.CreatePOSOrder(c.Request.Context(), input)
	if err != nil {
		requestLog(c).Infow("pos_order_create_rejected", "staff_id", staffID, "error", err)
		respondWithMappedError(c, err, "order could not be placed")
		return
	}
	requestLog(c).Infow("pos_order_created",
		"staff_id", staffID,
		"order_no", result.Order.OrderNo,
		"payment_method", result.Order.PaymentMethod,
		"total", result.Order.TotalAmount.String(),
	)
	response.Success(c, handlershared.NewCheckoutView(result))
}

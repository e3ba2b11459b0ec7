package public

import (
	"strings"

	handlershared "github.com/bakehouse-next/internal/http/handlers/shared"
	"github.com/bakehouse-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CreateOrder 线上下单（登录顾客或游客）
func (h *Handler) CreateOrder(c *gin.Context) {
	log := requestLog(c)
	var req handlershared.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	input := req.ToOrderInput()
	input.Customer = getCustomerIdentity(c)
	if input.Customer == nil && h.CaptchaService != nil {
		if err := h.CaptchaService.VerifyGuestCheckout(req.Captcha.ToServicePayload()); err != nil {
			respondWithMappedError(c, err, handlershared.DomainErrorRules, "captcha verify failed")
			return
		}
	}

	result, err := h.OrderService.CreateOrder(c.Request.Context(), input)
	if err != nil {
		log.Infow("public_order_create_rejected",
			"fulfillment_type", input.FulfillmentType,
			"items", len(input.Items),
			"error", err,
		)
		respondWithMappedError(c, err, checkoutErrorRules, "order could not be placed")
		return
	}
	log.Infow("public_order_created",
		"order_no", result.Order.OrderNo,
		"status", result.Order.Status,
		"total", result.Order.TotalAmount.String(),
	)
	response.Success(c, handlershared.NewCheckoutView(result))
}

// LookupOrder 游客按订单号与邮箱查询订单
func (h *Handler) LookupOrder(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	email := strings.TrimSpace(c.Query("email"))
	if identity := getCustomerIdentity(c); email == "" && identity != nil {
		email = identity.Email
	}

	order, err := h.OrderService.LookupGuestOrder(orderNo, email)
	if err != nil {
		respondWithMappedError(c, err, lookupErrorRules, "order lookup failed")
		return
	}
	response.Success(c, order)
}

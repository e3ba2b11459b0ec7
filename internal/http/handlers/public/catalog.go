package public

import (
	"time"

	handlershared "github.com/bakehouse-next/internal/http/handlers/shared"
	"github.com/bakehouse-next/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetMenu 公开菜单
func (h *Handler) GetMenu(c *gin.Context) {
	menu, err := h.CatalogService.Menu(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "menu fetch failed", err)
		return
	}
	response.Success(c, menu)
}

// GetTimeslots 公开时段列表
func (h *Handler) GetTimeslots(c *gin.Context) {
	slots, err := h.TimeslotService.ListAvailable(c.Query("date"), c.Query("type"))
	if err != nil {
		respondWithMappedError(c, err, handlershared.DomainErrorRules, "timeslot fetch failed")
		return
	}
	response.Success(c, slots)
}

// ValidatePromoRequest 优惠码校验请求
type ValidatePromoRequest struct {
	Code     string          `json:"code" binding:"required"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ValidatePromo 只读校验优惠码，不占用次数
func (h *Handler) ValidatePromo(c *gin.Context) {
	var req ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if req.Subtotal.IsNegative() {
		respondError(c, response.CodeBadRequest, "subtotal must not be negative", nil)
		return
	}

	evaluation, err := h.PromoService.Evaluate(req.Code, req.Subtotal, time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "promo validate failed", err)
		return
	}
	data := gin.H{
		"code":     req.Code,
		"valid":    evaluation.Valid,
		"discount": "0.00",
	}
	if evaluation.Valid {
		data["discount"] = evaluation.Discount.StringFixed(2)
	} else {
		data["reason"] = evaluation.Reason
		data["message"] = evaluation.Message
	}
	response.Success(c, data)
}

package public

import (
	handlershared "github.com/bakehouse-next/internal/http/handlers/shared"
	"github.com/bakehouse-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// PreviewCart 购物车金额预览（宽松解析，不落库）
func (h *Handler) PreviewCart(c *gin.Context) {
	var req handlershared.CartPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	preview, err := h.OrderService.PreviewCart(req.ToPreviewInput())
	if err != nil {
		respondWithMappedError(c, err, handlershared.DomainErrorRules, "cart preview failed")
		return
	}
	response.Success(c, handlershared.NewCartPreviewView(preview))
}

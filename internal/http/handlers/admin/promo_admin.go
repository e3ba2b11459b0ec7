package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/bakehouse-next/internal/http/handlers/shared"
	"github.com/bakehouse-next/internal/http/response"
	"github.com/bakehouse-next/internal/repository"
	"github.com/bakehouse-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreatePromoRequest 创建优惠码请求
type CreatePromoRequest struct {
	Code           string           `json:"code" binding:"required"`
	Description    string           `json:"description"`
	Type           string           `json:"type" binding:"required"`
	Value          decimal.Decimal  `json:"value"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount"`
	MaxUses        *int             `json:"max_uses"`
	StartsAt       *time.Time       `json:"starts_at"`
	ExpiresAt      *time.Time       `json:"expires_at"`
	IsActive       *bool            `json:"is_active"`
}

// UpdatePromoRequest 更新优惠码请求（字段缺省表示不修改）
type UpdatePromoRequest struct {
	Description    *string          `json:"description"`
	Value          *decimal.Decimal `json:"value"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount"`
	MaxUses        *int             `json:"max_uses"`
	StartsAt       *time.Time       `json:"starts_at"`
	ExpiresAt      *time.Time       `json:"expires_at"`
	IsActive       *bool            `json:"is_active"`
}

// ListPromos 优惠码列表
func (h *Handler) ListPromos(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.PromoListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "is_active invalid", nil)
			return
		}
		filter.IsActive = &active
	}

	promos, total, err := h.PromoService.ListPromos(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "promo fetch failed", err)
		return
	}
	response.SuccessWithPage(c, promos, handlershared.BuildPagination(page, pageSize, total))
}

// CreatePromo 创建优惠码
func (h *Handler) CreatePromo(c *gin.Context) {
	var req CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	promo, err := h.PromoService.CreatePromo(service.PromoInput{
		Code:           req.Code,
		Description:    req.Description,
		Type:           req.Type,
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		StartsAt:       req.StartsAt,
		ExpiresAt:      req.ExpiresAt,
		IsActive:       active,
	})
	if err != nil {
		respondWithMappedError(c, err, "promo create failed")
		return
	}
	requestLog(c).Infow("admin_promo_created", "promo_id", promo.ID, "code", promo.Code)
	response.Success(c, promo)
}

// UpdatePromo 更新优惠码
func (h *Handler) UpdatePromo(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req UpdatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	promo, err := h.PromoService.UpdatePromo(id, service.PromoPatch{
		Description:    req.Description,
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		StartsAt:       req.StartsAt,
		ExpiresAt:      req.ExpiresAt,
		IsActive:       req.IsActive,
	})
	if err != nil {
		respondWithMappedError(c, err, "promo update failed")
		return
	}
	response.Success(c, promo)
}

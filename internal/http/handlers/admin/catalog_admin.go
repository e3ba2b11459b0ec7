package admin

import (
	"context"

	handlershared "github.com/bakehouse-next/internal/http/handlers/shared"
	"github.com/bakehouse-next/internal/http/response"
	"github.com/bakehouse-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SetActiveRequest 上下架请求
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// CreateTimeslotRequest 创建时段请求
type CreateTimeslotRequest struct {
	Date        string `json:"date" binding:"required"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	Type        string `json:"type" binding:"required"`
	MaxCapacity int    `json:"max_capacity"`
}

// SetProductActive 商品上下架
func (h *Handler) SetProductActive(c *gin.Context) {
	h.setActive(c, "product", h.CatalogService.SetProductActive)
}

// SetVariantActive 规格上下架
func (h *Handler) SetVariantActive(c *gin.Context) {
	h.setActive(c, "variant", h.CatalogService.SetVariantActive)
}

// SetAddonActive 加料上下架
func (h *Handler) SetAddonActive(c *gin.Context) {
	h.setActive(c, "addon", h.CatalogService.SetAddonActive)
}

func (h *Handler) setActive(c *gin.Context, kind string, apply func(context.Context, uint, bool) error) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := apply(c.Request.Context(), id, *req.IsActive); err != nil {
		respondWithMappedError(c, err, kind+" update failed")
		return
	}
	requestLog(c).Infow("admin_catalog_toggled", "kind", kind, "id", id, "is_active", *req.IsActive)
	response.Success(c, gin.H{"id": id, "is_active": *req.IsActive})
}

// CreateTimeslot 创建时段
func (h *Handler) CreateTimeslot(c *gin.Context) {
	var req CreateTimeslotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	slot, err := h.TimeslotService.CreateTimeslot(service.CreateTimeslotInput{
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Type:        req.Type,
		MaxCapacity: req.MaxCapacity,
	})
	if err != nil {
		respondWithMappedError(c, err, "timeslot create failed")
		return
	}
	response.Success(c, slot)
}

// ListTimeslots 后台时段列表
func (h *Handler) ListTimeslots(c *gin.Context) {
	slots, err := h.TimeslotService.ListAvailable(c.Query("date"), c.Query("type"))
	if err != nil {
		respondWithMappedError(c, err, "timeslot fetch failed")
		return
	}
	response.Success(c, slots)
}

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
)

// ListOrders 后台订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_from invalid", nil)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_to invalid", nil)
		return
	}

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		Status:        strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Channel:       strings.ToUpper(strings.TrimSpace(c.Query("channel"))),
		OrderNo:       strings.TrimSpace(c.Query("order_no")),
		Keyword:       strings.TrimSpace(c.Query("keyword")),
		ScheduledDate: strings.TrimSpace(c.Query("scheduled_date")),
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "order fetch failed", err)
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(page, pageSize, total))
}

// GetOrder 后台订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(id)
	if err != nil {
		respondWithMappedError(c, err, "order fetch failed")
		return
	}
	response.Success(c, order)
}

// UpdateOrderStatusRequest 状态流转请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus 推进订单状态
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	order, err := h.OrderService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondWithMappedError(c, err, "order update failed")
		return
	}
	requestLog(c).Infow("admin_order_status_updated", "order_id", id, "status", order.Status)
	response.Success(c, order)
}

// CancelOrder 取消订单（已刷卡订单自动退款）
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.Cancel(c.Request.Context(), id)
	if err != nil {
		respondWithMappedError(c, err, "order cancel failed")
		return
	}
	requestLog(c).Infow("admin_order_cancelled", "order_id", id, "refund_id", order.RefundID)
	response.Success(c, order)
}

// RefundOrder 退款
func (h *Handler) RefundOrder(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.Refund(c.Request.Context(), id)
	if err != nil {
		respondWithMappedError(c, err, "order refund failed")
		return
	}
	requestLog(c).Infow("admin_order_refunded", "order_id", id, "refund_id", order.RefundID)
	response.Success(c, order)
}

// RescheduleOrderRequest 改期请求
type RescheduleOrderRequest struct {
	TimeslotID    uint   `json:"timeslot_id"`
	ScheduledDate string `json:"scheduled_date"`
}

// RescheduleOrder 改期
func (h *Handler) RescheduleOrder(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req RescheduleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	order, err := h.OrderService.Reschedule(c.Request.Context(), id, service.RescheduleInput{
		TimeslotID:    req.TimeslotID,
		ScheduledDate: req.ScheduledDate,
	})
	if err != nil {
		respondWithMappedError(c, err, "order reschedule failed")
		return
	}
	response.Success(c, order)
}

// DeleteOrder 删除订单（软删除并释放时段）
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := h.OrderService.Delete(c.Request.Context(), id); err != nil {
		respondWithMappedError(c, err, "order delete failed")
		return
	}
	requestLog(c).Infow("admin_order_deleted", "order_id", id)
	response.Success(c, nil)
}

func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/queue"
	"github.com/bakehouse-next/internal/repository"

	"gorm.io/gorm"
)

// 正常推进路径；取消与退款单独处理
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusNew: {
		constants.OrderStatusConfirmed: true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusInProduction: true,
	},
	constants.OrderStatusInProduction: {
		constants.OrderStatusReady: true,
	},
	constants.OrderStatusReady: {
		constants.OrderStatusOutForDelivery: true,
		constants.OrderStatusCompleted:      true,
	},
	constants.OrderStatusOutForDelivery: {
		constants.OrderStatusCompleted: true,
	},
}

// IsTerminalStatus 终态订单不可再变更
func IsTerminalStatus(status string) bool {
	switch status {
	case constants.OrderStatusCompleted, constants.OrderStatusCancelled, constants.OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransition 判断订单能否推进到目标状态
func CanTransition(order *models.Order, target string) bool {
	if order == nil || IsTerminalStatus(order.Status) {
		return false
	}
	switch target {
	case constants.OrderStatusCancelled, constants.OrderStatusRefunded:
		return true
	}
	if !allowedTransitions[order.Status][target] {
		return false
	}
	isDelivery := order.FulfillmentType == constants.FulfillmentDelivery
	if target == constants.OrderStatusOutForDelivery && !isDelivery {
		return false
	}
	// 配送单必须经过 OUT_FOR_DELIVERY
	if order.Status == constants.OrderStatusReady && target == constants.OrderStatusCompleted && isDelivery {
		return false
	}
	return true
}

func invalidTransition(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}

func (s *OrderService) loadOrder(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) reload(order *models.Order) *models.Order {
	full, err := s.orderRepo.GetByID(order.ID)
	if err != nil || full == nil {
		return order
	}
	return full
}

// UpdateStatus 后台推进订单状态
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, target string) (*models.Order, error) {
	target = normalizeUpper(target)
	switch target {
	case constants.OrderStatusCancelled:
		return s.Cancel(ctx, id)
	case constants.OrderStatusRefunded:
		return s.Refund(ctx, id)
	}
	order, err := s.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order, target) {
		return nil, invalidTransition(order.Status, target)
	}
	ok, err := s.orderRepo.UpdateFromStatus(order.ID, order.Status, map[string]interface{}{
		"status":     target,
		"updated_at": s.opts.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	if !ok {
		return nil, invalidTransition(order.Status, target)
	}
	logger.Infow("order_status_updated",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"from", order.Status,
		"to", target,
	)
	return s.reload(order), nil
}

// Cancel 取消订单：释放时段，已刷卡订单发起全额退款（失败不阻塞取消）
func (s *OrderService) Cancel(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if IsTerminalStatus(order.Status) {
		return nil, invalidTransition(order.Status, constants.OrderStatusCancelled)
	}
	now := s.opts.Now()
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.WithTx(tx).UpdateFromStatus(order.ID, order.Status, map[string]interface{}{
			"status":       constants.OrderStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return invalidTransition(order.Status, constants.OrderStatusCancelled)
		}
		return s.releaseSeat(s.timeslotRepo.WithTx(tx), order)
	})
	if err != nil {
		return nil, wrapOrderUpdateError(err)
	}
	logger.Infow("order_cancelled",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"from", order.Status,
	)

	order.Status = constants.OrderStatusCancelled
	if isCardPaid(order) {
		s.refundOnCancel(ctx, order)
	} else if order.PaymentIntentID != nil {
		s.cancelPaymentIntentQuietly(ctx, *order.PaymentIntentID, order.CheckoutRef)
	}
	return s.reload(order), nil
}

func (s *OrderService) refundOnCancel(ctx context.Context, order *models.Order) {
	refundID, err := s.refundPayment(ctx, order)
	if err == nil {
		err = s.recordRefund(order, refundID)
	}
	if err == nil {
		return
	}
	logger.Errorw("order_refund_on_cancel_failed",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"error", err,
	)
	if enqueueErr := s.queueClient.EnqueueOrderRefundRetry(queue.OrderRefundRetryPayload{
		OrderID: order.ID,
		Reason:  "cancel",
	}); enqueueErr != nil {
		logger.Errorw("order_enqueue_refund_retry_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", enqueueErr,
		)
	}
}

// Refund 显式退款：刷卡订单失败时返回 ErrPaymentFailed 且状态不变
func (s *OrderService) Refund(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if IsTerminalStatus(order.Status) || !order.IsPaid {
		return nil, invalidTransition(order.Status, constants.OrderStatusRefunded)
	}

	refundID := ""
	if order.PaymentMethod == constants.PaymentMethodCard && order.PaymentIntentID != nil {
		refundID, err = s.refundPayment(ctx, order)
		if err != nil {
			logger.Warnw("order_refund_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"error", err,
			)
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
	}

	now := s.opts.Now()
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.WithTx(tx).UpdateFromStatus(order.ID, order.Status, map[string]interface{}{
			"status":      constants.OrderStatusRefunded,
			"refund_id":   refundID,
			"refunded_at": now,
			"updated_at":  now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return invalidTransition(order.Status, constants.OrderStatusRefunded)
		}
		return s.releaseSeat(s.timeslotRepo.WithTx(tx), order)
	})
	if err != nil {
		if refundID != "" {
			logger.Errorw("order_refund_status_update_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"refund_id", refundID,
				"error", err,
			)
		}
		return nil, wrapOrderUpdateError(err)
	}
	logger.Infow("order_refunded",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"refund_id", refundID,
	)
	return s.reload(order), nil
}

// RescheduleInput 改期输入（时段优先，其次仅改日期）
type RescheduleInput struct {
	TimeslotID    uint
	ScheduledDate string
}

// Reschedule 改期：释放旧时段与占用新时段在同一事务内完成
func (s *OrderService) Reschedule(ctx context.Context, id uint, input RescheduleInput) (*models.Order, error) {
	order, err := s.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if IsTerminalStatus(order.Status) {
		return nil, fmt.Errorf("%w: %s order cannot be rescheduled", ErrInvalidStateTransition, strings.ToLower(order.Status))
	}
	if order.FulfillmentType == constants.FulfillmentWalkIn {
		return nil, newValidationError("fulfillment_type", "walk-in orders cannot be rescheduled")
	}

	var newSlot *models.Timeslot
	newDate := strings.TrimSpace(input.ScheduledDate)
	switch {
	case input.TimeslotID != 0:
		newSlot, err = s.loadTimeslot(input.TimeslotID, order.FulfillmentType)
		if err != nil {
			return nil, err
		}
		if order.TimeslotID != nil && *order.TimeslotID == newSlot.ID {
			return order, nil
		}
		newDate = newSlot.Date
	case newDate != "":
		if _, err := time.Parse("2006-01-02", newDate); err != nil {
			return nil, newValidationError("scheduled_date", "must be YYYY-MM-DD")
		}
	default:
		return nil, newValidationError("timeslot_id", "timeslot_id or scheduled_date is required")
	}

	updates := map[string]interface{}{
		"scheduled_date": newDate,
		"timeslot_id":    nil,
		"updated_at":     s.opts.Now(),
	}
	if newSlot != nil {
		updates["timeslot_id"] = newSlot.ID
	}
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.WithTx(tx).UpdateFromStatus(order.ID, order.Status, updates)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order changed concurrently", ErrInvalidStateTransition)
		}
		slotRepo := s.timeslotRepo.WithTx(tx)
		if err := s.releaseSeat(slotRepo, order); err != nil {
			return err
		}
		if newSlot == nil {
			return nil
		}
		reserved, err := s.reserveSeat(slotRepo, order.Channel, newSlot.ID)
		if err != nil {
			return err
		}
		if !reserved {
			return ErrTimeslotUnavailable
		}
		return nil
	})
	if err != nil {
		return nil, wrapOrderUpdateError(err)
	}
	logger.Infow("order_rescheduled",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"scheduled_date", newDate,
		"timeslot_id", updates["timeslot_id"],
	)
	return s.reload(order), nil
}

// Delete 软删除未终结订单并释放时段；已支付订单需先取消或退款
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	order, err := s.loadOrder(id)
	if err != nil {
		return err
	}
	if IsTerminalStatus(order.Status) {
		return fmt.Errorf("%w: %s order cannot be deleted", ErrInvalidStateTransition, strings.ToLower(order.Status))
	}
	if order.IsPaid {
		return fmt.Errorf("%w: paid order must be cancelled or refunded first", ErrInvalidStateTransition)
	}
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		ok, err := orderRepo.UpdateFromStatus(order.ID, order.Status, map[string]interface{}{
			"updated_at": s.opts.Now(),
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order changed concurrently", ErrInvalidStateTransition)
		}
		if err := orderRepo.SoftDelete(order.ID); err != nil {
			return err
		}
		return s.releaseSeat(s.timeslotRepo.WithTx(tx), order)
	})
	if err != nil {
		return wrapOrderUpdateError(err)
	}
	if order.PaymentIntentID != nil {
		s.cancelPaymentIntentQuietly(ctx, *order.PaymentIntentID, order.CheckoutRef)
	}
	logger.Infow("order_deleted",
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	return nil
}

func (s *OrderService) releaseSeat(repo repository.TimeslotRepository, order *models.Order) error {
	if order.TimeslotID == nil {
		return nil
	}
	released, err := repo.Release(*order.TimeslotID)
	if err != nil {
		return err
	}
	if !released {
		logger.Warnw("order_timeslot_release_noop",
			"order_id", order.ID,
			"timeslot_id", *order.TimeslotID,
		)
	}
	return nil
}

func wrapOrderUpdateError(err error) error {
	if isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
}

func isCardPaid(order *models.Order) bool {
	return order.IsPaid &&
		order.PaymentMethod == constants.PaymentMethodCard &&
		order.PaymentIntentID != nil &&
		order.RefundID == ""
}

// GetOrder 后台订单详情
func (s *OrderService) GetOrder(id uint) (*models.Order, error) {
	return s.loadOrder(id)
}

// ListOrders 后台订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// LookupGuestOrder 按订单号与联系邮箱查询订单
func (s *OrderService) LookupGuestOrder(orderNo, email string) (*models.Order, error) {
	orderNo = strings.ToUpper(strings.TrimSpace(orderNo))
	email = strings.ToLower(strings.TrimSpace(email))
	if orderNo == "" || email == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil || !strings.EqualFold(order.ContactEmail(), email) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

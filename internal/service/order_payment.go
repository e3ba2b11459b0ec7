package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/queue"
)

// 支付回调事件类型
const (
	PaymentEventSucceeded = "payment_intent.succeeded"
	PaymentEventFailed    = "payment_intent.payment_failed"
	PaymentEventCanceled  = "payment_intent.canceled"
)

func (s *OrderService) refundPayment(ctx context.Context, order *models.Order) (string, error) {
	if s.gateway == nil {
		return "", ErrPaymentNotConfigured
	}
	if order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
		return "", fmt.Errorf("order %s has no payment intent", order.OrderNo)
	}
	return s.gateway.Refund(ctx, RefundRequest{
		PaymentIntentID: *order.PaymentIntentID,
		Amount:          order.TotalAmount.Decimal,
		Currency:        order.Currency,
		IdempotencyKey:  "refund-" + order.CheckoutRef,
	})
}

// recordRefund 记录网关退款单号，不改变订单状态
func (s *OrderService) recordRefund(order *models.Order, refundID string) error {
	now := s.opts.Now()
	ok, err := s.orderRepo.UpdateFromStatus(order.ID, order.Status, map[string]interface{}{
		"refund_id":   refundID,
		"refunded_at": now,
		"updated_at":  now,
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: order changed concurrently", ErrOrderUpdateFailed)
	}
	order.RefundID = refundID
	order.RefundedAt = &now
	logger.Infow("order_refund_recorded",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"refund_id", refundID,
	)
	return nil
}

// HandleStripeWebhook 校验并处理 Stripe 回调
func (s *OrderService) HandleStripeWebhook(ctx context.Context, headers map[string]string, body []byte) (*PaymentEvent, error) {
	if s.gateway == nil {
		return nil, ErrPaymentNotConfigured
	}
	event, err := s.gateway.ParseWebhook(headers, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookInvalid, err)
	}
	if err := s.HandlePaymentEvent(ctx, event); err != nil {
		return event, err
	}
	return event, nil
}

// HandlePaymentEvent 处理支付事件，未知订单直接确认以免网关反复重推
func (s *OrderService) HandlePaymentEvent(ctx context.Context, event *PaymentEvent) error {
	if event == nil {
		return nil
	}
	switch event.EventType {
	case PaymentEventSucceeded:
		_, err := s.MarkPaidByIntent(ctx, event.PaymentIntentID)
		if errors.Is(err, ErrOrderNotFound) {
			logger.Warnw("payment_event_order_not_found",
				"event_id", event.EventID,
				"payment_intent_id", event.PaymentIntentID,
				"checkout_ref", event.Reference,
			)
			return nil
		}
		return err
	case PaymentEventFailed, PaymentEventCanceled:
		logger.Infow("payment_event_intent_not_completed",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"payment_intent_id", event.PaymentIntentID,
			"status", event.Status,
		)
	default:
		logger.Debugw("payment_event_ignored",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}

// MarkPaidByIntent 标记订单已支付（幂等）。NEW 订单推进到 CONFIRMED；
// 已取消订单收到付款时补记支付并投递退款任务。
func (s *OrderService) MarkPaidByIntent(ctx context.Context, intentID string) (*models.Order, error) {
	if intentID == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByPaymentIntentID(intentID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.IsPaid {
		return order, nil
	}
	if order.Status == constants.OrderStatusRefunded {
		logger.Warnw("order_paid_after_refund",
			"order_id", order.ID,
			"order_no", order.OrderNo,
		)
		return order, nil
	}

	now := s.opts.Now()
	updates := map[string]interface{}{
		"is_paid":    true,
		"paid_at":    now,
		"updated_at": now,
	}
	if order.Status == constants.OrderStatusNew {
		updates["status"] = constants.OrderStatusConfirmed
	}
	ok, err := s.orderRepo.UpdateFromStatus(order.ID, order.Status, updates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderUpdateFailed, err)
	}
	if !ok {
		// 状态被并发修改，重新读取后再处理一次
		return s.markPaidRetry(ctx, order)
	}

	logger.Infow("order_paid",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"payment_intent_id", intentID,
	)
	if order.Status == constants.OrderStatusCancelled {
		logger.Warnw("order_paid_after_cancel",
			"order_id", order.ID,
			"order_no", order.OrderNo,
		)
		if err := s.queueClient.EnqueueOrderRefundRetry(queue.OrderRefundRetryPayload{
			OrderID: order.ID,
			Reason:  "paid_after_cancel",
		}); err != nil {
			logger.Errorw("order_enqueue_refund_retry_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"error", err,
			)
		}
	}
	return s.reload(order), nil
}

func (s *OrderService) markPaidRetry(ctx context.Context, stale *models.Order) (*models.Order, error) {
	current, err := s.orderRepo.GetByID(stale.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrOrderNotFound
	}
	if current.IsPaid {
		return current, nil
	}
	if current.Status == stale.Status {
		return nil, ErrOrderUpdateFailed
	}
	return s.MarkPaidByIntent(ctx, *stale.PaymentIntentID)
}

// CancelUnpaidExpired 超时任务：仍未支付的 NEW 订单自动取消
func (s *OrderService) CancelUnpaidExpired(ctx context.Context, id uint) error {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return err
	}
	if order == nil || order.IsPaid || order.Status != constants.OrderStatusNew {
		return nil
	}
	if _, err := s.Cancel(ctx, id); err != nil {
		if errors.Is(err, ErrInvalidStateTransition) {
			return nil
		}
		return err
	}
	logger.Infow("order_payment_timeout_cancelled",
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	return nil
}

// RetryRefund 退款重试任务，返回错误时由队列继续重试
func (s *OrderService) RetryRefund(ctx context.Context, id uint) error {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return err
	}
	if order == nil || order.Status != constants.OrderStatusCancelled || !isCardPaid(order) {
		return nil
	}
	refundID, err := s.refundPayment(ctx, order)
	if err != nil {
		logger.Warnw("order_refund_retry_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
		return err
	}
	return s.recordRefund(order, refundID)
}

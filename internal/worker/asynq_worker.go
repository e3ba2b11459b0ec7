package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/provider"
	"github.com/bakehouse-next/internal/queue"
	"github.com/bakehouse-next/internal/service"

	"github.com/hibiken/asynq"
)

// OrderTaskHandler 订单异步任务所需的服务能力
type OrderTaskHandler interface {
	CancelUnpaidExpired(ctx context.Context, id uint) error
	RetryRefund(ctx context.Context, id uint) error
}

// Consumer 异步任务消费者
type Consumer struct {
	orders OrderTaskHandler
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil || c.OrderService == nil {
		return &Consumer{}
	}
	return &Consumer{orders: c.OrderService}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPaymentExpire, c.handleOrderPaymentExpire)
	mux.HandleFunc(queue.TaskOrderRefundRetry, c.handleOrderRefundRetry)
}

func (c *Consumer) handleOrderPaymentExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_payment_timeout_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderPaymentExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_payment_timeout_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_payment_timeout_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.orders == nil {
		logger.Warnw("worker_order_payment_timeout_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.orders.CancelUnpaidExpired(ctx, payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_payment_timeout_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderUpdateFailed):
			logger.Warnw("worker_order_payment_timeout_update_failed", "order_id", payload.OrderID, "error", err)
			return err
		default:
			logger.Warnw("worker_order_payment_timeout_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleOrderRefundRetry(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_refund_retry_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderRefundRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_refund_retry_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_refund_retry_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.orders == nil {
		logger.Warnw("worker_order_refund_retry_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.orders.RetryRefund(ctx, payload.OrderID); err != nil {
		if errors.Is(err, service.ErrPaymentNotConfigured) {
			// 网关未配置时重试无意义
			logger.Errorw("worker_order_refund_retry_gateway_missing", "order_id", payload.OrderID, "reason", payload.Reason)
			return nil
		}
		logger.Warnw("worker_order_refund_retry_failed",
			"order_id", payload.OrderID,
			"reason", payload.Reason,
			"error", err,
		)
		return err
	}
	return nil
}

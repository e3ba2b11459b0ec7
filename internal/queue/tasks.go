package queue

import (
	"encoding/json"

	"github.com/bakehouse-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPaymentExpire 未支付订单超时取消任务
	TaskOrderPaymentExpire = constants.TaskOrderPaymentExpire
	// TaskOrderRefundRetry 取消订单退款重试任务
	TaskOrderRefundRetry = constants.TaskOrderRefundRetry
)

// OrderPaymentExpirePayload 超时取消任务载荷
type OrderPaymentExpirePayload struct {
	OrderID uint `json:"order_id"`
}

// OrderRefundRetryPayload 退款重试任务载荷
type OrderRefundRetryPayload struct {
	OrderID uint   `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

// NewOrderPaymentExpireTask 创建超时取消任务
func NewOrderPaymentExpireTask(payload OrderPaymentExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPaymentExpire, body), nil
}

// NewOrderRefundRetryTask 创建退款重试任务
func NewOrderRefundRetryTask(payload OrderRefundRetryPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderRefundRetry, body), nil
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bakehouse-next/internal/queue"
	"github.com/bakehouse-next/internal/service"

	"github.com/hibiken/asynq"
)

type stubOrders struct {
	expired   []uint
	refunded  []uint
	expireErr error
	refundErr error
}

func (s *stubOrders) CancelUnpaidExpired(_ context.Context, id uint) error {
	s.expired = append(s.expired, id)
	return s.expireErr
}

func (s *stubOrders) RetryRefund(_ context.Context, id uint) error {
	s.refunded = append(s.refunded, id)
	return s.refundErr
}

func TestHandleOrderPaymentExpire(t *testing.T) {
	orders := &stubOrders{}
	consumer := &Consumer{orders: orders}

	task, err := queue.NewOrderPaymentExpireTask(queue.OrderPaymentExpirePayload{OrderID: 12})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleOrderPaymentExpire(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}
	if len(orders.expired) != 1 || orders.expired[0] != 12 {
		t.Fatalf("unexpected calls: %v", orders.expired)
	}

	orders.expireErr = fmt.Errorf("%w: lookup", service.ErrOrderNotFound)
	if err := consumer.handleOrderPaymentExpire(context.Background(), task); err != nil {
		t.Fatalf("missing order should be acknowledged: %v", err)
	}
	orders.expireErr = fmt.Errorf("%w: db down", service.ErrOrderUpdateFailed)
	if err := consumer.handleOrderPaymentExpire(context.Background(), task); err == nil {
		t.Fatalf("update failure should be retried")
	}

	bad := asynq.NewTask(queue.TaskOrderPaymentExpire, []byte("{"))
	if err := consumer.handleOrderPaymentExpire(context.Background(), bad); err == nil {
		t.Fatalf("malformed payload should fail")
	}
	zero, _ := queue.NewOrderPaymentExpireTask(queue.OrderPaymentExpirePayload{})
	if err := consumer.handleOrderPaymentExpire(context.Background(), zero); err != nil {
		t.Fatalf("zero order id should be skipped: %v", err)
	}
	if len(orders.expired) != 3 {
		t.Fatalf("zero order id must not reach the service, calls=%v", orders.expired)
	}
}

func TestHandleOrderRefundRetry(t *testing.T) {
	orders := &stubOrders{}
	consumer := &Consumer{orders: orders}
	task, err := queue.NewOrderRefundRetryTask(queue.OrderRefundRetryPayload{OrderID: 5, Reason: "cancel"})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}

	if err := consumer.handleOrderRefundRetry(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}
	orders.refundErr = errors.New("gateway timeout")
	if err := consumer.handleOrderRefundRetry(context.Background(), task); err == nil {
		t.Fatalf("gateway failure should be retried")
	}
	orders.refundErr = service.ErrPaymentNotConfigured
	if err := consumer.handleOrderRefundRetry(context.Background(), task); err != nil {
		t.Fatalf("missing gateway should not retry: %v", err)
	}
	if len(orders.refunded) != 3 {
		t.Fatalf("unexpected calls: %v", orders.refunded)
	}
}

func TestConsumerWithoutOrderService(t *testing.T) {
	consumer := NewConsumer(nil)
	task, _ := queue.NewOrderRefundRetryTask(queue.OrderRefundRetryPayload{OrderID: 5})
	if err := consumer.handleOrderRefundRetry(context.Background(), task); err != nil {
		t.Fatalf("nil service should be skipped: %v", err)
	}
}

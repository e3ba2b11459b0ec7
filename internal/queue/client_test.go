package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/constants"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueOrderPaymentExpire(OrderPaymentExpirePayload{OrderID: 1}, time.Minute); err != nil {
		t.Fatalf("disabled enqueue should be a no-op: %v", err)
	}
	if err := client.EnqueueOrderRefundRetry(OrderRefundRetryPayload{OrderID: 1}); err != nil {
		t.Fatalf("disabled enqueue should be a no-op: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client failed: %v", err)
	}
}

func TestNewOrderRefundRetryTask(t *testing.T) {
	task, err := NewOrderRefundRetryTask(OrderRefundRetryPayload{OrderID: 9, Reason: "cancel"})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != constants.TaskOrderRefundRetry {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var payload OrderRefundRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.OrderID != 9 || payload.Reason != "cancel" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{})
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("unexpected redis addr: %s", opt.Addr)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("unexpected concurrency: %d", cfg.Concurrency)
	}
	if cfg.Queues[constants.QueueCritical] == 0 || cfg.Queues[constants.QueueDefault] == 0 {
		t.Fatalf("both queues should be served: %+v", cfg.Queues)
	}
}

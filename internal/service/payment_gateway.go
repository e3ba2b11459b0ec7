package service

import (
	"context"
	"strings"
	"time"

	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/payment/stripe"

	"github.com/shopspring/decimal"
)

// PaymentIntentRequest 创建支付意图请求
type PaymentIntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Reference      string
	Description    string
	ReceiptEmail   string
	IdempotencyKey string
}

// PaymentIntent 支付意图
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// RefundRequest 退款请求（全额）
type RefundRequest struct {
	PaymentIntentID string
	Amount          decimal.Decimal
	Currency        string
	IdempotencyKey  string
}

// PaymentEvent 支付回调事件
type PaymentEvent struct {
	EventID         string
	EventType       string
	PaymentIntentID string
	Reference       string
	Status          string
}

// PaymentGateway 外部支付意图服务
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, intentID string) error
	Refund(ctx context.Context, req RefundRequest) (string, error)
	ParseWebhook(headers map[string]string, body []byte) (*PaymentEvent, error)
	PublishableKey() string
}

// StripeGateway 基于 Stripe PaymentIntent 的支付网关
type StripeGateway struct {
	cfg *stripe.Config
}

// NewStripeGateway 创建 Stripe 网关，未启用时返回 nil
func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	if !cfg.Enabled {
		return nil
	}
	stripeCfg := &stripe.Config{
		SecretKey:               cfg.SecretKey,
		PublishableKey:          cfg.PublishableKey,
		WebhookSecret:           cfg.WebhookSecret,
		APIBaseURL:              cfg.APIBaseURL,
		WebhookToleranceSeconds: cfg.WebhookToleranceSeconds,
	}
	stripeCfg.Normalize()
	return &StripeGateway{cfg: stripeCfg}
}

// CreatePaymentIntent 创建支付意图
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	result, err := stripe.CreatePaymentIntent(ctx, g.cfg, stripe.CreateIntentInput{
		Amount:         req.Amount.StringFixed(2),
		Currency:       req.Currency,
		Description:    req.Description,
		Reference:      req.Reference,
		ReceiptEmail:   req.ReceiptEmail,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{ID: result.ID, ClientSecret: result.ClientSecret}, nil
}

// CancelPaymentIntent 取消支付意图
func (g *StripeGateway) CancelPaymentIntent(ctx context.Context, intentID string) error {
	return stripe.CancelPaymentIntent(ctx, g.cfg, intentID)
}

// Refund 全额退款，返回退款单号
func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) (string, error) {
	result, err := stripe.CreateRefund(ctx, g.cfg, stripe.RefundInput{
		PaymentIntentID: req.PaymentIntentID,
		Amount:          req.Amount.StringFixed(2),
		Currency:        req.Currency,
		Reason:          "requested_by_customer",
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

// ParseWebhook 校验签名并解析事件
func (g *StripeGateway) ParseWebhook(headers map[string]string, body []byte) (*PaymentEvent, error) {
	result, err := stripe.VerifyAndParseWebhook(g.cfg, headers, body, time.Now())
	if err != nil {
		return nil, err
	}
	return &PaymentEvent{
		EventID:         result.EventID,
		EventType:       strings.ToLower(result.EventType),
		PaymentIntentID: result.PaymentIntentID,
		Reference:       result.Reference,
		Status:          result.Status,
	}, nil
}

// PublishableKey 前端可见的公钥
func (g *StripeGateway) PublishableKey() string {
	return g.cfg.PublishableKey
}

package service

import (
	"strings"

	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/models"

	"github.com/shopspring/decimal"
)

// PricingConfig 计价配置，启动时固定
type PricingConfig struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
	Currency    string
}

// PricingConfigFrom 从全局配置构建计价配置
func PricingConfigFrom(cfg config.PricingConfig) PricingConfig {
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = constants.DefaultCurrency
	}
	return PricingConfig{
		TaxRate:     cfg.TaxRateDecimal(),
		DeliveryFee: cfg.DeliveryFeeDecimal(),
		Currency:    currency,
	}
}

// PricingEngine 纯计价引擎
type PricingEngine struct {
	cfg PricingConfig
}

// NewPricingEngine 创建计价引擎
func NewPricingEngine(cfg PricingConfig) *PricingEngine {
	if cfg.Currency == "" {
		cfg.Currency = constants.DefaultCurrency
	}
	return &PricingEngine{cfg: cfg}
}

// Currency 结算币种
func (e *PricingEngine) Currency() string {
	return e.cfg.Currency
}

// TaxRate 税率
func (e *PricingEngine) TaxRate() decimal.Decimal {
	return e.cfg.TaxRate
}

// PriceInput 计价输入
type PriceInput struct {
	Lines           []ResolvedLine
	FulfillmentType string
	Discount        decimal.Decimal
	Tip             decimal.Decimal
}

// Totals 订单金额汇总
type Totals struct {
	Subtotal    models.Money `json:"subtotal"`
	Discount    models.Money `json:"discount"`
	Taxable     models.Money `json:"taxable"`
	Tax         models.Money `json:"tax"`
	DeliveryFee models.Money `json:"delivery_fee"`
	Tip         models.Money `json:"tip"`
	Total       models.Money `json:"total"`
}

// Subtotal 行小计全精度累加后取整
func (e *PricingEngine) Subtotal(lines []ResolvedLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.LineTotal)
	}
	return models.RoundAmount(sum)
}

// Price 计算订单金额
func (e *PricingEngine) Price(input PriceInput) (*Totals, error) {
	var deliveryFee decimal.Decimal
	switch input.FulfillmentType {
	case constants.FulfillmentDelivery:
		deliveryFee = models.RoundAmount(e.cfg.DeliveryFee)
	case constants.FulfillmentPickup, constants.FulfillmentWalkIn:
		deliveryFee = decimal.Zero
	default:
		return nil, newValidationError("fulfillment_type", "is not supported")
	}

	tip := models.RoundAmount(input.Tip)
	if tip.LessThan(decimal.Zero) {
		return nil, newValidationError("tip_amount", "must not be negative")
	}

	subtotal := e.Subtotal(input.Lines)
	discount := models.RoundAmount(input.Discount)
	if discount.LessThan(decimal.Zero) {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	taxable := subtotal.Sub(discount)
	tax := models.RoundAmount(taxable.Mul(e.cfg.TaxRate))
	total := models.RoundAmount(models.SumAmounts(taxable, tax, deliveryFee, tip))

	return &Totals{
		Subtotal:    models.NewMoneyFromDecimal(subtotal),
		Discount:    models.NewMoneyFromDecimal(discount),
		Taxable:     models.NewMoneyFromDecimal(taxable),
		Tax:         models.NewMoneyFromDecimal(tax),
		DeliveryFee: models.NewMoneyFromDecimal(deliveryFee),
		Tip:         models.NewMoneyFromDecimal(tip),
		Total:       models.NewMoneyFromDecimal(total),
	}, nil
}

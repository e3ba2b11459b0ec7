package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/service"

	"github.com/shopspring/decimal"
)

// AddonSelectionRequest 加料选择，兼容纯 ID 与 {addon_id, note} 两种写法
type AddonSelectionRequest struct {
	AddonID uint   `json:"addon_id"`
	Note    string `json:"note"`
}

// UnmarshalJSON 接受数字 ID 或对象
func (r *AddonSelectionRequest) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] != '{' {
		var id uint
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("addon must be an id or object: %w", err)
		}
		r.AddonID = id
		return nil
	}
	type alias AddonSelectionRequest
	var obj alias
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*r = AddonSelectionRequest(obj)
	return nil
}

// CartItemRequest 购物车行请求
type CartItemRequest struct {
	ProductID uint                    `json:"product_id"`
	VariantID uint                    `json:"variant_id"`
	Quantity  int                     `json:"quantity"`
	Addons    []AddonSelectionRequest `json:"addons"`
	Note      string                  `json:"note"`
}

// GuestRequest 游客联系方式
type GuestRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CartPreviewRequest 购物车预览请求
type CartPreviewRequest struct {
	Items           []CartItemRequest `json:"items"`
	FulfillmentType string            `json:"fulfillment_type"`
	PromoCode       string            `json:"promo_code"`
	TipAmount       decimal.Decimal   `json:"tip_amount"`
}

// CheckoutRequest 下单请求（线上与 POS 共用）
type CheckoutRequest struct {
	Items           []CartItemRequest     `json:"items"`
	FulfillmentType string                `json:"fulfillment_type"`
	PaymentMethod   string                `json:"payment_method"`
	ScheduledDate   string                `json:"scheduled_date"`
	TimeslotID      uint                  `json:"timeslot_id"`
	DeliveryAddress string                `json:"delivery_address"`
	TipAmount       decimal.Decimal       `json:"tip_amount"`
	PromoCode       string                `json:"promo_code"`
	Notes           string                `json:"notes"`
	Guest           *GuestRequest         `json:"guest"`
	Captcha         CaptchaPayloadRequest `json:"captcha"`
}

// ToCartLines 转换为 service 层购物车行
func ToCartLines(items []CartItemRequest) []service.CartLineInput {
	lines := make([]service.CartLineInput, 0, len(items))
	for _, item := range items {
		addons := make([]service.AddonSelection, 0, len(item.Addons))
		for _, addon := range item.Addons {
			addons = append(addons, service.AddonSelection{
				AddonID: addon.AddonID,
				Note:    strings.TrimSpace(addon.Note),
			})
		}
		lines = append(lines, service.CartLineInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Addons:    addons,
			Note:      strings.TrimSpace(item.Note),
		})
	}
	return lines
}

// ToPreviewInput 转换为预览输入
func (r CartPreviewRequest) ToPreviewInput() service.CartPreviewInput {
	return service.CartPreviewInput{
		Items:           ToCartLines(r.Items),
		FulfillmentType: r.FulfillmentType,
		PromoCode:       r.PromoCode,
		TipAmount:       r.TipAmount,
	}
}

// ToOrderInput 转换为下单输入
func (r CheckoutRequest) ToOrderInput() service.CreateOrderInput {
	input := service.CreateOrderInput{
		Items:           ToCartLines(r.Items),
		FulfillmentType: r.FulfillmentType,
		PaymentMethod:   r.PaymentMethod,
		ScheduledDate:   strings.TrimSpace(r.ScheduledDate),
		TimeslotID:      r.TimeslotID,
		DeliveryAddress: r.DeliveryAddress,
		TipAmount:       r.TipAmount,
		PromoCode:       r.PromoCode,
		Notes:           r.Notes,
	}
	if r.Guest != nil {
		input.Guest = &service.GuestInfo{
			Name:  r.Guest.Name,
			Email: r.Guest.Email,
			Phone: r.Guest.Phone,
		}
	}
	return input
}

// LineView 行金额展示（单价与行小计按 2 位输出）
type LineView struct {
	LineIndex   int                     `json:"line_index"`
	ProductID   uint                    `json:"product_id"`
	ProductName string                  `json:"product_name"`
	VariantID   *uint                   `json:"variant_id,omitempty"`
	VariantName string                  `json:"variant_name,omitempty"`
	Addons      []service.ResolvedAddon `json:"addons,omitempty"`
	UnitPrice   models.Money            `json:"unit_price"`
	Quantity    int                     `json:"quantity"`
	LineTotal   models.Money            `json:"line_total"`
	Note        string                  `json:"note,omitempty"`
}

// CartPreviewView 预览响应
type CartPreviewView struct {
	Lines    []LineView                  `json:"lines"`
	Warnings []service.ResolutionWarning `json:"warnings"`
	Totals   *service.Totals             `json:"totals"`
	Promo    *service.PromoPreview       `json:"promo,omitempty"`
	Currency string                      `json:"currency"`
}

// NewCartPreviewView 构建预览响应
func NewCartPreviewView(preview *service.CartPreview) CartPreviewView {
	lines := make([]LineView, 0, len(preview.Lines))
	for _, line := range preview.Lines {
		lines = append(lines, LineView{
			LineIndex:   line.LineIndex,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			VariantID:   line.VariantID,
			VariantName: line.VariantName,
			Addons:      line.Addons,
			UnitPrice:   models.NewMoneyFromDecimal(line.UnitPrice),
			Quantity:    line.Quantity,
			LineTotal:   models.NewMoneyFromDecimal(line.LineTotal),
			Note:        line.Note,
		})
	}
	warnings := preview.Warnings
	if warnings == nil {
		warnings = []service.ResolutionWarning{}
	}
	return CartPreviewView{
		Lines:    lines,
		Warnings: warnings,
		Totals:   preview.Totals,
		Promo:    preview.Promo,
		Currency: preview.Currency,
	}
}

// CheckoutView 下单响应
type CheckoutView struct {
	Order          *models.Order `json:"order"`
	ClientSecret   string        `json:"client_secret,omitempty"`
	PublishableKey string        `json:"publishable_key,omitempty"`
}

// NewCheckoutView 构建下单响应
func NewCheckoutView(result *service.CreateOrderResult) CheckoutView {
	return CheckoutView{
		Order:          result.Order,
		ClientSecret:   result.ClientSecret,
		PublishableKey: result.PublishableKey,
	}
}

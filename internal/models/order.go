package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                       // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                       // 订单编号
	Status          string         `gorm:"index;not null" json:"status"`                               // 订单状态
	Channel         string         `gorm:"type:varchar(20);not null;index" json:"channel"`             // 下单渠道（ONLINE/POS）
	FulfillmentType string         `gorm:"type:varchar(20);not null" json:"fulfillment_type"`          // 交付方式
	Currency        string         `gorm:"type:varchar(10);not null" json:"currency"`                  // 币种
	Subtotal        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`      // 商品小计
	DiscountAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`      // 优惠金额
	TaxRate         string         `gorm:"type:varchar(16);not null" json:"tax_rate"`                  // 下单时税率快照
	TaxAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`    // 税额
	DeliveryFee     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"delivery_fee"`  // 配送费
	TipAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"tip_amount"`    // 小费
	TotalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`  // 实付金额
	PaymentMethod   string         `gorm:"type:varchar(20);not null" json:"payment_method"`            // 支付方式
	PaymentIntentID *string        `gorm:"type:varchar(120);uniqueIndex" json:"payment_intent_id"`     // 支付意图ID
	CheckoutRef     string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"checkout_ref"`  // 结算幂等引用
	IsPaid          bool           `gorm:"not null;default:false" json:"is_paid"`                      // 是否已支付
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`                                       // 支付时间
	RefundID        string         `gorm:"type:varchar(120)" json:"refund_id,omitempty"`               // 退款单号
	RefundedAt      *time.Time     `json:"refunded_at"`                                                // 退款时间
	CancelledAt     *time.Time     `json:"cancelled_at"`                                               // 取消时间
	PromoID         *uint          `gorm:"index" json:"promo_id,omitempty"`                            // 优惠码ID
	PromoCode       string         `gorm:"type:varchar(64)" json:"promo_code,omitempty"`               // 优惠码快照
	ScheduledDate   string         `gorm:"type:varchar(10);index" json:"scheduled_date,omitempty"`     // 预约日期
	TimeslotID      *uint          `gorm:"index" json:"timeslot_id,omitempty"`                         // 时段ID
	DeliveryAddress string         `gorm:"type:text" json:"delivery_address,omitempty"`                // 配送地址
	CustomerID      *uint          `gorm:"index" json:"customer_id,omitempty"`                         // 顾客ID（游客为空）
	GuestName       string         `gorm:"type:varchar(120)" json:"guest_name,omitempty"`              // 游客姓名
	GuestEmail      string         `gorm:"type:varchar(200);index" json:"guest_email,omitempty"`       // 游客邮箱
	GuestPhone      string         `gorm:"type:varchar(40)" json:"guest_phone,omitempty"`              // 游客电话
	Notes           string         `gorm:"type:text" json:"notes,omitempty"`                           // 订单备注
	StaffID         *uint          `gorm:"index" json:"staff_id,omitempty"`                            // 收银员ID（POS）
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	Items    []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`       // 订单项
	Customer *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"` // 顾客
	Timeslot *Timeslot   `gorm:"foreignKey:TimeslotID" json:"timeslot,omitempty"` // 时段
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// TaxableAmount 应税金额（小计减优惠）
func (o *Order) TaxableAmount() Money {
	if o == nil {
		return Money{}
	}
	return NewMoneyFromDecimal(o.Subtotal.Sub(o.DiscountAmount.Decimal))
}

// ContactEmail 通知邮箱（登录顾客优先）
func (o *Order) ContactEmail() string {
	if o == nil {
		return ""
	}
	if o.Customer != nil && o.Customer.Email != "" {
		return o.Customer.Email
	}
	return o.GuestEmail
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Promo 优惠码表
type Promo struct {
	ID             uint           `gorm:"primarykey" json:"id"`                               // 主键
	Code           string         `gorm:"uniqueIndex;not null" json:"code"`                   // 优惠码（大写存储）
	Description    string         `gorm:"type:varchar(255)" json:"description"`               // 说明
	Type           string         `gorm:"type:varchar(20);not null" json:"type"`              // 类型（PERCENTAGE/FIXED_AMOUNT）
	Value          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"value"` // 面值或百分比
	MinOrderAmount *Money         `gorm:"type:decimal(20,2)" json:"min_order_amount"`         // 最低订单金额
	MaxUses        *int           `json:"max_uses"`                                           // 最大使用次数（为空不限）
	UsedCount      int            `gorm:"not null;default:0" json:"used_count"`               // 已使用次数
	StartsAt       *time.Time     `gorm:"index" json:"starts_at"`                             // 生效时间
	ExpiresAt      *time.Time     `gorm:"index" json:"expires_at"`                            // 过期时间
	IsActive       bool           `gorm:"default:true" json:"is_active"`                      // 是否启用
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Promo) TableName() string {
	return "promos"
}

// PromoRedemption 优惠码核销记录（只写不改）
type PromoRedemption struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                         // 主键
	PromoID        uint      `gorm:"index;not null" json:"promo_id"`                               // 优惠码ID
	OrderID        uint      `gorm:"uniqueIndex;not null" json:"order_id"`                         // 订单ID
	CustomerID     *uint     `gorm:"index" json:"customer_id,omitempty"`                           // 顾客ID（游客为空）
	Code           string    `gorm:"type:varchar(64);not null" json:"code"`                        // 核销时的优惠码
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 实际优惠金额
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                      // 创建时间
}

// TableName 指定表名
func (PromoRedemption) TableName() string {
	return "promo_redemptions"
}

package models

import (
	"time"
)

// OrderItem 订单项表（价格为下单时快照）
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                    // 主键
	OrderID     uint      `gorm:"index;not null" json:"order_id"`                          // 订单ID
	ProductID   uint      `gorm:"index;not null" json:"product_id"`                        // 商品ID
	VariantID   *uint     `gorm:"index" json:"variant_id,omitempty"`                       // 规格ID
	Name        string    `gorm:"type:varchar(200);not null" json:"name"`                  // 商品名称快照
	VariantName string    `gorm:"type:varchar(120)" json:"variant_name,omitempty"`         // 规格名称快照
	BasePrice   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"base_price"` // 基础或规格价格
	UnitPrice   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"` // 含加料单价
	Quantity    int       `gorm:"not null" json:"quantity"`                                // 数量
	LineTotal   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"line_total"` // 行小计
	Note        string    `gorm:"type:text" json:"note,omitempty"`                         // 备注
	CreatedAt   time.Time `json:"created_at"`                                              // 创建时间
	UpdatedAt   time.Time `json:"updated_at"`                                              // 更新时间

	Addons []OrderItemAddon `gorm:"foreignKey:OrderItemID" json:"addons,omitempty"` // 加料快照
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderItemAddon 订单项加料快照
type OrderItemAddon struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderItemID uint      `gorm:"index;not null" json:"order_item_id"`
	AddonID     uint      `gorm:"index;not null" json:"addon_id"`
	Name        string    `gorm:"type:varchar(120);not null" json:"name"`
	UnitPrice   Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`
	Note        string    `gorm:"type:varchar(255)" json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (OrderItemAddon) TableName() string {
	return "order_item_addons"
}

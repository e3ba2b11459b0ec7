package models

import (
	"time"

	"gorm.io/gorm"
)

// Addon 加料表，ProductID 为空表示全局加料
type Addon struct {
	ID        uint           `gorm:"primarykey" json:"id"`                               // 主键
	ProductID *uint          `gorm:"index" json:"product_id,omitempty"`                  // 所属商品（为空为全局）
	Name      string         `gorm:"type:varchar(120);not null" json:"name"`             // 加料名称
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 单件加价
	IsActive  bool           `gorm:"default:true;index" json:"is_active"`                // 是否启用
	SortOrder int            `gorm:"default:0" json:"sort_order"`                        // 排序权重
	CreatedAt time.Time      `json:"created_at"`                                         // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Addon) TableName() string {
	return "addons"
}

// IsGlobal 是否全局加料
func (a *Addon) IsGlobal() bool {
	return a != nil && a.ProductID == nil
}

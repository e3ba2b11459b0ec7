package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                    // 主键
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`                        // 唯一标识
	Name        string         `gorm:"type:varchar(200);not null" json:"name"`                  // 商品名称
	Description string         `gorm:"type:text" json:"description"`                            // 商品描述
	Category    string         `gorm:"type:varchar(100);index" json:"category"`                 // 分类
	BasePrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"base_price"` // 基础价格
	ImageURL    string         `gorm:"type:varchar(500)" json:"image_url"`                      // 图片地址
	IsActive    bool           `gorm:"default:true;index" json:"is_active"`                     // 是否上架
	SortOrder   int            `gorm:"default:0;index" json:"sort_order"`                       // 排序权重
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"` // 规格
	Addons   []Addon          `gorm:"foreignKey:ProductID" json:"addons,omitempty"`   // 商品专属加料
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// FindVariant 在已加载的规格中查找
func (p *Product) FindVariant(variantID uint) *ProductVariant {
	if p == nil || variantID == 0 {
		return nil
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// FindAddon 在商品专属加料中查找
func (p *Product) FindAddon(addonID uint) *Addon {
	if p == nil || addonID == 0 {
		return nil
	}
	for i := range p.Addons {
		if p.Addons[i].ID == addonID {
			return &p.Addons[i]
		}
	}
	return nil
}

// ProductVariant 商品规格表（价格替换基础价格）
type ProductVariant struct {
	ID        uint           `gorm:"primarykey" json:"id"`                               // 主键
	ProductID uint           `gorm:"not null;index" json:"product_id"`                   // 商品ID
	Name      string         `gorm:"type:varchar(120);not null" json:"name"`             // 规格名称
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 规格价格
	IsActive  bool           `gorm:"default:true;index" json:"is_active"`                // 是否启用
	SortOrder int            `gorm:"default:0" json:"sort_order"`                        // 排序权重
	CreatedAt time.Time      `json:"created_at"`                                         // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}

package repository

import (
	"errors"

	"github.com/bakehouse-next/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	GetByID(id uint) (*models.Product, error)
	ListMenu() ([]models.Product, error)
	Create(product *models.Product) error
	SetActive(id uint, active bool) (bool, error)
	SetVariantActive(id uint, active bool) (bool, error)
	WithTx(tx *gorm.DB) *GormProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

func orderBySort(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC").Order("id ASC")
}

// GetByID 获取商品，附带全部规格与专属加料（含停用项，由调用方判断）
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.
		Preload("Variants", orderBySort).
		Preload("Addons", orderBySort).
		First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListMenu 获取上架商品及其启用的规格、加料
func (r *GormProductRepository) ListMenu() ([]models.Product, error) {
	var products []models.Product
	activeOnly := func(db *gorm.DB) *gorm.DB {
		return orderBySort(db.Where("is_active = ?", true))
	}
	err := r.db.
		Preload("Variants", activeOnly).
		Preload("Addons", activeOnly).
		Where("is_active = ?", true).
		Order("sort_order ASC").Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品（含规格与加料）
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// SetActive 切换商品上架状态，返回是否命中记录
func (r *GormProductRepository) SetActive(id uint, active bool) (bool, error) {
	result := r.db.Model(&models.Product{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetVariantActive 切换规格启用状态
func (r *GormProductRepository) SetVariantActive(id uint, active bool) (bool, error) {
	result := r.db.Model(&models.ProductVariant{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

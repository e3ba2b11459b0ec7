package repository

import (
	"errors"

	"github.com/bakehouse-next/internal/models"

	"gorm.io/gorm"
)

// AddonRepository 加料数据访问接口
type AddonRepository interface {
	GetGlobalByID(id uint) (*models.Addon, error)
	ListGlobal() ([]models.Addon, error)
	Create(addon *models.Addon) error
	SetActive(id uint, active bool) (bool, error)
	WithTx(tx *gorm.DB) *GormAddonRepository
}

// GormAddonRepository GORM 实现
type GormAddonRepository struct {
	db *gorm.DB
}

// NewAddonRepository 创建加料仓库
func NewAddonRepository(db *gorm.DB) *GormAddonRepository {
	return &GormAddonRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAddonRepository) WithTx(tx *gorm.DB) *GormAddonRepository {
	if tx == nil {
		return r
	}
	return &GormAddonRepository{db: tx}
}

// GetGlobalByID 获取全局加料（不限启用状态）
func (r *GormAddonRepository) GetGlobalByID(id uint) (*models.Addon, error) {
	var addon models.Addon
	if err := r.db.Where("id = ? AND product_id IS NULL", id).First(&addon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &addon, nil
}

// ListGlobal 获取启用的全局加料
func (r *GormAddonRepository) ListGlobal() ([]models.Addon, error) {
	var addons []models.Addon
	err := orderBySort(r.db.Where("product_id IS NULL AND is_active = ?", true)).Find(&addons).Error
	if err != nil {
		return nil, err
	}
	return addons, nil
}

// Create 创建加料
func (r *GormAddonRepository) Create(addon *models.Addon) error {
	return r.db.Create(addon).Error
}

// SetActive 切换加料启用状态
func (r *GormAddonRepository) SetActive(id uint, active bool) (bool, error) {
	result := r.db.Model(&models.Addon{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

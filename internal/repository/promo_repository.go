package repository

import (
	"errors"
	"strings"

	"github.com/bakehouse-next/internal/models"

	"gorm.io/gorm"
)

// PromoRepository 优惠码数据访问接口
type PromoRepository interface {
	GetByID(id uint) (*models.Promo, error)
	GetByCode(code string) (*models.Promo, error)
	Create(promo *models.Promo) error
	Update(promo *models.Promo) error
	List(filter PromoListFilter) ([]models.Promo, int64, error)
	Redeem(id uint) (bool, error)
	WithTx(tx *gorm.DB) *GormPromoRepository
}

// GormPromoRepository GORM 实现
type GormPromoRepository struct {
	db *gorm.DB
}

// NewPromoRepository 创建优惠码仓库
func NewPromoRepository(db *gorm.DB) *GormPromoRepository {
	return &GormPromoRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromoRepository) WithTx(tx *gorm.DB) *GormPromoRepository {
	if tx == nil {
		return r
	}
	return &GormPromoRepository{db: tx}
}

// NormalizePromoCode 优惠码统一大写存储与匹配
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GetByID 根据ID获取优惠码
func (r *GormPromoRepository) GetByID(id uint) (*models.Promo, error) {
	var promo models.Promo
	if err := r.db.First(&promo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

// GetByCode 根据优惠码获取（大小写不敏感）
func (r *GormPromoRepository) GetByCode(code string) (*models.Promo, error) {
	normalized := NormalizePromoCode(code)
	if normalized == "" {
		return nil, nil
	}
	var promo models.Promo
	if err := r.db.Where("code = ?", normalized).First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

// Create 创建优惠码
func (r *GormPromoRepository) Create(promo *models.Promo) error {
	promo.Code = NormalizePromoCode(promo.Code)
	return r.db.Create(promo).Error
}

// Update 更新优惠码
func (r *GormPromoRepository) Update(promo *models.Promo) error {
	promo.Code = NormalizePromoCode(promo.Code)
	return r.db.Save(promo).Error
}

// List 获取优惠码列表
func (r *GormPromoRepository) List(filter PromoListFilter) ([]models.Promo, int64, error) {
	var promos []models.Promo
	query := r.db.Model(&models.Promo{})
	if code := NormalizePromoCode(filter.Code); code != "" {
		query = query.Where("code = ?", code)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id DESC").Find(&promos).Error; err != nil {
		return nil, 0, err
	}
	return promos, total, nil
}

// Redeem 条件递增使用次数，超出上限或已停用时不更新并返回 false
func (r *GormPromoRepository) Redeem(id uint) (bool, error) {
	result := r.db.Model(&models.Promo{}).
		Where("id = ? AND is_active = ?", id, true).
		Where("max_uses IS NULL OR used_count < max_uses").
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// PromoRedemptionRepository 优惠码核销记录数据访问接口
type PromoRedemptionRepository interface {
	Create(redemption *models.PromoRedemption) error
	GetByOrderID(orderID uint) (*models.PromoRedemption, error)
	CountByPromo(promoID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormPromoRedemptionRepository
}

// GormPromoRedemptionRepository GORM 实现
type GormPromoRedemptionRepository struct {
	db *gorm.DB
}

// NewPromoRedemptionRepository 创建核销记录仓库
func NewPromoRedemptionRepository(db *gorm.DB) *GormPromoRedemptionRepository {
	return &GormPromoRedemptionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromoRedemptionRepository) WithTx(tx *gorm.DB) *GormPromoRedemptionRepository {
	if tx == nil {
		return r
	}
	return &GormPromoRedemptionRepository{db: tx}
}

// Create 写入核销记录
func (r *GormPromoRedemptionRepository) Create(redemption *models.PromoRedemption) error {
	return r.db.Create(redemption).Error
}

// GetByOrderID 获取订单的核销记录
func (r *GormPromoRedemptionRepository) GetByOrderID(orderID uint) (*models.PromoRedemption, error) {
	var redemption models.PromoRedemption
	if err := r.db.Where("order_id = ?", orderID).First(&redemption).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// CountByPromo 统计优惠码核销次数
func (r *GormPromoRedemptionRepository) CountByPromo(promoID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.PromoRedemption{}).Where("promo_id = ?", promoID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

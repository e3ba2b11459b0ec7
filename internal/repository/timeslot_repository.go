package repository

import (
	"errors"

	"github.com/bakehouse-next/internal/models"

	"gorm.io/gorm"
)

// TimeslotRepository 时段数据访问接口
type TimeslotRepository interface {
	GetByID(id uint) (*models.Timeslot, error)
	List(filter TimeslotListFilter) ([]models.Timeslot, error)
	Create(slot *models.Timeslot) error
	Reserve(id uint) (bool, error)
	ForceReserve(id uint) (bool, error)
	Release(id uint) (bool, error)
	WithTx(tx *gorm.DB) *GormTimeslotRepository
}

// GormTimeslotRepository GORM 实现
type GormTimeslotRepository struct {
	db *gorm.DB
}

// NewTimeslotRepository 创建时段仓库
func NewTimeslotRepository(db *gorm.DB) *GormTimeslotRepository {
	return &GormTimeslotRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTimeslotRepository) WithTx(tx *gorm.DB) *GormTimeslotRepository {
	if tx == nil {
		return r
	}
	return &GormTimeslotRepository{db: tx}
}

// GetByID 根据ID获取时段
func (r *GormTimeslotRepository) GetByID(id uint) (*models.Timeslot, error) {
	var slot models.Timeslot
	if err := r.db.First(&slot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

// List 按日期与类型获取时段
func (r *GormTimeslotRepository) List(filter TimeslotListFilter) ([]models.Timeslot, error) {
	var slots []models.Timeslot
	query := r.db.Model(&models.Timeslot{})
	if filter.Date != "" {
		query = query.Where("date = ?", filter.Date)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("date ASC").Order("start_time ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// Create 创建时段
func (r *GormTimeslotRepository) Create(slot *models.Timeslot) error {
	return r.db.Create(slot).Error
}

// Reserve 占用一个名额，已满或未开放时返回 false
func (r *GormTimeslotRepository) Reserve(id uint) (bool, error) {
	result := r.db.Model(&models.Timeslot{}).
		Where("id = ? AND is_active = ? AND current_count < max_capacity", id, true).
		UpdateColumn("current_count", gorm.Expr("current_count + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ForceReserve 不校验容量直接占用（允许超订）
func (r *GormTimeslotRepository) ForceReserve(id uint) (bool, error) {
	result := r.db.Model(&models.Timeslot{}).
		Where("id = ?", id).
		UpdateColumn("current_count", gorm.Expr("current_count + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Release 释放一个名额，计数不会低于 0
func (r *GormTimeslotRepository) Release(id uint) (bool, error) {
	result := r.db.Model(&models.Timeslot{}).
		Where("id = ? AND current_count > 0", id).
		UpdateColumn("current_count", gorm.Expr("current_count - ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

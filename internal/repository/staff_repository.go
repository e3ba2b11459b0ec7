package repository

import (
	"errors"
	"time"

	"github.com/bakehouse-next/internal/models"

	"gorm.io/gorm"
)

// StaffRepository 员工数据访问接口
type StaffRepository interface {
	GetByUsername(username string) (*models.StaffMember, error)
	GetByID(id uint) (*models.StaffMember, error)
	Count() (int64, error)
	ListAll() ([]models.StaffMember, error)
	Create(staff *models.StaffMember) error
	TouchLastLogin(id uint, at time.Time) error
}

// GormStaffRepository GORM 实现
type GormStaffRepository struct {
	db *gorm.DB
}

// NewStaffRepository 创建员工仓库
func NewStaffRepository(db *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: db}
}

// GetByUsername 根据用户名获取员工
func (r *GormStaffRepository) GetByUsername(username string) (*models.StaffMember, error) {
	var staff models.StaffMember
	if err := r.db.Where("username = ?", username).First(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

// GetByID 根据 ID 获取员工
func (r *GormStaffRepository) GetByID(id uint) (*models.StaffMember, error) {
	var staff models.StaffMember
	if err := r.db.First(&staff, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

// Count 统计员工数量
func (r *GormStaffRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.StaffMember{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListAll 列出全部员工
func (r *GormStaffRepository) ListAll() ([]models.StaffMember, error) {
	var staff []models.StaffMember
	if err := r.db.Order("id asc").Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}

// Create 创建员工
func (r *GormStaffRepository) Create(staff *models.StaffMember) error {
	return r.db.Create(staff).Error
}

// TouchLastLogin 更新最后登录时间
func (r *GormStaffRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.StaffMember{}).Where("id = ?", id).Update("last_login_at", at).Error
}

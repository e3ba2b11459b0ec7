package repository

import (
	"errors"
	"strings"

	"github.com/bakehouse-next/internal/models"

	"gorm.io/gorm"
)

// CustomerRepository 顾客数据访问接口
type CustomerRepository interface {
	GetByID(id uint) (*models.Customer, error)
	GetByEmail(email string) (*models.Customer, error)
	Create(customer *models.Customer) error
	WithTx(tx *gorm.DB) *GormCustomerRepository
}

// GormCustomerRepository GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建顾客仓库
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) *GormCustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// GetByID 根据ID获取顾客
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByEmail 根据邮箱获取顾客（小写匹配）
func (r *GormCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.Where("email = ?", normalized).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Create 创建顾客
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	return r.db.Create(customer).Error
}

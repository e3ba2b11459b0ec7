package repository

import (
	"errors"
	"strings"

	"github.com/bakehouse-next/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByPaymentIntentID(intentID string) (*models.Order, error)
	FindLatestOrderNo(prefix string) (string, error)
	UpdateFromStatus(id uint, fromStatus string, updates map[string]interface{}) (bool, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	SoftDelete(id uint) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withDetails(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Addons", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Customer").
		Preload("Timeslot")
}

// Create 创建订单、订单项与加料快照
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items", "Customer", "Timeslot").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

func (r *GormOrderRepository) first(query *gorm.DB) (*models.Order, error) {
	var order models.Order
	if err := r.withDetails(query).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	return r.first(r.db.Where("id = ?", id))
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	return r.first(r.db.Where("order_no = ?", orderNo))
}

// GetByPaymentIntentID 根据支付意图获取订单
func (r *GormOrderRepository) GetByPaymentIntentID(intentID string) (*models.Order, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, nil
	}
	return r.first(r.db.Where("payment_intent_id = ?", intentID))
}

// FindLatestOrderNo 查询指定前缀下最大的订单号（含已软删除订单）。
// 先按长度再按字典序排序，保证序号超过 4 位时仍按数值取最大。
func (r *GormOrderRepository) FindLatestOrderNo(prefix string) (string, error) {
	var orderNos []string
	err := r.db.Unscoped().
		Model(&models.Order{}).
		Where("order_no LIKE ?", prefix+"%").
		Order("LENGTH(order_no) DESC").
		Order("order_no DESC").
		Limit(1).
		Pluck("order_no", &orderNos).Error
	if err != nil {
		return "", err
	}
	if len(orderNos) == 0 {
		return "", nil
	}
	return orderNos[0], nil
}

// UpdateFromStatus 仅在订单仍处于 fromStatus 时更新，返回是否命中
func (r *GormOrderRepository) UpdateFromStatus(id uint, fromStatus string, updates map[string]interface{}) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.ScheduledDate != "" {
		query = query.Where("scheduled_date = ?", filter.ScheduledDate)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"order_no", "guest_name", "guest_email"})
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	query = applyPagination(query.Preload("Items").Preload("Items.Addons"), filter.Page, filter.PageSize)
	if err := query.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// SoftDelete 软删除订单
func (r *GormOrderRepository) SoftDelete(id uint) error {
	return r.db.Delete(&models.Order{}, id).Error
}

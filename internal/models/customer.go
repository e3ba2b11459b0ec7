package models

import (
	"time"
)

// Customer 顾客表（仅登录顾客创建，游客信息直接落在订单上）
type Customer struct {
	ID        uint      `gorm:"primarykey" json:"id"`                 // 主键
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`    // 邮箱（小写）
	Name      string    `gorm:"type:varchar(120)" json:"name"`        // 姓名
	Phone     string    `gorm:"type:varchar(40)" json:"phone"`        // 电话
	CreatedAt time.Time `gorm:"index" json:"created_at"`              // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`              // 更新时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}

// StaffMember 员工账号（后台与收银）
type StaffMember struct {
	ID           uint       `gorm:"primarykey" json:"id"`                 // 主键
	Username     string     `gorm:"uniqueIndex;not null" json:"username"` // 用户名
	PasswordHash string     `gorm:"not null" json:"-"`                    // 密码哈希
	DisplayName  string     `gorm:"type:varchar(120)" json:"display_name"`
	Role         string     `gorm:"type:varchar(40);not null;default:'cashier'" json:"role"`
	IsActive     bool       `gorm:"default:true" json:"is_active"` // 是否启用
	TokenVersion uint64     `gorm:"not null;default:0" json:"-"`   // Token 版本（用于全量失效）
	LastLoginAt  *time.Time `json:"last_login_at"`                 // 最后登录时间
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"index" json:"updated_at"`
}

// TableName 指定表名
func (StaffMember) TableName() string {
	return "staff_members"
}

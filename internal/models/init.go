package models

import (
	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// DefaultStaffPassword 默认店长初始密码
const DefaultStaffPassword = "bakery123"

// InitDefaultStaff 初始化默认店长账号，已有员工时直接返回
func InitDefaultStaff(username, password string) (*StaffMember, error) {
	var count int64
	if err := DB.Model(&StaffMember{}).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	if username == "" {
		username = "manager"
	}
	if password == "" {
		password = DefaultStaffPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	staff := StaffMember{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  "Store Manager",
		Role:         constants.StaffRoleManager,
		IsActive:     true,
	}
	if err := DB.Create(&staff).Error; err != nil {
		return nil, err
	}

	if password == DefaultStaffPassword {
		logger.Warnw("default_staff_created_with_default_password", "username", username)
		logger.Warnw("default_staff_password_change_required", "username", username)
	} else {
		logger.Warnw("default_staff_created", "username", username, "password_hidden", true)
	}
	return &staff, nil
}

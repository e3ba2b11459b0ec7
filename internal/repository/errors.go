package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsUniqueViolation 判断是否唯一约束冲突，兼容未开启 TranslateError 的连接。
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"):
		return true
	case strings.Contains(msg, "duplicate key value"):
		return true
	case strings.Contains(msg, "sqlstate 23505"):
		return true
	}
	return false
}

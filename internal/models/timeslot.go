package models

import (
	"time"
)

// Timeslot 取货/配送时段
type Timeslot struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                                       // 主键
	Date         string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_timeslot_window" json:"date"`      // 日期 YYYY-MM-DD
	StartTime    string    `gorm:"type:varchar(5);not null;uniqueIndex:idx_timeslot_window" json:"start_time"` // 开始时间 HH:MM
	EndTime      string    `gorm:"type:varchar(5);not null" json:"end_time"`                                   // 结束时间 HH:MM
	Type         string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_timeslot_window" json:"type"`      // 类型（PICKUP/DELIVERY）
	MaxCapacity  int       `gorm:"not null;default:0" json:"max_capacity"`                                     // 最大容量
	CurrentCount int       `gorm:"not null;default:0" json:"current_count"`                                    // 已占用数量
	IsActive     bool      `gorm:"default:true" json:"is_active"`                                              // 是否开放
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Timeslot) TableName() string {
	return "timeslots"
}

// Remaining 剩余容量（超订时为 0）
func (t *Timeslot) Remaining() int {
	if t == nil {
		return 0
	}
	left := t.MaxCapacity - t.CurrentCount
	if left < 0 {
		return 0
	}
	return left
}

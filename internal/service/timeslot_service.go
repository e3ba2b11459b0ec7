package service

import (
	"strings"
	"time"

	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/repository"
)

// TimeslotService 取货/配送时段
type TimeslotService struct {
	timeslotRepo repository.TimeslotRepository
}

// NewTimeslotService 创建时段服务
func NewTimeslotService(timeslotRepo repository.TimeslotRepository) *TimeslotService {
	return &TimeslotService{timeslotRepo: timeslotRepo}
}

// CreateTimeslotInput 创建时段输入
type CreateTimeslotInput struct {
	Date        string
	StartTime   string
	EndTime     string
	Type        string
	MaxCapacity int
}

// ListAvailable 公开时段列表（仅开放时段）
func (s *TimeslotService) ListAvailable(date, slotType string) ([]models.Timeslot, error) {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, newValidationError("date", "must be YYYY-MM-DD")
		}
	}
	slotType = normalizeUpper(slotType)
	if slotType != "" && !isSlotType(slotType) {
		return nil, newValidationError("type", "must be PICKUP or DELIVERY")
	}
	return s.timeslotRepo.List(repository.TimeslotListFilter{
		Date:       date,
		Type:       slotType,
		OnlyActive: true,
	})
}

// CreateTimeslot 创建时段
func (s *TimeslotService) CreateTimeslot(input CreateTimeslotInput) (*models.Timeslot, error) {
	date := strings.TrimSpace(input.Date)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, newValidationError("date", "must be YYYY-MM-DD")
	}
	start, err := time.Parse("15:04", strings.TrimSpace(input.StartTime))
	if err != nil {
		return nil, newValidationError("start_time", "must be HH:MM")
	}
	end, err := time.Parse("15:04", strings.TrimSpace(input.EndTime))
	if err != nil {
		return nil, newValidationError("end_time", "must be HH:MM")
	}
	if !end.After(start) {
		return nil, newValidationError("end_time", "must be after start_time")
	}
	slotType := normalizeUpper(input.Type)
	if !isSlotType(slotType) {
		return nil, newValidationError("type", "must be PICKUP or DELIVERY")
	}
	if input.MaxCapacity < 1 {
		return nil, newValidationError("max_capacity", "must be at least 1")
	}

	slot := &models.Timeslot{
		Date:        date,
		StartTime:   start.Format("15:04"),
		EndTime:     end.Format("15:04"),
		Type:        slotType,
		MaxCapacity: input.MaxCapacity,
		IsActive:    true,
	}
	if err := s.timeslotRepo.Create(slot); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrTimeslotExists
		}
		return nil, err
	}
	return slot, nil
}

func isSlotType(value string) bool {
	return value == constants.FulfillmentPickup || value == constants.FulfillmentDelivery
}

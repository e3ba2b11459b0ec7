package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/repository"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PromoService 优惠码服务
type PromoService struct {
	promoRepo repository.PromoRepository
}

// NewPromoService 创建优惠码服务
func NewPromoService(promoRepo repository.PromoRepository) *PromoService {
	return &PromoService{promoRepo: promoRepo}
}

// PromoEvaluation 优惠码校验结果（只读，不占用次数）
type PromoEvaluation struct {
	Valid    bool
	Reason   string
	Message  string
	Promo    *models.Promo
	Discount decimal.Decimal
}

// Err 校验失败时返回 PromoInvalidError
func (e *PromoEvaluation) Err() error {
	if e == nil || e.Valid {
		return nil
	}
	return &PromoInvalidError{Reason: e.Reason, Message: e.Message}
}

func invalidPromo(promo *models.Promo, reason, message string) *PromoEvaluation {
	return &PromoEvaluation{
		Valid:    false,
		Reason:   reason,
		Message:  message,
		Promo:    promo,
		Discount: decimal.Zero,
	}
}

// Evaluate 按顺序校验优惠码并计算优惠金额，error 仅表示存储错误
func (s *PromoService) Evaluate(code string, subtotal decimal.Decimal, now time.Time) (*PromoEvaluation, error) {
	promo, err := s.promoRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return invalidPromo(nil, constants.PromoReasonNotFound, "promo code not found"), nil
	}
	if !promo.IsActive {
		return invalidPromo(promo, constants.PromoReasonInactive, "promo code is not active"), nil
	}
	if promo.StartsAt != nil && now.Before(*promo.StartsAt) {
		return invalidPromo(promo, constants.PromoReasonNotStarted, "promo code is not active yet"), nil
	}
	if promo.ExpiresAt != nil && now.After(*promo.ExpiresAt) {
		return invalidPromo(promo, constants.PromoReasonExpired, "promo code has expired"), nil
	}
	if promo.MaxUses != nil && promo.UsedCount >= *promo.MaxUses {
		return invalidPromo(promo, constants.PromoReasonExhausted, "promo code usage limit reached"), nil
	}
	if promo.MinOrderAmount != nil && subtotal.LessThan(promo.MinOrderAmount.Decimal) {
		return invalidPromo(promo, constants.PromoReasonBelowMinimum,
			fmt.Sprintf("order subtotal must be at least %s", promo.MinOrderAmount.String())), nil
	}
	return &PromoEvaluation{
		Valid:    true,
		Promo:    promo,
		Discount: ComputePromoDiscount(promo, subtotal),
	}, nil
}

// ComputePromoDiscount 计算优惠金额，结果不超过小计且不为负
func ComputePromoDiscount(promo *models.Promo, subtotal decimal.Decimal) decimal.Decimal {
	if promo == nil || subtotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch promo.Type {
	case constants.PromoTypePercentage:
		discount = models.RoundAmount(subtotal.Mul(promo.Value.Decimal).Div(hundred))
	case constants.PromoTypeFixedAmount:
		discount = promo.Value.Decimal
	default:
		return decimal.Zero
	}
	if discount.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	return discount
}

// PromoInput 管理端创建优惠码输入
type PromoInput struct {
	Code           string
	Description    string
	Type           string
	Value          decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxUses        *int
	StartsAt       *time.Time
	ExpiresAt      *time.Time
	IsActive       bool
}

// PromoPatch 管理端更新优惠码输入（nil 表示不修改）
type PromoPatch struct {
	Description    *string
	Value          *decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxUses        *int
	StartsAt       *time.Time
	ExpiresAt      *time.Time
	IsActive       *bool
}

// CreatePromo 创建优惠码
func (s *PromoService) CreatePromo(input PromoInput) (*models.Promo, error) {
	promo := &models.Promo{
		Code:        repository.NormalizePromoCode(input.Code),
		Description: strings.TrimSpace(input.Description),
		Type:        strings.ToUpper(strings.TrimSpace(input.Type)),
		Value:       models.NewMoneyFromDecimal(input.Value),
		MaxUses:     input.MaxUses,
		StartsAt:    input.StartsAt,
		ExpiresAt:   input.ExpiresAt,
		IsActive:    input.IsActive,
	}
	if input.MinOrderAmount != nil {
		minAmount := models.NewMoneyFromDecimal(*input.MinOrderAmount)
		promo.MinOrderAmount = &minAmount
	}
	if err := validatePromo(promo); err != nil {
		return nil, err
	}
	if err := s.promoRepo.Create(promo); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrPromoCodeExists
		}
		return nil, err
	}
	// 启用默认值为 true，停用需单独写入
	if !input.IsActive {
		promo.IsActive = false
		if err := s.promoRepo.Update(promo); err != nil {
			return nil, err
		}
	}
	return promo, nil
}

// UpdatePromo 更新优惠码
func (s *PromoService) UpdatePromo(id uint, patch PromoPatch) (*models.Promo, error) {
	promo, err := s.promoRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, ErrPromoNotFound
	}
	if patch.Description != nil {
		promo.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Value != nil {
		promo.Value = models.NewMoneyFromDecimal(*patch.Value)
	}
	if patch.MinOrderAmount != nil {
		minAmount := models.NewMoneyFromDecimal(*patch.MinOrderAmount)
		promo.MinOrderAmount = &minAmount
	}
	if patch.MaxUses != nil {
		promo.MaxUses = patch.MaxUses
	}
	if patch.StartsAt != nil {
		promo.StartsAt = patch.StartsAt
	}
	if patch.ExpiresAt != nil {
		promo.ExpiresAt = patch.ExpiresAt
	}
	if patch.IsActive != nil {
		promo.IsActive = *patch.IsActive
	}
	if err := validatePromo(promo); err != nil {
		return nil, err
	}
	if err := s.promoRepo.Update(promo); err != nil {
		return nil, err
	}
	return promo, nil
}

// ListPromos 优惠码列表
func (s *PromoService) ListPromos(filter repository.PromoListFilter) ([]models.Promo, int64, error) {
	return s.promoRepo.List(filter)
}

func validatePromo(promo *models.Promo) error {
	if promo.Code == "" {
		return newValidationError("code", "is required")
	}
	if len(promo.Code) > 64 {
		return newValidationError("code", "must be at most 64 characters")
	}
	switch promo.Type {
	case constants.PromoTypePercentage:
		if promo.Value.GreaterThan(hundred) {
			return newValidationError("value", "percentage must not exceed 100")
		}
	case constants.PromoTypeFixedAmount:
	default:
		return newValidationError("type", "must be PERCENTAGE or FIXED_AMOUNT")
	}
	if promo.Value.LessThanOrEqual(decimal.Zero) {
		return newValidationError("value", "must be greater than 0")
	}
	if promo.MinOrderAmount != nil && promo.MinOrderAmount.LessThan(decimal.Zero) {
		return newValidationError("min_order_amount", "must not be negative")
	}
	if promo.MaxUses != nil && *promo.MaxUses < 1 {
		return newValidationError("max_uses", "must be at least 1")
	}
	if promo.StartsAt != nil && promo.ExpiresAt != nil && !promo.ExpiresAt.After(*promo.StartsAt) {
		return newValidationError("expires_at", "must be after starts_at")
	}
	return nil
}

package service

import (
	"errors"
	"fmt"
)

var (
	ErrProductUnavailable     = errors.New("product unavailable")
	ErrVariantUnavailable     = errors.New("variant unavailable")
	ErrAddonUnavailable       = errors.New("addon unavailable")
	ErrPromoInvalid           = errors.New("promo invalid")
	ErrPromoNotFound          = errors.New("promo not found")
	ErrPromoCodeExists        = errors.New("promo code already exists")
	ErrPaymentFailed          = errors.New("payment failed")
	ErrPaymentNotConfigured   = errors.New("payment gateway not configured")
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidStateTransition = errors.New("invalid order state transition")
	ErrValidation             = errors.New("validation failed")
	ErrTimeslotUnavailable    = errors.New("timeslot unavailable")
	ErrTimeslotNotFound       = errors.New("timeslot not found")
	ErrTimeslotExists         = errors.New("timeslot already exists")
	ErrOrderCreateFailed      = errors.New("order create failed")
	ErrOrderUpdateFailed      = errors.New("order update failed")
	ErrCatalogItemNotFound    = errors.New("catalog item not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrStaffDisabled          = errors.New("staff disabled")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrCaptchaRequired        = errors.New("captcha required")
	ErrCaptchaInvalid         = errors.New("captcha invalid")
	ErrWebhookInvalid         = errors.New("webhook invalid")
)

// ValidationError 入参校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Message)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Message)
}

// Is 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// PromoInvalidError 优惠码不可用（携带原因）
type PromoInvalidError struct {
	Reason  string
	Message string
}

func (e *PromoInvalidError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPromoInvalid.Error(), e.Reason)
}

// Is 使 errors.Is(err, ErrPromoInvalid) 成立
func (e *PromoInvalidError) Is(target error) bool {
	return target == ErrPromoInvalid
}

var domainErrors = []error{
	ErrValidation,
	ErrInvalidStateTransition,
	ErrTimeslotUnavailable,
	ErrTimeslotNotFound,
	ErrPromoInvalid,
	ErrPaymentFailed,
	ErrOrderNotFound,
}

// isDomainError 业务错误原样透传，其余包装为存储失败
func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

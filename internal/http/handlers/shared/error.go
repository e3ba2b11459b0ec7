package shared

import (
	"errors"

	"github.com/bakehouse-next/internal/http/response"
	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	RespondErrorWithData(c, code, msg, nil, err)
}

// RespondErrorWithData 返回携带数据的错误响应。
func RespondErrorWithData(c *gin.Context, code int, msg string, data gin.H, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	if data == nil {
		response.Error(c, appErr.Code, appErr.Message)
		return
	}
	response.ErrorWithData(c, appErr.Code, appErr.Message, data)
}

// MappedHandlerError 定义业务错误到接口错误响应的映射关系。
type MappedHandlerError struct {
	Target error
	Code   int
	Kind   string
	Msg    string
}

// DomainErrorRules 通用业务错误映射
var DomainErrorRules = []MappedHandlerError{
	{Target: service.ErrValidation, Code: response.CodeBadRequest, Kind: "validation_failed", Msg: "invalid request"},
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest, Kind: "captcha_required", Msg: "captcha required"},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest, Kind: "captcha_invalid", Msg: "captcha invalid"},
	{Target: service.ErrWebhookInvalid, Code: response.CodeBadRequest, Kind: "webhook_invalid", Msg: "webhook invalid"},
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Kind: "invalid_credentials", Msg: "invalid username or password"},
	{Target: service.ErrUnauthorized, Code: response.CodeUnauthorized, Kind: "unauthorized", Msg: "unauthorized"},
	{Target: service.ErrStaffDisabled, Code: response.CodeForbidden, Kind: "staff_disabled", Msg: "staff account disabled"},
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Kind: "order_not_found", Msg: "order not found"},
	{Target: service.ErrPromoNotFound, Code: response.CodeNotFound, Kind: "promo_not_found", Msg: "promo not found"},
	{Target: service.ErrTimeslotNotFound, Code: response.CodeNotFound, Kind: "timeslot_not_found", Msg: "timeslot not found"},
	{Target: service.ErrCatalogItemNotFound, Code: response.CodeNotFound, Kind: "catalog_item_not_found", Msg: "catalog item not found"},
	{Target: service.ErrInvalidStateTransition, Code: response.CodeConflict, Kind: "invalid_state_transition", Msg: "order status does not allow this action"},
	{Target: service.ErrTimeslotUnavailable, Code: response.CodeConflict, Kind: "timeslot_unavailable", Msg: "timeslot is full or closed"},
	{Target: service.ErrPromoCodeExists, Code: response.CodeConflict, Kind: "promo_code_exists", Msg: "promo code already exists"},
	{Target: service.ErrTimeslotExists, Code: response.CodeConflict, Kind: "timeslot_exists", Msg: "timeslot already exists"},
	{Target: service.ErrProductUnavailable, Code: response.CodeUnprocessable, Kind: "product_unavailable", Msg: "product unavailable"},
	{Target: service.ErrVariantUnavailable, Code: response.CodeUnprocessable, Kind: "variant_unavailable", Msg: "variant unavailable"},
	{Target: service.ErrAddonUnavailable, Code: response.CodeUnprocessable, Kind: "addon_unavailable", Msg: "addon unavailable"},
	{Target: service.ErrPromoInvalid, Code: response.CodeUnprocessable, Kind: "promo_invalid", Msg: "promo code cannot be applied"},
	{Target: service.ErrPaymentFailed, Code: response.CodeBadGateway, Kind: "payment_failed", Msg: "payment gateway request failed"},
	{Target: service.ErrPaymentNotConfigured, Code: response.CodeBadGateway, Kind: "payment_unavailable", Msg: "payment gateway not configured"},
}

// RespondWithMappedError 按规则表输出错误；未命中时走兜底并记录原始错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondErrorWithData(c, rule.Code, rule.Msg, ErrorDetail(rule.Kind, err), nil)
			if rule.Code >= response.CodeInternal {
				RequestLog(c).Warnw("handler_mapped_error", "kind", rule.Kind, "error", err)
			}
			return
		}
	}
	RespondErrorWithData(c, fallbackCode, fallbackMsg, gin.H{"kind": "internal_error"}, err)
}

// ErrorDetail 构建错误数据（kind、reason、field）
func ErrorDetail(kind string, err error) gin.H {
	data := gin.H{"kind": kind}
	var promoErr *service.PromoInvalidError
	if errors.As(err, &promoErr) {
		data["reason"] = promoErr.Reason
		if promoErr.Message != "" {
			data["detail"] = promoErr.Message
		}
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		if validationErr.Field != "" {
			data["field"] = validationErr.Field
		}
		data["detail"] = validationErr.Message
	}
	return data
}

// ConcatMappedHandlerErrors 合并多组映射规则
func ConcatMappedHandlerErrors(groups ...[]MappedHandlerError) []MappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

package public

import (
	handlershared "github.com/bakehouse-next/internal/http/handlers/shared"
	"github.com/bakehouse-next/internal/http/response"
	"github.com/bakehouse-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type mappedHandlerError = handlershared.MappedHandlerError

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondBadRequest(c *gin.Context, err error) {
	handlershared.RespondErrorWithData(c, response.CodeBadRequest, "invalid request body", handlershared.ErrorDetail("validation_failed", err), nil)
	requestLog(c).Debugw("public_request_bind_failed", "error", err)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackMsg string) {
	handlershared.RespondWithMappedError(c, err, rules, response.CodeInternal, fallbackMsg)
}

// 下单失败时的存储错误不向顾客暴露细节
var checkoutErrorRules = handlershared.ConcatMappedHandlerErrors(
	handlershared.DomainErrorRules,
	[]mappedHandlerError{
		{Target: service.ErrOrderCreateFailed, Code: response.CodeInternal, Kind: "order_create_failed", Msg: "order could not be placed"},
	},
)

var lookupErrorRules = []mappedHandlerError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Kind: "order_not_found", Msg: "order not found"},
}

var webhookErrorRules = handlershared.ConcatMappedHandlerErrors(
	[]mappedHandlerError{
		{Target: service.ErrWebhookInvalid, Code: response.CodeBadRequest, Kind: "webhook_invalid", Msg: "webhook invalid"},
		{Target: service.ErrPaymentNotConfigured, Code: response.CodeBadGateway, Kind: "payment_unavailable", Msg: "payment gateway not configured"},
		{Target: service.ErrOrderUpdateFailed, Code: response.CodeInternal, Kind: "order_update_failed", Msg: "order update failed"},
	},
)

package admin

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
}

func respondWithMappedError(c *gin.Context, err error, fallbackMsg string) {
	handlershared.RespondWithMappedError(c, err, staffErrorRules, response.CodeInternal, fallbackMsg)
}

var staffErrorRules = handlershared.ConcatMappedHandlerErrors(
	handlershared.DomainErrorRules,
	[]mappedHandlerError{
		{Target: service.ErrOrderCreateFailed, Code: response.CodeInternal, Kind: "order_create_failed", Msg: "order could not be placed"},
		{Target: service.ErrOrderUpdateFailed, Code: response.CodeInternal, Kind: "order_update_failed", Msg: "order update failed"},
	},
)

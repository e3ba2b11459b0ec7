package shared

import (
	"strconv"

	"github.com/bakehouse-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextUint 从上下文读取 uint 值并统一处理错误响应。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, key+" invalid", nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, key+" invalid", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, key+" type invalid", nil)
		return 0, false
	}
}

// ParamUint 解析路径参数中的正整数 ID
func ParamUint(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		RespondErrorWithData(c, response.CodeBadRequest, "invalid "+name, gin.H{"kind": "validation_failed", "field": name}, nil)
		return 0, false
	}
	return uint(id), true
}

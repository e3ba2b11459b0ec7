package router

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bakehouse-next/internal/authz"
	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/http/response"
	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const staffIDContextKey = "staff_id"
const customerIdentityContextKey = "customer_identity"

// StaffAuthenticator 员工 Token 校验能力
type StaffAuthenticator interface {
	AuthenticateStaff(ctx context.Context, tokenString string) (*service.StaffJWTClaims, error)
}

// CustomerTokenParser 顾客 Token 解析能力
type CustomerTokenParser interface {
	ParseCustomerJWT(tokenString string) (*service.CustomerIdentity, error)
}

// StaffAuthorizer 员工权限判定能力
type StaffAuthorizer interface {
	EnforceStaff(staffID uint, obj, act string) (bool, error)
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			"X-Request-ID",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// bearerToken 解析 Authorization 头，缺失返回空串，格式错误返回 ok=false
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return "", true
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// StaffAuthMiddleware 员工 JWT 鉴权中间件
func StaffAuthMiddleware(auth StaffAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			logger.Errorw("staff_auth_service_unavailable")
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "authorization header invalid")
			c.Abort()
			return
		}
		if token == "" {
			response.Unauthorized(c, "authorization header missing")
			c.Abort()
			return
		}

		claims, err := auth.AuthenticateStaff(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrStaffDisabled) {
				response.Forbidden(c, "staff account disabled")
			} else {
				response.Unauthorized(c, "token invalid")
			}
			c.Abort()
			return
		}

		c.Set(staffIDContextKey, claims.StaffID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// StaffRBACMiddleware 员工 RBAC 鉴权中间件
func StaffRBACMiddleware(authorizer StaffAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authorizer == nil {
			logger.Errorw("staff_rbac_service_unavailable")
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		var staffID uint
		if raw, exists := c.Get(staffIDContextKey); exists {
			if value, ok := raw.(uint); ok {
				staffID = value
			}
		}
		if staffID == 0 {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authorizer.EnforceStaff(staffID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("staff_rbac_enforce_failed",
				"staff_id", staffID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("staff_rbac_permission_denied",
				"staff_id", staffID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}

		c.Next()
	}
}

// OptionalCustomerAuthMiddleware 可选顾客鉴权：无 Token 按游客处理，Token 非法直接拒绝
func OptionalCustomerAuthMiddleware(parser CustomerTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "authorization header invalid")
			c.Abort()
			return
		}
		if token == "" || parser == nil {
			c.Next()
			return
		}
		identity, err := parser.ParseCustomerJWT(token)
		if err != nil {
			response.Unauthorized(c, "token invalid")
			c.Abort()
			return
		}
		c.Set(customerIdentityContextKey, identity)
		c.Next()
	}
}

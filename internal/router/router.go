package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bakehouse-next/internal/authz"
	"github.com/bakehouse-next/internal/cache"
	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/constants"
	adminhandlers "github.com/bakehouse-next/internal/http/handlers/admin"
	publichandlers "github.com/bakehouse-next/internal/http/handlers/public"
	"github.com/bakehouse-next/internal/http/response"
	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/员工分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:staff_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
		Message:       "too many login attempts, try again later",
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
		Message:       "too many checkout attempts, try again later",
	}
	promoRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:promo", redisPrefix),
		WindowSeconds: cfg.Security.PromoRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.PromoRateLimit.MaxRequests,
		Message:       "too many promo checks, try again later",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/products", publicHandler.GetMenu)
			public.GET("/timeslots", publicHandler.GetTimeslots)
			public.GET("/captcha", publicHandler.GetImageCaptcha)
			public.POST("/cart/preview", publicHandler.PreviewCart)
			public.POST("/promos/validate", RateLimitMiddleware(redisClient, promoRule, KeyByIP), publicHandler.ValidatePromo)
			public.POST("/payments/stripe/webhook", publicHandler.StripeWebhook)

			// 顾客 Token 可选，缺省按游客处理
			customer := public.Group("")
			customer.Use(OptionalCustomerAuthMiddleware(c.AuthService))
			{
				customer.POST("/orders", RateLimitMiddleware(redisClient, checkoutRule, KeyByIP), publicHandler.CreateOrder)
				customer.GET("/orders/:order_no", publicHandler.LookupOrder)
			}
		}

		// 门店收银接口
		pos := apiV1.Group("/pos")
		pos.Use(StaffAuthMiddleware(c.AuthService), StaffRBACMiddleware(c.AuthzService))
		{
			pos.POST("/orders", adminHandler.CreatePOSOrder)
		}

		// 员工后台接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/auth/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), adminHandler.Login)

			// 需要鉴权的接口
			authorized := admin.Group("")
			authorized.Use(StaffAuthMiddleware(c.AuthService), StaffRBACMiddleware(c.AuthzService))
			{
				// 订单
				authorized.GET("/orders", adminHandler.ListOrders)
				authorized.GET("/orders/:id", adminHandler.GetOrder)
				authorized.PATCH("/orders/:id/status", adminHandler.UpdateOrderStatus)
				authorized.POST("/orders/:id/cancel", adminHandler.CancelOrder)
				authorized.POST("/orders/:id/refund", adminHandler.RefundOrder)
				authorized.POST("/orders/:id/reschedule", adminHandler.RescheduleOrder)
				authorized.DELETE("/orders/:id", adminHandler.DeleteOrder)

				// 优惠码
				authorized.GET("/promos", adminHandler.ListPromos)
				authorized.POST("/promos", adminHandler.CreatePromo)
				authorized.PATCH("/promos/:id", adminHandler.UpdatePromo)

				// 时段
				authorized.GET("/timeslots", adminHandler.ListTimeslots)
				authorized.POST("/timeslots", adminHandler.CreateTimeslot)

				// 菜单上下架
				authorized.PATCH("/products/:id/active", adminHandler.SetProductActive)
				authorized.PATCH("/variants/:id/active", adminHandler.SetVariantActive)
				authorized.PATCH("/addons/:id/active", adminHandler.SetAddonActive)

				// 权限目录
				authorized.GET("/permissions", func(ctx *gin.Context) {
					response.Success(ctx, buildStaffPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type staffPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildStaffPermissionCatalog(engine *gin.Engine) []staffPermissionCatalogItem {
	if engine == nil {
		return []staffPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]staffPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") && !strings.HasPrefix(item.Path, "/api/v1/pos/") {
			continue
		}
		if item.Path == "/api/v1/admin/auth/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, staffPermissionCatalogItem{
			Module:     deriveStaffPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveStaffPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}

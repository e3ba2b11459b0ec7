package provider

import (
	"time"

	"github.com/bakehouse-next/internal/authz"
	"github.com/bakehouse-next/internal/cache"
	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/queue"
	"github.com/bakehouse-next/internal/repository"
	"github.com/bakehouse-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	StaffRepo      repository.StaffRepository
	CustomerRepo   repository.CustomerRepository
	ProductRepo    repository.ProductRepository
	AddonRepo      repository.AddonRepository
	PromoRepo      repository.PromoRepository
	RedemptionRepo repository.PromoRedemptionRepository
	TimeslotRepo   repository.TimeslotRepository
	OrderRepo      repository.OrderRepository

	// Services
	AuthzService    *authz.Service
	AuthService     *service.AuthService
	CaptchaService  *service.CaptchaService
	PaymentGateway  service.PaymentGateway
	CatalogResolver *service.CatalogResolver
	CatalogService  *service.CatalogService
	PromoService    *service.PromoService
	PricingEngine   *service.PricingEngine
	TimeslotService *service.TimeslotService
	OrderService    *service.OrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.StaffRepo = repository.NewStaffRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.AddonRepo = repository.NewAddonRepository(db)
	c.PromoRepo = repository.NewPromoRepository(db)
	c.RedemptionRepo = repository.NewPromoRedemptionRepository(db)
	c.TimeslotRepo = repository.NewTimeslotRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.StaffRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)

	// 未启用 Stripe 时保持 nil 接口，避免 typed nil
	if gateway := service.NewStripeGateway(c.Config.Stripe); gateway != nil {
		c.PaymentGateway = gateway
	} else {
		logger.Warnw("provider_payment_gateway_disabled")
	}

	c.CatalogResolver = service.NewCatalogResolver(c.ProductRepo, c.AddonRepo)
	c.CatalogService = service.NewCatalogService(c.ProductRepo, c.AddonRepo, time.Duration(c.Config.Redis.MenuTTL)*time.Second)
	c.PromoService = service.NewPromoService(c.PromoRepo)
	c.PricingEngine = service.NewPricingEngine(service.PricingConfigFrom(c.Config.Pricing))
	c.TimeslotService = service.NewTimeslotService(c.TimeslotRepo)
	c.OrderService = service.NewOrderService(service.OrderServiceDeps{
		OrderRepo:      c.OrderRepo,
		PromoRepo:      c.PromoRepo,
		RedemptionRepo: c.RedemptionRepo,
		TimeslotRepo:   c.TimeslotRepo,
		CustomerRepo:   c.CustomerRepo,
		Resolver:       c.CatalogResolver,
		PromoService:   c.PromoService,
		Pricing:        c.PricingEngine,
		Numbers:        service.NewOrderNumberGenerator(c.Config.Order.NumberPrefix, c.Config.Store.Location()),
		Gateway:        c.PaymentGateway,
		QueueClient:    c.QueueClient,
	}, service.OrderServiceOptionsFrom(c.Config.Order))
}

// SyncStaffRoles 将员工账号角色同步到授权策略
func (c *Container) SyncStaffRoles() error {
	if c == nil || c.AuthzService == nil {
		return nil
	}
	staff, err := c.StaffRepo.ListAll()
	if err != nil {
		return err
	}
	for _, member := range staff {
		if err := c.AuthzService.SyncStaffRole(member.ID, member.Role); err != nil {
			return err
		}
	}
	return nil
}

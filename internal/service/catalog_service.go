package service

import (
	"context"
	"time"

	"github.com/bakehouse-next/internal/cache"
	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/repository"

	"golang.org/x/sync/singleflight"
)

// Menu 公开菜单（仅启用商品、规格与加料）
type Menu struct {
	Products     []models.Product `json:"products"`
	GlobalAddons []models.Addon   `json:"global_addons"`
}

// CatalogService 菜单读取与上下架
type CatalogService struct {
	productRepo repository.ProductRepository
	addonRepo   repository.AddonRepository
	menuTTL     time.Duration
	group       singleflight.Group
}

// NewCatalogService 创建菜单服务
func NewCatalogService(productRepo repository.ProductRepository, addonRepo repository.AddonRepository, menuTTL time.Duration) *CatalogService {
	if menuTTL <= 0 {
		menuTTL = 5 * time.Minute
	}
	return &CatalogService{
		productRepo: productRepo,
		addonRepo:   addonRepo,
		menuTTL:     menuTTL,
	}
}

// Menu 读取菜单，优先命中 Redis 缓存
func (s *CatalogService) Menu(ctx context.Context) (*Menu, error) {
	var cached Menu
	hit, err := cache.GetJSON(ctx, constants.CacheKeyMenu, &cached)
	if err != nil {
		logger.Warnw("catalog_menu_cache_read_failed", "error", err)
	}
	if hit {
		return &cached, nil
	}

	value, err, _ := s.group.Do(constants.CacheKeyMenu, func() (interface{}, error) {
		return s.loadMenu(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.(*Menu), nil
}

func (s *CatalogService) loadMenu(ctx context.Context) (*Menu, error) {
	products, err := s.productRepo.ListMenu()
	if err != nil {
		return nil, err
	}
	addons, err := s.addonRepo.ListGlobal()
	if err != nil {
		return nil, err
	}
	menu := &Menu{Products: products, GlobalAddons: addons}
	if err := cache.SetJSON(ctx, constants.CacheKeyMenu, menu, s.menuTTL); err != nil {
		logger.Warnw("catalog_menu_cache_write_failed", "error", err)
	}
	return menu, nil
}

// SetProductActive 商品上下架
func (s *CatalogService) SetProductActive(ctx context.Context, id uint, active bool) error {
	return s.toggle(ctx, "product", id, active, s.productRepo.SetActive)
}

// SetVariantActive 规格启停
func (s *CatalogService) SetVariantActive(ctx context.Context, id uint, active bool) error {
	return s.toggle(ctx, "variant", id, active, s.productRepo.SetVariantActive)
}

// SetAddonActive 加料启停
func (s *CatalogService) SetAddonActive(ctx context.Context, id uint, active bool) error {
	return s.toggle(ctx, "addon", id, active, s.addonRepo.SetActive)
}

func (s *CatalogService) toggle(ctx context.Context, kind string, id uint, active bool, apply func(uint, bool) (bool, error)) error {
	if id == 0 {
		return ErrCatalogItemNotFound
	}
	ok, err := apply(id, active)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCatalogItemNotFound
	}
	s.InvalidateMenu(ctx)
	logger.Infow("catalog_item_toggled",
		"kind", kind,
		"id", id,
		"active", active,
	)
	return nil
}

// InvalidateMenu 删除菜单缓存
func (s *CatalogService) InvalidateMenu(ctx context.Context) {
	if err := cache.Del(ctx, constants.CacheKeyMenu); err != nil {
		logger.Warnw("catalog_menu_cache_invalidate_failed", "error", err)
	}
}

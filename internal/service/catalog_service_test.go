package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bakehouse-next/internal/repository"
)

func newTestCatalogService(fx *serviceFixture) *CatalogService {
	return NewCatalogService(
		repository.NewProductRepository(fx.db),
		repository.NewAddonRepository(fx.db),
		time.Minute,
	)
}

func TestMenuListsOnlyActiveItems(t *testing.T) {
	fx := setupServiceTest(t)
	svc := newTestCatalogService(fx)
	ctx := context.Background()

	if err := svc.SetVariantActive(ctx, fx.catalog.cakeWhole, false); err != nil {
		t.Fatalf("disable variant failed: %v", err)
	}
	if err := svc.SetProductActive(ctx, fx.catalog.tray.ID, false); err != nil {
		t.Fatalf("disable product failed: %v", err)
	}
	if err := svc.SetAddonActive(ctx, fx.catalog.giftBox, false); err != nil {
		t.Fatalf("disable addon failed: %v", err)
	}

	menu, err := svc.Menu(ctx)
	if err != nil {
		t.Fatalf("menu failed: %v", err)
	}
	if len(menu.Products) != 3 {
		t.Fatalf("want 3 active products got %d", len(menu.Products))
	}
	for _, product := range menu.Products {
		if product.ID == fx.catalog.tray.ID {
			t.Fatalf("inactive product listed")
		}
		if product.ID == fx.catalog.cake.ID && len(product.Variants) != 1 {
			t.Fatalf("cake should list one active variant, got %d", len(product.Variants))
		}
	}
	if len(menu.GlobalAddons) != 0 {
		t.Fatalf("inactive global addon listed")
	}

	if err := svc.SetProductActive(ctx, fx.catalog.tray.ID, true); err != nil {
		t.Fatalf("enable product failed: %v", err)
	}
	menu, err = svc.Menu(ctx)
	if err != nil {
		t.Fatalf("menu failed: %v", err)
	}
	if len(menu.Products) != 4 {
		t.Fatalf("re-enabled product should be listed, got %d", len(menu.Products))
	}
}

func TestCatalogToggleUnknownItem(t *testing.T) {
	fx := setupServiceTest(t)
	svc := newTestCatalogService(fx)
	ctx := context.Background()

	if err := svc.SetProductActive(ctx, 99999, false); !errors.Is(err, ErrCatalogItemNotFound) {
		t.Fatalf("want ErrCatalogItemNotFound got %v", err)
	}
	if err := svc.SetVariantActive(ctx, 0, false); !errors.Is(err, ErrCatalogItemNotFound) {
		t.Fatalf("want ErrCatalogItemNotFound got %v", err)
	}
	if err := svc.SetAddonActive(ctx, 99999, true); !errors.Is(err, ErrCatalogItemNotFound) {
		t.Fatalf("want ErrCatalogItemNotFound got %v", err)
	}
}

package service

import (
	"errors"
	"testing"

	"github.com/bakehouse-next/internal/models"
)

func TestResolvePricesVariantsAndAddons(t *testing.T) {
	fx := setupServiceTest(t)
	seed := fx.catalog

	resolution, err := fx.resolver.Resolve([]CartLineInput{
		{ProductID: seed.croissant.ID, Quantity: 3},
		{
			ProductID: seed.cake.ID,
			VariantID: seed.cakeWhole,
			Quantity:  2,
			Addons: []AddonSelection{
				{AddonID: seed.message, Note: "Happy birthday"},
				{AddonID: seed.giftBox},
			},
		},
	}, ResolutionStrict)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(resolution.Lines) != 2 || len(resolution.Warnings) != 0 {
		t.Fatalf("unexpected resolution: %+v", resolution)
	}

	croissant := resolution.Lines[0]
	if !croissant.UnitPrice.Equal(dec("4.50")) || !croissant.LineTotal.Equal(dec("13.50")) {
		t.Fatalf("croissant priced wrong: unit %s total %s", croissant.UnitPrice, croissant.LineTotal)
	}
	if croissant.VariantID != nil {
		t.Fatalf("croissant should have no variant")
	}

	cake := resolution.Lines[1]
	if cake.VariantID == nil || *cake.VariantID != seed.cakeWhole || cake.VariantName != "Whole" {
		t.Fatalf("cake variant not resolved: %+v", cake)
	}
	// 45.00 + 2.00 + 1.25
	if !cake.UnitPrice.Equal(dec("48.25")) || !cake.LineTotal.Equal(dec("96.50")) {
		t.Fatalf("cake priced wrong: unit %s total %s", cake.UnitPrice, cake.LineTotal)
	}
	if len(cake.Addons) != 2 || cake.Addons[0].Note != "Happy birthday" {
		t.Fatalf("cake addons not resolved: %+v", cake.Addons)
	}
}

func TestResolveStrictFailsOnInactiveVariant(t *testing.T) {
	fx := setupServiceTest(t)
	seed := fx.catalog
	if err := fx.db.Model(&models.ProductVariant{}).Where("id = ?", seed.cakeSlice).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate variant failed: %v", err)
	}

	_, err := fx.resolver.Resolve(basicCart(seed), ResolutionStrict)
	if !errors.Is(err, ErrVariantUnavailable) {
		t.Fatalf("want ErrVariantUnavailable got %v", err)
	}
}

func TestResolveLenientSkipsUnavailableLines(t *testing.T) {
	fx := setupServiceTest(t)
	seed := fx.catalog
	if err := fx.db.Model(&models.ProductVariant{}).Where("id = ?", seed.cakeSlice).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate variant failed: %v", err)
	}
	if err := fx.db.Model(&models.Product{}).Where("id = ?", seed.sourdough.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	resolution, err := fx.resolver.Resolve([]CartLineInput{
		{ProductID: seed.croissant.ID, Quantity: 2},
		{ProductID: seed.cake.ID, VariantID: seed.cakeSlice, Quantity: 1},
		{ProductID: seed.sourdough.ID, Quantity: 1},
		{ProductID: seed.croissant.ID, Quantity: 1, Addons: []AddonSelection{{AddonID: seed.message}}},
		{ProductID: 424242, Quantity: 1},
	}, ResolutionLenient)
	if err != nil {
		t.Fatalf("lenient resolve failed: %v", err)
	}
	if len(resolution.Lines) != 1 {
		t.Fatalf("want 1 resolved line got %d", len(resolution.Lines))
	}
	want := []struct {
		index int
		kind  string
	}{
		{1, WarningVariantUnavailable},
		{2, WarningProductUnavailable},
		{3, WarningAddonUnavailable},
		{4, WarningProductUnavailable},
	}
	if len(resolution.Warnings) != len(want) {
		t.Fatalf("want %d warnings got %+v", len(want), resolution.Warnings)
	}
	for i, w := range want {
		got := resolution.Warnings[i]
		if got.LineIndex != w.index || got.Kind != w.kind {
			t.Fatalf("warning %d want (%d,%s) got (%d,%s)", i, w.index, w.kind, got.LineIndex, got.Kind)
		}
	}
}

func TestResolveRejectsMalformedInputInBothModes(t *testing.T) {
	fx := setupServiceTest(t)
	seed := fx.catalog

	cases := [][]CartLineInput{
		nil,
		{{ProductID: 0, Quantity: 1}},
		{{ProductID: seed.croissant.ID, Quantity: 0}},
		{{ProductID: seed.croissant.ID, Quantity: 1, Addons: []AddonSelection{{AddonID: 0}}}},
	}
	for _, mode := range []ResolutionMode{ResolutionStrict, ResolutionLenient} {
		for idx, lines := range cases {
			if _, err := fx.resolver.Resolve(lines, mode); !errors.Is(err, ErrValidation) {
				t.Fatalf("mode %d case %d want validation error got %v", mode, idx, err)
			}
		}
	}
}

func TestResolveProductScopedAddonIsNotGlobal(t *testing.T) {
	fx := setupServiceTest(t)
	seed := fx.catalog

	// 蛋糕专属加料不能用于可颂
	_, err := fx.resolver.Resolve([]CartLineInput{
		{ProductID: seed.croissant.ID, Quantity: 1, Addons: []AddonSelection{{AddonID: seed.message}}},
	}, ResolutionStrict)
	if !errors.Is(err, ErrAddonUnavailable) {
		t.Fatalf("want ErrAddonUnavailable got %v", err)
	}
}

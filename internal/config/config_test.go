package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPricingConfigDecimals(t *testing.T) {
	cfg := PricingConfig{TaxRate: "0.07", DeliveryFee: "3.5"}
	if !cfg.TaxRateDecimal().Equal(decimal.RequireFromString("0.07")) {
		t.Fatalf("tax rate want 0.07 got %s", cfg.TaxRateDecimal())
	}
	if !cfg.DeliveryFeeDecimal().Equal(decimal.RequireFromString("3.50")) {
		t.Fatalf("delivery fee want 3.50 got %s", cfg.DeliveryFeeDecimal())
	}

	broken := PricingConfig{TaxRate: "abc", DeliveryFee: "-1"}
	if !broken.TaxRateDecimal().Equal(decimal.RequireFromString("0.0825")) {
		t.Fatalf("invalid tax rate should fall back, got %s", broken.TaxRateDecimal())
	}
	if !broken.DeliveryFeeDecimal().Equal(decimal.RequireFromString("5")) {
		t.Fatalf("negative delivery fee should fall back, got %s", broken.DeliveryFeeDecimal())
	}
}

func TestStoreConfigLocation(t *testing.T) {
	loc := StoreConfig{Timezone: "Not/AZone"}.Location()
	if loc != time.UTC {
		t.Fatalf("invalid timezone should fall back to UTC, got %s", loc)
	}
	loc = StoreConfig{Timezone: "UTC"}.Location()
	if loc.String() != "UTC" {
		t.Fatalf("timezone want UTC got %s", loc)
	}
}

func TestOrderConfigTransactionTimeout(t *testing.T) {
	if got := (OrderConfig{}).TransactionTimeout(); got != 10*time.Second {
		t.Fatalf("default timeout want 10s got %s", got)
	}
	if got := (OrderConfig{TransactionTimeoutSeconds: 3}).TransactionTimeout(); got != 3*time.Second {
		t.Fatalf("timeout want 3s got %s", got)
	}
}

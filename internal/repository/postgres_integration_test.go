//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"

	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.OrderItemAddon{},
		&models.OrderItem{},
		&models.Order{},
		&models.PromoRedemption{},
		&models.Promo{},
		&models.Timeslot{},
		&models.Customer{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.Customer{},
		&models.Timeslot{},
		&models.Promo{},
		&models.PromoRedemption{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderItemAddon{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresOrderNumberAndCounters(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	createTestOrder(t, db, "BAK-20260301-0002")
	createTestOrder(t, db, "BAK-20260301-10000")
	createTestOrder(t, db, "BAK-20260301-9999")

	orderRepo := NewOrderRepository(db)
	latest, err := orderRepo.FindLatestOrderNo("BAK-20260301-")
	if err != nil {
		t.Fatalf("find latest order no failed: %v", err)
	}
	if latest != "BAK-20260301-10000" {
		t.Fatalf("latest order no want BAK-20260301-10000 got %s", latest)
	}

	dup := &models.Order{
		OrderNo:         "BAK-20260301-0002",
		Status:          constants.OrderStatusNew,
		Channel:         constants.OrderChannelOnline,
		FulfillmentType: constants.FulfillmentPickup,
		Currency:        constants.DefaultCurrency,
		TaxRate:         constants.DefaultTaxRate,
		PaymentMethod:   constants.PaymentMethodPayInStore,
		CheckoutRef:     "ref-pg-dup",
	}
	if err := orderRepo.Create(dup, nil); !IsUniqueViolation(err) {
		t.Fatalf("expected postgres unique violation, got %v", err)
	}

	orders, total, err := orderRepo.ListAdmin(OrderListFilter{Keyword: "bak-20260301", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ilike keyword search failed: %v", err)
	}
	if total != 3 || len(orders) != 3 {
		t.Fatalf("ilike keyword search want 3 got total=%d len=%d", total, len(orders))
	}

	maxUses := 1
	promoRepo := NewPromoRepository(db)
	promo := &models.Promo{Code: "pg1", Type: constants.PromoTypeFixedAmount, Value: money("2"), MaxUses: &maxUses, IsActive: true}
	if err := promoRepo.Create(promo); err != nil {
		t.Fatalf("create promo failed: %v", err)
	}
	if ok, err := promoRepo.Redeem(promo.ID); err != nil || !ok {
		t.Fatalf("first redeem should succeed, ok=%v err=%v", ok, err)
	}
	if ok, err := promoRepo.Redeem(promo.ID); err != nil || ok {
		t.Fatalf("second redeem should be rejected, ok=%v err=%v", ok, err)
	}

	slotRepo := NewTimeslotRepository(db)
	slot := &models.Timeslot{Date: "2026-03-01", StartTime: "08:00", EndTime: "09:00", Type: constants.FulfillmentDelivery, MaxCapacity: 1, IsActive: true}
	if err := slotRepo.Create(slot); err != nil {
		t.Fatalf("create slot failed: %v", err)
	}
	if ok, err := slotRepo.Reserve(slot.ID); err != nil || !ok {
		t.Fatalf("reserve should succeed, ok=%v err=%v", ok, err)
	}
	if ok, err := slotRepo.Reserve(slot.ID); err != nil || ok {
		t.Fatalf("reserve on full slot should miss, ok=%v err=%v", ok, err)
	}
}

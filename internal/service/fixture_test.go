package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var fixtureNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu        sync.Mutex
	seq       int
	intents   []PaymentIntentRequest
	cancelled []string
	refunds   []RefundRequest
	createErr error
	refundErr error
	event     *PaymentEvent
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	g.intents = append(g.intents, req)
	id := fmt.Sprintf("pi_test_%d", g.seq)
	return &PaymentIntent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *fakeGateway) CancelPaymentIntent(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, intentID)
	return nil
}

func (g *fakeGateway) Refund(_ context.Context, req RefundRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return "", g.refundErr
	}
	g.refunds = append(g.refunds, req)
	return fmt.Sprintf("re_test_%d", len(g.refunds)), nil
}

func (g *fakeGateway) ParseWebhook(_ map[string]string, _ []byte) (*PaymentEvent, error) {
	if g.event == nil {
		return nil, errors.New("signature mismatch")
	}
	return g.event, nil
}

func (g *fakeGateway) PublishableKey() string {
	return "pk_test_bakery"
}

type catalogSeed struct {
	croissant    *models.Product
	cake         *models.Product
	sourdough    *models.Product
	tray         *models.Product
	cakeSlice    uint
	cakeWhole    uint
	message      uint
	giftBox      uint
	pickupSlot   *models.Timeslot
	tightSlot    *models.Timeslot
	deliverySlot *models.Timeslot
}

type serviceFixture struct {
	db       *gorm.DB
	orders   *OrderService
	promos   *PromoService
	resolver *CatalogResolver
	pricing  *PricingEngine
	gateway  *fakeGateway
	catalog  catalogSeed
}

func openServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.StaffMember{},
		&models.Customer{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Addon{},
		&models.Promo{},
		&models.PromoRedemption{},
		&models.Timeslot{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderItemAddon{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return db
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	db := openServiceTestDB(t, "order_service")

	productRepo := repository.NewProductRepository(db)
	addonRepo := repository.NewAddonRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	resolver := NewCatalogResolver(productRepo, addonRepo)
	promos := NewPromoService(promoRepo)
	pricing := NewPricingEngine(PricingConfig{
		TaxRate:     decimal.RequireFromString(constants.DefaultTaxRate),
		DeliveryFee: decimal.RequireFromString(constants.DefaultDeliveryFee),
		Currency:    constants.DefaultCurrency,
	})
	gateway := &fakeGateway{}

	orders := NewOrderService(OrderServiceDeps{
		OrderRepo:      repository.NewOrderRepository(db),
		PromoRepo:      promoRepo,
		RedemptionRepo: repository.NewPromoRedemptionRepository(db),
		TimeslotRepo:   repository.NewTimeslotRepository(db),
		CustomerRepo:   repository.NewCustomerRepository(db),
		Resolver:       resolver,
		PromoService:   promos,
		Pricing:        pricing,
		Numbers:        NewOrderNumberGenerator("BAK", time.UTC),
		Gateway:        gateway,
	}, OrderServiceOptions{
		POSAllowOverbook: true,
		Now:              func() time.Time { return fixtureNow },
	})

	return &serviceFixture{
		db:       db,
		orders:   orders,
		promos:   promos,
		resolver: resolver,
		pricing:  pricing,
		gateway:  gateway,
		catalog:  seedCatalog(t, db),
	}
}

func money(raw string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(raw))
}

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func seedCatalog(t *testing.T, db *gorm.DB) catalogSeed {
	t.Helper()
	seed := catalogSeed{}

	seed.croissant = &models.Product{Slug: "butter-croissant", Name: "Butter Croissant", BasePrice: money("4.50"), IsActive: true}
	seed.cake = &models.Product{
		Slug:      "carrot-cake",
		Name:      "Carrot Cake",
		BasePrice: money("30.00"),
		IsActive:  true,
		Variants: []models.ProductVariant{
			{Name: "Slice", Price: money("5.50"), IsActive: true, SortOrder: 1},
			{Name: "Whole", Price: money("45.00"), IsActive: true, SortOrder: 2},
		},
		Addons: []models.Addon{
			{Name: "Piped message", Price: money("2.00"), IsActive: true},
		},
	}
	seed.sourdough = &models.Product{Slug: "sourdough-box", Name: "Sourdough Box", BasePrice: money("50.00"), IsActive: true}
	seed.tray = &models.Product{Slug: "catering-tray", Name: "Catering Tray", BasePrice: money("100.00"), IsActive: true}
	for _, product := range []*models.Product{seed.croissant, seed.cake, seed.sourdough, seed.tray} {
		if err := db.Create(product).Error; err != nil {
			t.Fatalf("create product failed: %v", err)
		}
	}
	seed.cakeSlice = seed.cake.Variants[0].ID
	seed.cakeWhole = seed.cake.Variants[1].ID
	seed.message = seed.cake.Addons[0].ID

	giftBox := &models.Addon{Name: "Gift box", Price: money("1.25"), IsActive: true}
	if err := db.Create(giftBox).Error; err != nil {
		t.Fatalf("create addon failed: %v", err)
	}
	seed.giftBox = giftBox.ID

	seed.pickupSlot = &models.Timeslot{Date: "2026-03-15", StartTime: "09:00", EndTime: "10:00", Type: constants.FulfillmentPickup, MaxCapacity: 10, IsActive: true}
	seed.tightSlot = &models.Timeslot{Date: "2026-03-15", StartTime: "10:00", EndTime: "11:00", Type: constants.FulfillmentPickup, MaxCapacity: 1, IsActive: true}
	seed.deliverySlot = &models.Timeslot{Date: "2026-03-16", StartTime: "12:00", EndTime: "14:00", Type: constants.FulfillmentDelivery, MaxCapacity: 5, IsActive: true}
	for _, slot := range []*models.Timeslot{seed.pickupSlot, seed.tightSlot, seed.deliverySlot} {
		if err := db.Create(slot).Error; err != nil {
			t.Fatalf("create timeslot failed: %v", err)
		}
	}
	return seed
}

func createPromo(t *testing.T, db *gorm.DB, promo models.Promo) *models.Promo {
	t.Helper()
	if err := db.Create(&promo).Error; err != nil {
		t.Fatalf("create promo failed: %v", err)
	}
	return &promo
}

func guest() *GuestInfo {
	return &GuestInfo{Name: "Ada Baker", Email: "ada@example.com", Phone: "555-0100"}
}

func basicCart(seed catalogSeed) []CartLineInput {
	return []CartLineInput{
		{ProductID: seed.croissant.ID, Quantity: 2},
		{ProductID: seed.cake.ID, VariantID: seed.cakeSlice, Quantity: 1},
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows failed: %v", err)
	}
	return count
}

func reloadSlot(t *testing.T, db *gorm.DB, id uint) models.Timeslot {
	t.Helper()
	var slot models.Timeslot
	if err := db.First(&slot, id).Error; err != nil {
		t.Fatalf("reload timeslot failed: %v", err)
	}
	return slot
}

func assertMoney(t *testing.T, label string, got models.Money, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: want %s got %s", label, want, got.String())
	}
}

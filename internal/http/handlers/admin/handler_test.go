package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bakehouse-next/internal/authz"
	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/provider"
	"github.com/bakehouse-next/internal/repository"
	"github.com/bakehouse-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type adminEnvelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type adminFixture struct {
	ProductID uint
	CashierID uint
}

func setupAdminHandlerTest(t *testing.T) (*Handler, *gorm.DB, adminFixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	product := models.Product{Slug: "baguette", Name: "Baguette", BasePrice: models.NewMoneyFromDecimal(decimal.RequireFromString("3.75")), IsActive: true}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("counter-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	cashier := models.StaffMember{Username: "counter", PasswordHash: string(hash), DisplayName: "Counter", Role: constants.StaffRoleCashier, IsActive: true}
	if err := db.Create(&cashier).Error; err != nil {
		t.Fatalf("create staff failed: %v", err)
	}

	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("init authz failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}

	cfg := &config.Config{JWT: config.JWTConfig{SecretKey: "admin-handler-test-secret-0123456789", ExpireHours: 1}}
	staffRepo := repository.NewStaffRepository(db)
	productRepo := repository.NewProductRepository(db)
	addonRepo := repository.NewAddonRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	timeslotRepo := repository.NewTimeslotRepository(db)
	resolver := service.NewCatalogResolver(productRepo, addonRepo)
	promos := service.NewPromoService(promoRepo)
	orders := service.NewOrderService(service.OrderServiceDeps{
		OrderRepo:      repository.NewOrderRepository(db),
		PromoRepo:      promoRepo,
		RedemptionRepo: repository.NewPromoRedemptionRepository(db),
		TimeslotRepo:   timeslotRepo,
		CustomerRepo:   repository.NewCustomerRepository(db),
		Resolver:       resolver,
		PromoService:   promos,
		Pricing:        service.NewPricingEngine(service.PricingConfigFrom(config.PricingConfig{})),
		Numbers:        service.NewOrderNumberGenerator("POS", time.UTC),
	}, service.OrderServiceOptions{POSAllowOverbook: true})

	h := New(&provider.Container{
		Config:          cfg,
		StaffRepo:       staffRepo,
		AuthzService:    authzService,
		AuthService:     service.NewAuthService(cfg, staffRepo),
		CatalogService:  service.NewCatalogService(productRepo, addonRepo, time.Minute),
		PromoService:    promos,
		TimeslotService: service.NewTimeslotService(timeslotRepo),
		OrderService:    orders,
	})
	return h, db, adminFixture{ProductID: product.ID, CashierID: cashier.ID}
}

func performAdmin(t *testing.T, handler gin.HandlerFunc, method, target, body string, setup func(c *gin.Context)) adminEnvelope {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if setup != nil {
		setup(c)
	}
	handler(c)
	var resp adminEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func asStaff(staffID uint, params ...gin.Param) func(c *gin.Context) {
	return func(c *gin.Context) {
		c.Set("staff_id", staffID)
		c.Params = params
	}
}

func createWalkInOrder(t *testing.T, h *Handler, fx adminFixture) (uint, string) {
	t.Helper()
	body := fmt.Sprintf(`{"items": [{"product_id": %d, "quantity": 4}], "fulfillment_type": "WALKIN"}`, fx.ProductID)
	resp := performAdmin(t, h.CreatePOSOrder, http.MethodPost, "/api/v1/pos/orders", body, asStaff(fx.CashierID))
	if resp.StatusCode != 0 {
		t.Fatalf("pos order failed: %d %s %s", resp.StatusCode, resp.Msg, string(resp.Data))
	}
	var view struct {
		Order struct {
			ID            uint   `json:"id"`
			Status        string `json:"status"`
			PaymentMethod string `json:"payment_method"`
			IsPaid        bool   `json:"is_paid"`
			StaffID       *uint  `json:"staff_id"`
		} `json:"order"`
	}
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}
	if view.Order.StaffID == nil || *view.Order.StaffID != fx.CashierID {
		t.Fatalf("pos order must record the cashier: %+v", view.Order)
	}
	return view.Order.ID, view.Order.Status
}

func TestCreatePOSOrderDefaultsToCash(t *testing.T) {
	h, db, fx := setupAdminHandlerTest(t)
	id, status := createWalkInOrder(t, h, fx)
	if status != constants.OrderStatusConfirmed {
		t.Fatalf("cash order want CONFIRMED got %s", status)
	}
	var order models.Order
	if err := db.First(&order, id).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if order.PaymentMethod != constants.PaymentMethodCash || !order.IsPaid {
		t.Fatalf("pos default payment should be paid cash: %+v", order)
	}
	if order.GuestName != "" || order.CustomerID != nil {
		t.Fatalf("anonymous walk-in should carry no contact")
	}
}

func TestCreatePOSOrderWithoutStaffIsUnauthorized(t *testing.T) {
	h, _, fx := setupAdminHandlerTest(t)
	body := fmt.Sprintf(`{"items": [{"product_id": %d, "quantity": 1}], "fulfillment_type": "WALKIN"}`, fx.ProductID)
	resp := performAdmin(t, h.CreatePOSOrder, http.MethodPost, "/api/v1/pos/orders", body, nil)
	if resp.StatusCode != 401 {
		t.Fatalf("want 401 got %d", resp.StatusCode)
	}
}

func TestUpdateOrderStatusRejectsSkippingSteps(t *testing.T) {
	h, _, fx := setupAdminHandlerTest(t)
	id, _ := createWalkInOrder(t, h, fx)
	param := gin.Param{Key: "id", Value: fmt.Sprint(id)}

	skipped := performAdmin(t, h.UpdateOrderStatus, http.MethodPatch, "/api/v1/admin/orders/1/status", `{"status": "COMPLETED"}`, asStaff(fx.CashierID, param))
	if skipped.StatusCode != 409 || !strings.Contains(string(skipped.Data), "invalid_state_transition") {
		t.Fatalf("want 409 invalid_state_transition got %d %s", skipped.StatusCode, string(skipped.Data))
	}

	next := performAdmin(t, h.UpdateOrderStatus, http.MethodPatch, "/api/v1/admin/orders/1/status", `{"status": "in_production"}`, asStaff(fx.CashierID, param))
	if next.StatusCode != 0 || !strings.Contains(string(next.Data), constants.OrderStatusInProduction) {
		t.Fatalf("advance failed: %d %s", next.StatusCode, string(next.Data))
	}
}

func TestGetOrderUnknownAndMalformedID(t *testing.T) {
	h, _, fx := setupAdminHandlerTest(t)
	missing := performAdmin(t, h.GetOrder, http.MethodGet, "/api/v1/admin/orders/999", "", asStaff(fx.CashierID, gin.Param{Key: "id", Value: "999"}))
	if missing.StatusCode != 404 {
		t.Fatalf("want 404 got %d", missing.StatusCode)
	}
	bad := performAdmin(t, h.GetOrder, http.MethodGet, "/api/v1/admin/orders/abc", "", asStaff(fx.CashierID, gin.Param{Key: "id", Value: "abc"}))
	if bad.StatusCode != 400 {
		t.Fatalf("want 400 got %d", bad.StatusCode)
	}
}

func TestDeletePaidOrderIsRejected(t *testing.T) {
	h, db, fx := setupAdminHandlerTest(t)
	id, _ := createWalkInOrder(t, h, fx)
	resp := performAdmin(t, h.DeleteOrder, http.MethodDelete, "/api/v1/admin/orders/1", "", asStaff(fx.CashierID, gin.Param{Key: "id", Value: fmt.Sprint(id)}))
	if resp.StatusCode != 409 {
		t.Fatalf("want 409 got %d", resp.StatusCode)
	}
	var count int64
	db.Model(&models.Order{}).Where("id = ?", id).Count(&count)
	if count != 1 {
		t.Fatalf("paid order must survive delete attempt")
	}
}

func TestListOrdersPaginates(t *testing.T) {
	h, _, fx := setupAdminHandlerTest(t)
	for i := 0; i < 3; i++ {
		createWalkInOrder(t, h, fx)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?page=1&page_size=2&channel=pos", nil)
	h.ListOrders(c)

	var resp struct {
		StatusCode int               `json:"status_code"`
		Data       []json.RawMessage `json:"data"`
		Pagination struct {
			Total     int64 `json:"total"`
			TotalPage int64 `json:"total_page"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list failed: %v", err)
	}
	if resp.StatusCode != 0 || len(resp.Data) != 2 || resp.Pagination.Total != 3 || resp.Pagination.TotalPage != 2 {
		t.Fatalf("unexpected page: %s", w.Body.String())
	}
}

func TestCreatePromoDefaultsActiveAndRejectsDuplicate(t *testing.T) {
	h, db, fx := setupAdminHandlerTest(t)
	body := `{"code": "summer5", "type": "fixed_amount", "value": "5"}`
	created := performAdmin(t, h.CreatePromo, http.MethodPost, "/api/v1/admin/promos", body, asStaff(fx.CashierID))
	if created.StatusCode != 0 {
		t.Fatalf("create promo failed: %d %s %s", created.StatusCode, created.Msg, string(created.Data))
	}
	var promo models.Promo
	if err := db.Where("code = ?", "SUMMER5").First(&promo).Error; err != nil {
		t.Fatalf("reload promo failed: %v", err)
	}
	if !promo.IsActive {
		t.Fatalf("promo without is_active should default to active")
	}

	dup := performAdmin(t, h.CreatePromo, http.MethodPost, "/api/v1/admin/promos", body, asStaff(fx.CashierID))
	if dup.StatusCode != 409 {
		t.Fatalf("duplicate promo want 409 got %d", dup.StatusCode)
	}
}

func TestLoginSyncsRoleToAuthz(t *testing.T) {
	h, _, fx := setupAdminHandlerTest(t)

	wrong := performAdmin(t, h.Login, http.MethodPost, "/api/v1/admin/auth/login", `{"username": "counter", "password": "nope"}`, nil)
	if wrong.StatusCode != 401 {
		t.Fatalf("bad password want 401 got %d", wrong.StatusCode)
	}

	resp := performAdmin(t, h.Login, http.MethodPost, "/api/v1/admin/auth/login", `{"username": "counter", "password": "counter-pass"}`, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("login failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login should return token: %s", string(resp.Data))
	}
	roles, err := h.AuthzService.GetStaffRoles(fx.CashierID)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:"+constants.StaffRoleCashier {
		t.Fatalf("want cashier role got %v", roles)
	}
}

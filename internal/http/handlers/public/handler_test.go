package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/provider"
	"github.com/bakehouse-next/internal/repository"
	"github.com/bakehouse-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type publicFixture struct {
	CroissantID uint
	RetiredID   uint
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupPublicHandlerTest(t *testing.T, guestCaptcha bool) (*Handler, *gorm.DB, publicFixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
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

	croissant := models.Product{Slug: "croissant", Name: "Croissant", BasePrice: mustMoney("4.50"), IsActive: true}
	retired := models.Product{Slug: "retired-tart", Name: "Retired Tart", BasePrice: mustMoney("6.00"), IsActive: true}
	if err := db.Create(&croissant).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if err := db.Create(&retired).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if err := db.Model(&retired).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}
	if err := db.Create(&models.Promo{Code: "TENOFF", Type: constants.PromoTypePercentage, Value: mustMoney("10"), IsActive: true}).Error; err != nil {
		t.Fatalf("create promo failed: %v", err)
	}

	productRepo := repository.NewProductRepository(db)
	addonRepo := repository.NewAddonRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	timeslotRepo := repository.NewTimeslotRepository(db)
	resolver := service.NewCatalogResolver(productRepo, addonRepo)
	promos := service.NewPromoService(promoRepo)
	pricing := service.NewPricingEngine(service.PricingConfigFrom(config.PricingConfig{}))
	orders := service.NewOrderService(service.OrderServiceDeps{
		OrderRepo:      repository.NewOrderRepository(db),
		PromoRepo:      promoRepo,
		RedemptionRepo: repository.NewPromoRedemptionRepository(db),
		TimeslotRepo:   timeslotRepo,
		CustomerRepo:   repository.NewCustomerRepository(db),
		Resolver:       resolver,
		PromoService:   promos,
		Pricing:        pricing,
		Numbers:        service.NewOrderNumberGenerator("BAK", time.UTC),
	}, service.OrderServiceOptions{})

	h := New(&provider.Container{
		CaptchaService:  service.NewCaptchaService(config.CaptchaConfig{GuestCheckout: guestCaptcha}),
		CatalogService:  service.NewCatalogService(productRepo, addonRepo, time.Minute),
		PromoService:    promos,
		TimeslotService: service.NewTimeslotService(timeslotRepo),
		OrderService:    orders,
	})
	return h, db, publicFixture{CroissantID: croissant.ID, RetiredID: retired.ID}
}

func mustMoney(raw string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(raw))
}

func performJSON(t *testing.T, handler gin.HandlerFunc, method, target, body string, setup func(c *gin.Context)) envelope {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if setup != nil {
		setup(c)
	}
	handler(c)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected http status: %d", w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestPreviewCartReportsWarningsAndTotals(t *testing.T) {
	h, _, fx := setupPublicHandlerTest(t, false)
	body := fmt.Sprintf(`{
		"items": [
			{"product_id": %d, "quantity": 2},
			{"product_id": %d, "quantity": 1}
		],
		"fulfillment_type": "PICKUP",
		"promo_code": "tenoff"
	}`, fx.CroissantID, fx.RetiredID)

	resp := performJSON(t, h.PreviewCart, http.MethodPost, "/api/v1/public/cart/preview", body, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("preview failed: %d %s %s", resp.StatusCode, resp.Msg, string(resp.Data))
	}
	var view struct {
		Lines    []map[string]interface{} `json:"lines"`
		Warnings []struct {
			LineIndex int    `json:"line_index"`
			Kind      string `json:"kind"`
		} `json:"warnings"`
		Totals map[string]string `json:"totals"`
	}
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("decode preview failed: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("want 1 priced line got %d", len(view.Lines))
	}
	if len(view.Warnings) != 1 || view.Warnings[0].LineIndex != 1 || view.Warnings[0].Kind != service.WarningProductUnavailable {
		t.Fatalf("unexpected warnings: %+v", view.Warnings)
	}
	if view.Totals["subtotal"] != "9.00" || view.Totals["discount"] != "0.90" {
		t.Fatalf("unexpected totals: %+v", view.Totals)
	}
}

func TestPreviewCartRejectsMalformedBody(t *testing.T) {
	h, _, _ := setupPublicHandlerTest(t, false)
	resp := performJSON(t, h.PreviewCart, http.MethodPost, "/api/v1/public/cart/preview", `{"items": "nope"}`, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("want 400 got %d", resp.StatusCode)
	}
}

func TestCreateOrderGuestRequiresCaptcha(t *testing.T) {
	h, db, fx := setupPublicHandlerTest(t, true)
	body := fmt.Sprintf(`{
		"items": [{"product_id": %d, "quantity": 1}],
		"fulfillment_type": "PICKUP",
		"payment_method": "PAY_IN_STORE",
		"guest": {"name": "Ada", "email": "ada@example.com"}
	}`, fx.CroissantID)

	resp := performJSON(t, h.CreateOrder, http.MethodPost, "/api/v1/public/orders", body, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("want captcha rejection got %d %s", resp.StatusCode, resp.Msg)
	}
	if !strings.Contains(string(resp.Data), "captcha_required") {
		t.Fatalf("want captcha_required kind got %s", string(resp.Data))
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("order must not be created without captcha")
	}
}

func TestCreateOrderSignedInCustomerSkipsCaptcha(t *testing.T) {
	h, _, fx := setupPublicHandlerTest(t, true)
	body := fmt.Sprintf(`{
		"items": [{"product_id": %d, "quantity": 2}],
		"fulfillment_type": "PICKUP",
		"payment_method": "PAY_IN_STORE"
	}`, fx.CroissantID)

	resp := performJSON(t, h.CreateOrder, http.MethodPost, "/api/v1/public/orders", body, func(c *gin.Context) {
		c.Set(customerIdentityKey, &service.CustomerIdentity{Email: "member@example.com", Name: "Member"})
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create order failed: %d %s %s", resp.StatusCode, resp.Msg, string(resp.Data))
	}
	var view struct {
		Order struct {
			OrderNo     string `json:"order_no"`
			Status      string `json:"status"`
			TotalAmount string `json:"total_amount"`
			CustomerID  *uint  `json:"customer_id"`
		} `json:"order"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}
	if view.Order.OrderNo == "" || view.Order.CustomerID == nil {
		t.Fatalf("order not linked to customer: %+v", view.Order)
	}
	if view.Order.Status != constants.OrderStatusNew || view.ClientSecret != "" {
		t.Fatalf("pay in store order should be NEW without intent: %+v", view)
	}
}

func TestCreateOrderCardWithoutGatewayIsBadGateway(t *testing.T) {
	h, db, fx := setupPublicHandlerTest(t, false)
	body := fmt.Sprintf(`{
		"items": [{"product_id": %d, "quantity": 1}],
		"fulfillment_type": "PICKUP",
		"guest": {"name": "Ada", "email": "ada@example.com"}
	}`, fx.CroissantID)

	resp := performJSON(t, h.CreateOrder, http.MethodPost, "/api/v1/public/orders", body, nil)
	if resp.StatusCode != 502 {
		t.Fatalf("want 502 got %d %s", resp.StatusCode, resp.Msg)
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("failed payment must not leave an order behind, got %d", count)
	}
}

func TestLookupOrderRequiresMatchingEmail(t *testing.T) {
	h, _, fx := setupPublicHandlerTest(t, false)
	body := fmt.Sprintf(`{
		"items": [{"product_id": %d, "quantity": 1}],
		"fulfillment_type": "PICKUP",
		"payment_method": "PAY_IN_STORE",
		"guest": {"name": "Ada", "email": "Ada@Example.com"}
	}`, fx.CroissantID)
	created := performJSON(t, h.CreateOrder, http.MethodPost, "/api/v1/public/orders", body, nil)
	if created.StatusCode != 0 {
		t.Fatalf("create order failed: %d %s", created.StatusCode, created.Msg)
	}
	var view struct {
		Order struct {
			OrderNo string `json:"order_no"`
		} `json:"order"`
	}
	if err := json.Unmarshal(created.Data, &view); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}

	lookup := func(email string) envelope {
		return performJSON(t, h.LookupOrder, http.MethodGet, "/api/v1/public/orders/"+view.Order.OrderNo+"?email="+email, "", func(c *gin.Context) {
			c.Params = gin.Params{{Key: "order_no", Value: view.Order.OrderNo}}
		})
	}
	if resp := lookup("ada@example.com"); resp.StatusCode != 0 {
		t.Fatalf("lookup with matching email failed: %d", resp.StatusCode)
	}
	if resp := lookup("eve@example.com"); resp.StatusCode != 404 {
		t.Fatalf("lookup with other email want 404 got %d", resp.StatusCode)
	}
}

func TestValidatePromoDoesNotConsumeUses(t *testing.T) {
	h, db, _ := setupPublicHandlerTest(t, false)

	resp := performJSON(t, h.ValidatePromo, http.MethodPost, "/api/v1/public/promos/validate", `{"code": "tenoff", "subtotal": "40.00"}`, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("validate failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode validate failed: %v", err)
	}
	if data["valid"] != true || data["discount"] != "4.00" {
		t.Fatalf("unexpected validate result: %+v", data)
	}

	missing := performJSON(t, h.ValidatePromo, http.MethodPost, "/api/v1/public/promos/validate", `{"code": "NOPE", "subtotal": "40.00"}`, nil)
	if !strings.Contains(string(missing.Data), constants.PromoReasonNotFound) {
		t.Fatalf("want not found reason got %s", string(missing.Data))
	}

	var promo models.Promo
	if err := db.Where("code = ?", "TENOFF").First(&promo).Error; err != nil {
		t.Fatalf("reload promo failed: %v", err)
	}
	if promo.UsedCount != 0 {
		t.Fatalf("validate must not consume uses, got %d", promo.UsedCount)
	}
}

func TestGetImageCaptchaDisabled(t *testing.T) {
	h, _, _ := setupPublicHandlerTest(t, false)
	resp := performJSON(t, h.GetImageCaptcha, http.MethodGet, "/api/v1/public/captcha", "", nil)
	if resp.StatusCode != 0 || !strings.Contains(string(resp.Data), `"enabled":false`) {
		t.Fatalf("unexpected captcha response: %d %s", resp.StatusCode, string(resp.Data))
	}
}

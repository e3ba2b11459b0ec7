package main

import (
	"time"

	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type seedVariant struct {
	Name  string
	Price string
}

type seedProduct struct {
	Slug        string
	Name        string
	Description string
	Category    string
	BasePrice   string
	SortOrder   int
	Variants    []seedVariant
	Addons      []seedVariant
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 菜单
	products := []seedProduct{
		{Slug: "butter-croissant", Name: "Butter Croissant", Description: "Laminated all-butter croissant", Category: "Viennoiserie", BasePrice: "4.50", SortOrder: 10},
		{Slug: "pain-au-chocolat", Name: "Pain au Chocolat", Description: "Two batons of dark chocolate", Category: "Viennoiserie", BasePrice: "5.00", SortOrder: 20},
		{Slug: "country-sourdough", Name: "Country Sourdough", Description: "48 hour levain loaf", Category: "Bread", BasePrice: "9.00", SortOrder: 30,
			Variants: []seedVariant{{Name: "Half loaf", Price: "5.50"}, {Name: "Whole loaf", Price: "9.00"}}},
		{Slug: "chocolate-cake", Name: "Chocolate Cake", Description: "Dark chocolate ganache layer cake", Category: "Cakes", BasePrice: "6.50", SortOrder: 40,
			Variants: []seedVariant{{Name: "Slice", Price: "6.50"}, {Name: "Whole", Price: "45.00"}},
			Addons:   []seedVariant{{Name: "Custom message", Price: "2.00"}, {Name: "Candles", Price: "1.00"}}},
	}
	for _, item := range products {
		product, err := seedMenuProduct(item)
		if err != nil {
			stdLog.Printf("Failed to create product %s: %v", item.Slug, err)
			continue
		}
		stdLog.Printf("Product ready: %s (id=%d)", product.Slug, product.ID)
	}

	// 全局加料
	for _, addon := range []seedVariant{{Name: "Gift box", Price: "1.25"}, {Name: "Extra napkins", Price: "0"}} {
		var existing models.Addon
		if err := models.DB.Where("product_id IS NULL AND name = ?", addon.Name).First(&existing).Error; err == nil {
			stdLog.Printf("Addon already exists: %s", addon.Name)
			continue
		}
		row := models.Addon{Name: addon.Name, Price: mustMoney(addon.Price), IsActive: true}
		if err := models.DB.Create(&row).Error; err != nil {
			stdLog.Printf("Failed to create addon %s: %v", addon.Name, err)
		}
	}

	// 优惠码
	minimum := mustMoney("30.00")
	maxUses := 100
	expires := time.Now().AddDate(0, 3, 0)
	promos := []models.Promo{
		{Code: "WELCOME10", Description: "10% off your first order", Type: constants.PromoTypePercentage, Value: mustMoney("10"), IsActive: true},
		{Code: "CAKE5", Description: "$5 off orders over $30", Type: constants.PromoTypeFixedAmount, Value: mustMoney("5"), MinOrderAmount: &minimum, MaxUses: &maxUses, ExpiresAt: &expires, IsActive: true},
	}
	for _, promo := range promos {
		var existing models.Promo
		if err := models.DB.Where("code = ?", promo.Code).First(&existing).Error; err == nil {
			stdLog.Printf("Promo already exists: %s", promo.Code)
			continue
		}
		if err := models.DB.Create(&promo).Error; err != nil {
			stdLog.Printf("Failed to create promo %s: %v", promo.Code, err)
		} else {
			stdLog.Printf("Created promo: %s", promo.Code)
		}
	}

	// 未来一周的取货/配送时段
	loc := cfg.Store.Location()
	today := time.Now().In(loc)
	windows := []struct {
		Start string
		End   string
		Type  string
		Cap   int
	}{
		{"08:00", "10:00", constants.FulfillmentPickup, 20},
		{"10:00", "12:00", constants.FulfillmentPickup, 20},
		{"14:00", "16:00", constants.FulfillmentPickup, 15},
		{"10:00", "13:00", constants.FulfillmentDelivery, 8},
		{"15:00", "18:00", constants.FulfillmentDelivery, 8},
	}
	created := 0
	for day := 0; day < 7; day++ {
		date := today.AddDate(0, 0, day).Format("2006-01-02")
		for _, w := range windows {
			slot := models.Timeslot{Date: date, StartTime: w.Start, EndTime: w.End, Type: w.Type, MaxCapacity: w.Cap, IsActive: true}
			result := models.DB.Where(models.Timeslot{Date: date, StartTime: w.Start, Type: w.Type}).FirstOrCreate(&slot)
			if result.Error != nil {
				stdLog.Printf("Failed to create timeslot %s %s %s: %v", date, w.Start, w.Type, result.Error)
				continue
			}
			created += int(result.RowsAffected)
		}
	}
	stdLog.Printf("Timeslots created: %d", created)

	// 员工
	staff := []struct {
		Username string
		Password string
		Display  string
		Role     string
	}{
		{"manager", models.DefaultStaffPassword, "Store Manager", constants.StaffRoleManager},
		{"cashier", "cashier123", "Front Counter", constants.StaffRoleCashier},
	}
	for _, s := range staff {
		var existing models.StaffMember
		if err := models.DB.Where("username = ?", s.Username).First(&existing).Error; err == nil {
			stdLog.Printf("Staff already exists: %s", s.Username)
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
		if err != nil {
			stdLog.Printf("Failed to hash password for %s: %v", s.Username, err)
			continue
		}
		member := models.StaffMember{Username: s.Username, PasswordHash: string(hash), DisplayName: s.Display, Role: s.Role, IsActive: true}
		if err := models.DB.Create(&member).Error; err != nil {
			stdLog.Printf("Failed to create staff %s: %v", s.Username, err)
		} else {
			stdLog.Printf("Created staff: %s (%s)", s.Username, s.Role)
		}
	}

	stdLog.Printf("Seed completed")
}

func seedMenuProduct(item seedProduct) (*models.Product, error) {
	var product models.Product
	if err := models.DB.Where("slug = ?", item.Slug).First(&product).Error; err == nil {
		return &product, nil
	}
	product = models.Product{
		Slug:        item.Slug,
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		BasePrice:   mustMoney(item.BasePrice),
		IsActive:    true,
		SortOrder:   item.SortOrder,
	}
	if err := models.DB.Create(&product).Error; err != nil {
		return nil, err
	}
	for idx, v := range item.Variants {
		variant := models.ProductVariant{ProductID: product.ID, Name: v.Name, Price: mustMoney(v.Price), IsActive: true, SortOrder: idx}
		if err := models.DB.Create(&variant).Error; err != nil {
			return nil, err
		}
	}
	for idx, a := range item.Addons {
		productID := product.ID
		addon := models.Addon{ProductID: &productID, Name: a.Name, Price: mustMoney(a.Price), IsActive: true, SortOrder: idx}
		if err := models.DB.Create(&addon).Error; err != nil {
			return nil, err
		}
	}
	return &product, nil
}

func mustMoney(raw string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(raw))
}

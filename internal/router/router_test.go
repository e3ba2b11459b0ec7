package router

import (
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBuildStaffPermissionCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	noop := func(c *gin.Context) {}
	r.POST("/api/v1/admin/auth/login", noop)
	r.GET("/api/v1/admin/orders", noop)
	r.PATCH("/api/v1/admin/orders/:id/status", noop)
	r.POST("/api/v1/pos/orders", noop)
	r.GET("/api/v1/public/products", noop)

	items := buildStaffPermissionCatalog(r)
	if len(items) != 3 {
		t.Fatalf("want 3 staff permissions got %+v", items)
	}
	got := map[string]string{}
	for _, item := range items {
		got[item.Permission] = item.Module
	}
	want := map[string]string{
		"GET:/admin/orders":              "orders",
		"PATCH:/admin/orders/:id/status": "orders",
		"POST:/pos/orders":               "pos",
	}
	for permission, module := range want {
		if got[permission] != module {
			t.Fatalf("permission %s want module %s got %q", permission, module, got[permission])
		}
	}
}

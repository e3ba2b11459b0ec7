package admin

import "github.com/bakehouse-next/internal/provider"

// Handler 后台管理与门店收银接口处理器入口
// 说明：该处理器仅用于员工侧 API。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

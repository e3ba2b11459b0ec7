package admin

import (
	"github.com/bakehouse-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// LoginRequest 员工登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 员工登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	staff, token, expiresAt, err := h.AuthService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		requestLog(c).Infow("staff_login_rejected", "username", req.Username, "error", err)
		respondWithMappedError(c, err, "login failed")
		return
	}
	if h.AuthzService != nil {
		if err := h.AuthzService.SyncStaffRole(staff.ID, staff.Role); err != nil {
			requestLog(c).Warnw("staff_login_role_sync_failed", "staff_id", staff.ID, "error", err)
		}
	}

	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"staff":      staff,
	})
}

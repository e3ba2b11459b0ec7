package public

import (
	"github.com/bakehouse-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetImageCaptcha 获取图片验证码挑战
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if h.CaptchaService == nil || !h.CaptchaService.GuestCheckoutEnabled() {
		response.Success(c, gin.H{"enabled": false})
		return
	}

	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		respondError(c, response.CodeInternal, "captcha generate failed", err)
		return
	}

	response.Success(c, gin.H{
		"enabled":      true,
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}

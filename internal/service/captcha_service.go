package service

import (
	"strings"
	"sync"
	"time"

	"github.com/bakehouse-next/internal/config"

	"github.com/mojocn/base64Captcha"
)

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaService 游客下单图片验证码
type CaptchaService struct {
	cfg config.CaptchaConfig

	once  sync.Once
	store base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	if cfg.Length <= 0 {
		cfg.Length = 5
	}
	if cfg.Width <= 0 {
		cfg.Width = 240
	}
	if cfg.Height <= 0 {
		cfg.Height = 80
	}
	if cfg.ExpireSeconds <= 0 {
		cfg.ExpireSeconds = 300
	}
	if cfg.MaxStore <= 0 {
		cfg.MaxStore = 10240
	}
	return &CaptchaService{cfg: cfg}
}

// GuestCheckoutEnabled 游客下单是否需要验证码
func (s *CaptchaService) GuestCheckoutEnabled() bool {
	return s != nil && s.cfg.GuestCheckout
}

func (s *CaptchaService) imageStore() base64Captcha.Store {
	s.once.Do(func() {
		s.store = base64Captcha.NewMemoryStore(s.cfg.MaxStore, time.Duration(s.cfg.ExpireSeconds)*time.Second)
	})
	return s.store
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	driver := base64Captcha.NewDriverString(
		s.cfg.Height,
		s.cfg.Width,
		s.cfg.NoiseCount,
		s.cfg.ShowLine,
		s.cfg.Length,
		"23456789abcdefghjkmnpqrstuvwxyz",
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, s.imageStore())
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// VerifyGuestCheckout 校验游客下单验证码，未开启时直接通过
func (s *CaptchaService) VerifyGuestCheckout(payload CaptchaVerifyPayload) error {
	if !s.GuestCheckoutEnabled() {
		return nil
	}
	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	if !s.imageStore().Verify(captchaID, strings.ToLower(captchaCode), true) {
		return ErrCaptchaInvalid
	}
	return nil
}

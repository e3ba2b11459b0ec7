package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/bakehouse-next/internal/config"
)

func TestVerifyGuestCheckoutDisabled(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{GuestCheckout: false})
	if err := svc.VerifyGuestCheckout(CaptchaVerifyPayload{}); err != nil {
		t.Fatalf("disabled captcha should pass: %v", err)
	}
	var nilSvc *CaptchaService
	if nilSvc.GuestCheckoutEnabled() {
		t.Fatalf("nil service should be disabled")
	}
}

func TestVerifyGuestCheckoutEnabled(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{GuestCheckout: true})

	if err := svc.VerifyGuestCheckout(CaptchaVerifyPayload{}); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("missing captcha want ErrCaptchaRequired got %v", err)
	}

	challenge, err := svc.GenerateImageChallenge()
	if err != nil {
		t.Fatalf("generate captcha failed: %v", err)
	}
	if challenge.CaptchaID == "" || !strings.HasPrefix(challenge.ImageBase64, "data:image/") {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	if err := svc.VerifyGuestCheckout(CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: "0000000"}); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("wrong code want ErrCaptchaInvalid got %v", err)
	}
}

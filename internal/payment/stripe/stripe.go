package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("stripe config invalid")
	ErrRequestFailed    = errors.New("stripe request failed")
	ErrResponseInvalid  = errors.New("stripe response invalid")
	ErrSignatureInvalid = errors.New("stripe signature invalid")
)

const (
	defaultAPIBaseURL        = "https://api.stripe.com"
	defaultTimeout           = 12 * time.Second
	defaultWebhookToleranceS = 300
)

// 事件状态
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
	StatusPending   = "pending"
)

var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {},
	"CLP": {},
	"JPY": {},
	"KRW": {},
	"PYG": {},
	"VND": {},
	"XAF": {},
	"XOF": {},
}

// Config Stripe 支付意图配置。
type Config struct {
	SecretKey               string
	PublishableKey          string
	WebhookSecret           string
	APIBaseURL              string
	WebhookToleranceSeconds int
}

// CreateIntentInput 创建支付意图输入。
type CreateIntentInput struct {
	Amount         string
	Currency       string
	Description    string
	Reference      string
	ReceiptEmail   string
	IdempotencyKey string
}

// IntentResult 支付意图返回。
type IntentResult struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       string
	Currency     string
	Raw          map[string]interface{}
}

// RefundInput 退款输入，Amount 为空表示全额退款。
type RefundInput struct {
	PaymentIntentID string
	Amount          string
	Currency        string
	Reason          string
	IdempotencyKey  string
}

// RefundResult 退款返回。
type RefundResult struct {
	ID       string
	Status   string
	Amount   string
	Currency string
	Raw      map[string]interface{}
}

// WebhookResult Stripe Webhook 解析结果。
type WebhookResult struct {
	EventID         string
	EventType       string
	PaymentIntentID string
	Reference       string
	Status          string
	Amount          string
	Currency        string
	OccurredAt      *time.Time
	Raw             map[string]interface{}
}

// Normalize 规范化配置并补齐默认值。
func (c *Config) Normalize() {
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.PublishableKey = strings.TrimSpace(c.PublishableKey)
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.WebhookToleranceSeconds <= 0 {
		c.WebhookToleranceSeconds = defaultWebhookToleranceS
	}
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return fmt.Errorf("%w: api_base_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.APIBaseURL)); err != nil {
		return fmt.Errorf("%w: api_base_url is invalid", ErrConfigInvalid)
	}
	return nil
}

// CreatePaymentIntent 创建支付意图，返回前端确认支付所需的 client_secret。
func CreatePaymentIntent(ctx context.Context, cfg *Config, input CreateIntentInput) (*IntentResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", ErrConfigInvalid)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrConfigInvalid)
	}
	minorAmount, err := toMinorAmount(input.Amount, currency)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(minorAmount, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[checkout_ref]", reference)
	if description := strings.TrimSpace(input.Description); description != "" {
		form.Set("description", description)
	}
	if email := strings.TrimSpace(input.ReceiptEmail); email != "" {
		form.Set("receipt_email", email)
	}

	respBody, statusCode, err := doFormRequest(ctx, cfg, http.MethodPost, "/v1/payment_intents", form, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: create payment intent status %d: %s", ErrResponseInvalid, statusCode, readErrorMessage(respBody))
	}
	raw, err := decodeRawMap(respBody)
	if err != nil {
		return nil, err
	}
	result := intentFromRaw(raw)
	if result.ID == "" || result.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing payment intent id or client_secret", ErrResponseInvalid)
	}
	return result, nil
}

// CancelPaymentIntent 取消支付意图。
func CancelPaymentIntent(ctx context.Context, cfg *Config, paymentIntentID string) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return fmt.Errorf("%w: payment_intent is required", ErrConfigInvalid)
	}
	path := fmt.Sprintf("/v1/payment_intents/%s/cancel", url.PathEscape(paymentIntentID))
	respBody, statusCode, err := doFormRequest(ctx, cfg, http.MethodPost, path, url.Values{}, "")
	if err != nil {
		return err
	}
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("%w: cancel payment intent status %d: %s", ErrResponseInvalid, statusCode, readErrorMessage(respBody))
	}
	return nil
}

// CreateRefund 按支付意图发起退款。
func CreateRefund(ctx context.Context, cfg *Config, input RefundInput) (*RefundResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	intentID := strings.TrimSpace(input.PaymentIntentID)
	if intentID == "" {
		return nil, fmt.Errorf("%w: payment_intent is required", ErrConfigInvalid)
	}

	form := url.Values{}
	form.Set("payment_intent", intentID)
	if strings.TrimSpace(input.Amount) != "" {
		minorAmount, err := toMinorAmount(input.Amount, input.Currency)
		if err != nil {
			return nil, err
		}
		form.Set("amount", strconv.FormatInt(minorAmount, 10))
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		form.Set("reason", reason)
	}

	respBody, statusCode, err := doFormRequest(ctx, cfg, http.MethodPost, "/v1/refunds", form, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: create refund status %d: %s", ErrResponseInvalid, statusCode, readErrorMessage(respBody))
	}
	raw, err := decodeRawMap(respBody)
	if err != nil {
		return nil, err
	}
	result := &RefundResult{Raw: raw}
	result.ID = strings.TrimSpace(readString(raw, "id"))
	result.Status = strings.ToLower(strings.TrimSpace(readString(raw, "status")))
	result.Currency = strings.ToUpper(strings.TrimSpace(readString(raw, "currency")))
	if amountMinor := readInt64(raw, "amount"); amountMinor > 0 && result.Currency != "" {
		result.Amount = fromMinorAmount(amountMinor, result.Currency)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("%w: missing refund id", ErrResponseInvalid)
	}
	if result.Status == "failed" || result.Status == "canceled" {
		return nil, fmt.Errorf("%w: refund %s is %s", ErrResponseInvalid, result.ID, result.Status)
	}
	return result, nil
}

// VerifyAndParseWebhook 校验并解析 Stripe webhook。
func VerifyAndParseWebhook(cfg *Config, headers map[string]string, body []byte, now time.Time) (*WebhookResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: body is empty", ErrResponseInvalid)
	}
	if now.IsZero() {
		now = time.Now()
	}

	signatureHeader := getHeaderValue(headers, "Stripe-Signature")
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, fmt.Errorf("%w: Stripe-Signature is required", ErrSignatureInvalid)
	}
	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}
	if cfg.WebhookToleranceSeconds > 0 {
		delta := math.Abs(float64(now.Unix() - timestamp))
		if delta > float64(cfg.WebhookToleranceSeconds) {
			return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
		}
	}

	expected := ComputeSignature(cfg.WebhookSecret, timestamp, body)
	matched := false
	for _, sig := range signatures {
		if hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
	}

	eventRaw, err := decodeRawMap(body)
	if err != nil {
		return nil, err
	}
	eventType := strings.TrimSpace(readString(eventRaw, "type"))
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrResponseInvalid)
	}
	dataRaw := readMap(eventRaw, "data")
	objectRaw := readMap(dataRaw, "object")
	if objectRaw == nil {
		return nil, fmt.Errorf("%w: missing event object", ErrResponseInvalid)
	}

	result := &WebhookResult{
		EventID:   strings.TrimSpace(readString(eventRaw, "id")),
		EventType: eventType,
		Raw:       eventRaw,
	}
	if created := readInt64(eventRaw, "created"); created > 0 {
		occurredAt := time.Unix(created, 0)
		result.OccurredAt = &occurredAt
	}
	if strings.TrimSpace(readString(objectRaw, "object")) == "payment_intent" {
		intent := intentFromRaw(objectRaw)
		result.PaymentIntentID = intent.ID
		result.Amount = intent.Amount
		result.Currency = intent.Currency
		result.Reference = strings.TrimSpace(readString(readMap(objectRaw, "metadata"), "checkout_ref"))
	}
	if status, ok := mapEventTypeStatus(eventType); ok {
		result.Status = status
	} else {
		result.Status = mapPaymentIntentStatus(readString(objectRaw, "status"))
	}
	return result, nil
}

// ComputeSignature 计算 v1 签名（测试与本地联调也使用）。
func ComputeSignature(secret string, timestamp int64, body []byte) string {
	payload := strconv.FormatInt(timestamp, 10) + "." + string(body)
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(payload))
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

func intentFromRaw(raw map[string]interface{}) *IntentResult {
	result := &IntentResult{Raw: raw}
	result.ID = strings.TrimSpace(readString(raw, "id"))
	result.ClientSecret = strings.TrimSpace(readString(raw, "client_secret"))
	result.Status = mapPaymentIntentStatus(readString(raw, "status"))
	result.Currency = strings.ToUpper(strings.TrimSpace(readString(raw, "currency")))
	amountMinor := readInt64(raw, "amount_received")
	if amountMinor <= 0 {
		amountMinor = readInt64(raw, "amount")
	}
	if amountMinor > 0 && result.Currency != "" {
		result.Amount = fromMinorAmount(amountMinor, result.Currency)
	}
	return result
}

func mapEventTypeStatus(eventType string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "payment_intent.succeeded":
		return StatusSucceeded, true
	case "payment_intent.payment_failed":
		return StatusFailed, true
	case "payment_intent.canceled":
		return StatusCanceled, true
	case "payment_intent.processing", "payment_intent.created", "payment_intent.requires_action":
		return StatusPending, true
	default:
		return "", false
	}
}

func mapPaymentIntentStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "succeeded":
		return StatusSucceeded
	case "canceled":
		return StatusCanceled
	default:
		return StatusPending
	}
}

func toMinorAmount(amount string, currency string) (int64, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("%w: amount is invalid", ErrConfigInvalid)
	}
	if parsed.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrConfigInvalid)
	}
	scale := currencyScale(currency)
	minor := parsed.Shift(int32(scale)).Round(0)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount precision is invalid", ErrConfigInvalid)
	}
	return minor.IntPart(), nil
}

func fromMinorAmount(minor int64, currency string) string {
	scale := currencyScale(currency)
	return decimal.NewFromInt(minor).Shift(int32(-scale)).StringFixed(int32(scale))
}

func currencyScale(currency string) int {
	upper := strings.ToUpper(strings.TrimSpace(currency))
	if _, ok := zeroDecimalCurrencies[upper]; ok {
		return 0
	}
	return 2
}

func doFormRequest(ctx context.Context, cfg *Config, method, path string, form url.Values, idempotencyKey string) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if key := strings.TrimSpace(idempotencyKey); key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := (&http.Client{Timeout: defaultTimeout}).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	return body, resp.StatusCode, nil
}

func decodeRawMap(body []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, nil
}

func readErrorMessage(body []byte) string {
	raw, err := decodeRawMap(body)
	if err != nil {
		return "unknown error"
	}
	message := readString(readMap(raw, "error"), "message")
	if message == "" {
		return "unknown error"
	}
	return message
}

func parseSignatureHeader(signatureHeader string) (int64, []string, error) {
	timestamp := int64(0)
	signatures := make([]string, 0)
	for _, part := range strings.Split(signatureHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		value := strings.TrimSpace(kv[1])
		switch strings.TrimSpace(kv[0]) {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil || parsed <= 0 {
				return 0, nil, fmt.Errorf("%w: invalid timestamp", ErrSignatureInvalid)
			}
			timestamp = parsed
		case "v1":
			if value != "" {
				signatures = append(signatures, strings.ToLower(value))
			}
		}
	}
	if timestamp <= 0 {
		return 0, nil, fmt.Errorf("%w: timestamp is missing", ErrSignatureInvalid)
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: v1 signature is missing", ErrSignatureInvalid)
	}
	return timestamp, signatures, nil
}

func getHeaderValue(headers map[string]string, key string) string {
	if len(headers) == 0 || strings.TrimSpace(key) == "" {
		return ""
	}
	for h, value := range headers {
		if strings.EqualFold(strings.TrimSpace(h), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func readString(raw map[string]interface{}, key string) string {
	if raw == nil || strings.TrimSpace(key) == "" {
		return ""
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		return ""
	}
}

func readMap(raw map[string]interface{}, key string) map[string]interface{} {
	if raw == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	mapped, ok := raw[key].(map[string]interface{})
	if !ok {
		return nil
	}
	return mapped
}

func readInt64(raw map[string]interface{}, key string) int64 {
	if raw == nil || strings.TrimSpace(key) == "" {
		return 0
	}
	switch typed := raw[key].(type) {
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

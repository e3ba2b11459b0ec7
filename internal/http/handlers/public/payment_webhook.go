package public

import (
	"io"
	"strings"

	"github.com/bakehouse-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes Stripe 事件体上限
const maxWebhookBodyBytes = 64 << 10

// StripeWebhook Stripe 支付意图回调
func (h *Handler) StripeWebhook(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Warnw("stripe_webhook_body_read_failed", "error", err)
		respondError(c, response.CodeBadRequest, "invalid webhook body", err)
		return
	}
	log.Infow("stripe_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"has_signature", strings.TrimSpace(c.GetHeader("Stripe-Signature")) != "",
	)

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}
	event, err := h.OrderService.HandleStripeWebhook(c.Request.Context(), headers, body)
	if err != nil {
		log.Warnw("stripe_webhook_handle_failed", "error", err)
		respondWithMappedError(c, err, webhookErrorRules, "webhook handling failed")
		return
	}
	log.Infow("stripe_webhook_handled",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"payment_intent_id", event.PaymentIntentID,
	)
	response.Success(c, gin.H{"received": true})
}

package shopify

import "strings"

// Webhook request headers set by Shopify.
const (
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
)

// WebhookTopic is a Shopify webhook topic such as "orders/create".
type WebhookTopic string

// Resource returns the part before the slash, e.g. "orders".
func (t WebhookTopic) Resource() string {
	r, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(string(t))), "/")
	return r
}

// AffectsReports reports whether the topic changes data that finance
// reports are computed from.
func (t WebhookTopic) AffectsReports() bool {
	switch t.Resource() {
	case "orders", "customers", "refunds":
		return true
	default:
		return false
	}
}

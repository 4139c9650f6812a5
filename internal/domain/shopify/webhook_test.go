package shopify

import "testing"

func TestWebhookTopic_AffectsReports(t *testing.T) {
	tests := map[WebhookTopic]bool{
		"orders/create":    true,
		"orders/paid":      true,
		"Customers/Update": true,
		"refunds/create":   true,
		"products/update":  false,
		"app/uninstalled":  false,
		"":                 false,
	}
	for topic, want := range tests {
		if got := topic.AffectsReports(); got != want {
			t.Fatalf("%q.AffectsReports() = %v, want %v", topic, got, want)
		}
	}
}

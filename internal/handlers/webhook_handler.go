package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	shopifydomain "github.com/niaga-platform/service-finance/internal/domain/shopify"
	"github.com/niaga-platform/service-finance/internal/events"
	"github.com/niaga-platform/service-finance/internal/services"
)

const maxWebhookBodyBytes = 1 << 20

// WebhookHandler handles incoming Shopify webhooks. Webhooks only invalidate
// cached reports; their payloads are not ingested.
type WebhookHandler struct {
	signature      *shopifydomain.Signature
	financeService *services.FinanceService
	publisher      *events.Publisher
	logger         *zap.Logger
}

// NewWebhookHandler creates a new webhook handler. publisher may be nil.
func NewWebhookHandler(
	signature *shopifydomain.Signature,
	financeService *services.FinanceService,
	publisher *events.Publisher,
	logger *zap.Logger,
) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		signature:      signature,
		financeService: financeService,
		publisher:      publisher,
		logger:         logger,
	}
}

// HandleShopifyWebhook verifies and processes a Shopify webhook
// POST /api/webhooks/shopify
func (h *WebhookHandler) HandleShopifyWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if !h.signature.VerifyWebhook(body, c.GetHeader(shopifydomain.HeaderHmac)) {
		h.logger.Warn("Rejected Shopify webhook with invalid signature",
			zap.String("shop", c.GetHeader(shopifydomain.HeaderShopDomain)),
			zap.String("client_ip", c.ClientIP()),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
		return
	}

	topic := shopifydomain.WebhookTopic(c.GetHeader(shopifydomain.HeaderTopic))
	shop := c.GetHeader(shopifydomain.HeaderShopDomain)

	h.logger.Info("Received Shopify webhook",
		zap.String("topic", string(topic)),
		zap.String("shop", shop),
		zap.String("webhook_id", c.GetHeader(shopifydomain.HeaderWebhookID)),
	)

	if !topic.AffectsReports() {
		c.JSON(http.StatusOK, gin.H{"received": true, "invalidated": false})
		return
	}

	if err := h.financeService.InvalidateCache(c.Request.Context()); err != nil {
		h.logger.Warn("Failed to invalidate report cache", zap.String("topic", string(topic)), zap.Error(err))
	}

	// Other replicas drop their cached reports through the store changed subject.
	if err := h.publisher.PublishStoreChanged(&events.StoreChangedEvent{Shop: shop, Topic: string(topic)}); err != nil {
		h.logger.Warn("Failed to publish store changed event", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "invalidated": true})
}

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/niaga-platform/service-finance/internal/handlers"
	"github.com/niaga-platform/service-finance/internal/middleware"
)

// RouteConfig holds configuration for routes
type RouteConfig struct {
	ServiceName    string
	FinanceHandler *handlers.FinanceHandler
	ShopHandler    *handlers.ShopHandler
	WebhookHandler *handlers.WebhookHandler
	// JWTSecret enables bearer verification on /api/shopify when set.
	JWTSecret   string
	RateLimiter *middleware.RateLimiter
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, cfg *RouteConfig) {
	router.GET("/health", handlers.HealthCheck(cfg.ServiceName))

	api := router.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}

	// Webhook routes (public, HMAC verified)
	webhooks := api.Group("/webhooks")
	{
		webhooks.POST("/shopify", cfg.WebhookHandler.HandleShopifyWebhook)
	}

	shopify := api.Group("/shopify")
	if cfg.JWTSecret != "" {
		shopify.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	}
	{
		shopify.POST("/validate", cfg.ShopHandler.ValidateConnection)
		shopify.GET("/shop", cfg.ShopHandler.GetShop)
		shopify.GET("/products", cfg.ShopHandler.GetProducts)
		shopify.GET("/finances", cfg.FinanceHandler.GetFinances)
		shopify.GET("/fetch-runs", cfg.FinanceHandler.GetFetchRuns)
	}
}

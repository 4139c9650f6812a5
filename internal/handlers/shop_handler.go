package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-finance/internal/services"
)

// ShopHandler handles store connection endpoints
type ShopHandler struct {
	financeService *services.FinanceService
	logger         *zap.Logger
}

// NewShopHandler creates a new shop handler
func NewShopHandler(financeService *services.FinanceService, logger *zap.Logger) *ShopHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShopHandler{
		financeService: financeService,
		logger:         logger,
	}
}

// ValidateRequest is the body of POST /api/shopify/validate
type ValidateRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

// ValidateConnection checks an access token against the store
// @Summary Validate Shopify connection
// @Tags Shopify
// @Accept json
// @Param request body ValidateRequest true "Access token"
// @Router /api/shopify/validate [post]
func (h *ShopHandler) ValidateConnection(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Access token is required"})
		return
	}

	if err := h.financeService.ValidateConnection(c.Request.Context(), req.AccessToken); err != nil {
		h.logger.Warn("Shopify token validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Shopify connection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetShop returns the store profile
// @Summary Get shop information
// @Tags Shopify
// @Param X-Shopify-Token header string true "Shopify Admin API access token"
// @Router /api/shopify/shop [get]
func (h *ShopHandler) GetShop(c *gin.Context) {
	shop, err := h.financeService.GetShop(c.Request.Context(), c.GetHeader(ShopifyTokenHeader))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch shop information")
		return
	}

	c.JSON(http.StatusOK, shop)
}

// GetProducts returns the store catalogue
// @Summary Get products
// @Tags Shopify
// @Param X-Shopify-Token header string true "Shopify Admin API access token"
// @Router /api/shopify/products [get]
func (h *ShopHandler) GetProducts(c *gin.Context) {
	products, err := h.financeService.GetProducts(c.Request.Context(), c.GetHeader(ShopifyTokenHeader))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch products")
		return
	}

	c.JSON(http.StatusOK, products)
}

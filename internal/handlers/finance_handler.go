package handlers

import (
	"errors"
	"net/http"
	"strconv"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-finance/internal/analytics"
	shopifydomain "github.com/niaga-platform/service-finance/internal/domain/shopify"
	"github.com/niaga-platform/service-finance/internal/services"
)

// ShopifyTokenHeader carries the merchant's Admin API access token.
const ShopifyTokenHeader = "X-Shopify-Token"

// FinanceHandler handles finance report endpoints
type FinanceHandler struct {
	financeService *services.FinanceService
	logger         *zap.Logger
}

// NewFinanceHandler creates a new finance handler
func NewFinanceHandler(financeService *services.FinanceService, logger *zap.Logger) *FinanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceHandler{
		financeService: financeService,
		logger:         logger,
	}
}

// GetFinances returns the finance report for the store
// @Summary Get finance report
// @Tags Finance
// @Param X-Shopify-Token header string true "Shopify Admin API access token"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Param refresh query bool false "Force refresh (bypass cache)"
// @Success 200 {object} services.FinanceResult
// @Router /api/shopify/finances [get]
func (h *FinanceHandler) GetFinances(c *gin.Context) {
	token := c.GetHeader(ShopifyTokenHeader)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No Shopify token provided"})
		return
	}

	result, err := h.financeService.GetFinances(c.Request.Context(), &services.FinanceRequest{
		AccessToken:  token,
		Start:        c.Query("start_date"),
		End:          c.Query("end_date"),
		ForceRefresh: c.Query("refresh") == "true",
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch financial data")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetFetchRuns lists the most recent upstream fetches
// @Summary List fetch runs
// @Tags Finance
// @Param limit query int false "Maximum entries (default 20)"
// @Router /api/shopify/fetch-runs [get]
func (h *FinanceHandler) GetFetchRuns(c *gin.Context) {
	if !h.financeService.FetchRunsEnabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Fetch run log is not configured"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	runs, err := h.financeService.RecentFetchRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list fetch runs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs, "count": len(runs)})
}

// respondError maps service errors onto HTTP responses. Server side failures
// are logged and reported to Sentry.
func respondError(c *gin.Context, logger *zap.Logger, err error, message string) {
	var (
		apiErr    *shopifydomain.APIError
		formatErr *analytics.DataFormatError
	)

	switch {
	case errors.Is(err, shopifydomain.ErrMissingToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No Shopify token provided"})
	case errors.Is(err, services.ErrUpstreamFetch):
		// Report fetches surface every upstream failure, rejected tokens included, as 502.
		logger.Error(message, zap.Error(err))
		captureError(c, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": message, "details": err.Error()})
	case errors.Is(err, shopifydomain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Shopify access token"})
	case errors.Is(err, analytics.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &formatErr):
		logger.Error(message, zap.String("record", string(formatErr.Record)), zap.String("id", formatErr.ID), zap.Error(err))
		captureError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	case errors.Is(err, shopifydomain.ErrInvalidResponse),
		errors.As(err, &apiErr):
		logger.Error(message, zap.Error(err))
		captureError(c, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": message, "details": err.Error()})
	default:
		logger.Error(message, zap.Error(err))
		captureError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func captureError(c *gin.Context, err error) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}

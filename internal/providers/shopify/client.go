package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	shopifydomain "github.com/niaga-platform/service-finance/internal/domain/shopify"
)

const (
	DefaultAPIVersion = "2024-01"

	// MaxPageSize is the largest page the REST Admin API returns.
	MaxPageSize = 250

	accessTokenHeader = "X-Shopify-Access-Token"
	maxResponseBytes  = 16 << 20
)

// Client is the Shopify Admin REST API client with retry and rate limiting.
// The access token is supplied per call; the client holds no credentials.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *zap.Logger
	retryPolicy *shopifydomain.RetryPolicy
	limiter     *rate.Limiter
}

// ClientConfig holds configuration for the Shopify client.
type ClientConfig struct {
	ShopDomain     string // e.g. my-store.myshopify.com
	APIVersion     string
	BaseURL        string // overrides ShopDomain/APIVersion, used by tests
	RequestTimeout time.Duration
	RetryPolicy    *shopifydomain.RetryPolicy
	RateLimit      shopifydomain.RateLimitConfig
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// NewClient creates a new Shopify Admin API client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		domain := NormalizeShopDomain(cfg.ShopDomain)
		if domain == "" {
			return nil, fmt.Errorf("shop domain is required")
		}
		version := cfg.APIVersion
		if version == "" {
			version = DefaultAPIVersion
		}
		baseURL = fmt.Sprintf("https://%s/admin/api/%s", domain, version)
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	retryPolicy := cfg.RetryPolicy
	if retryPolicy == nil {
		retryPolicy = shopifydomain.DefaultRetryPolicy()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		logger:      logger,
		retryPolicy: retryPolicy,
		limiter:     cfg.RateLimit.NewLimiter(),
	}, nil
}

// NormalizeShopDomain strips scheme, path and trailing slashes.
func NormalizeShopDomain(domain string) string {
	d := strings.TrimSpace(domain)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.Index(d, "/"); i >= 0 {
		d = d[:i]
	}
	return strings.ToLower(d)
}

// Request represents a generic API request.
type Request struct {
	Method string
	Path   string // relative to the versioned admin root, e.g. "orders.json"
	Query  url.Values
}

// Do performs a request with rate limiting and automatic retry.
func (c *Client) Do(ctx context.Context, accessToken string, req *Request, result interface{}) error {
	if accessToken == "" {
		return shopifydomain.ErrMissingToken
	}

	executor := shopifydomain.NewExecutor(c.retryPolicy)
	retryResult := executor.Execute(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.doRequest(ctx, accessToken, req, result)
	})

	if retryResult.LastError != nil {
		c.logger.Error("Shopify API request failed",
			zap.String("path", req.Path),
			zap.Int("attempts", retryResult.Attempts),
			zap.Duration("duration", retryResult.Duration),
			zap.Error(retryResult.LastError),
		)
		return retryResult.LastError
	}

	return nil
}

// doRequest performs a single HTTP request without retry.
func (c *Client) doRequest(ctx context.Context, accessToken string, req *Request, result interface{}) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(accessTokenHeader, accessToken)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Shopify API request completed",
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(startTime)),
		zap.String("call_limit", resp.Header.Get("X-Shopify-Shop-Api-Call-Limit")),
	)

	if resp.StatusCode >= 400 {
		apiErr := shopifydomain.NewAPIError(resp.StatusCode, req.Path, errorMessage(respBody, resp.Status))
		apiErr.RequestID = resp.Header.Get("X-Request-Id")
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))

		c.logger.Warn("Shopify API error",
			zap.String("path", req.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("category", string(apiErr.Category())),
			zap.String("message", apiErr.Message),
			zap.String("request_id", apiErr.RequestID),
		)
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", shopifydomain.ErrInvalidResponse, err)
		}
	}

	return nil
}

// errorMessage extracts the "errors" member, which Shopify sends either as a
// string or as an object keyed by field.
func errorMessage(body []byte, fallback string) string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		if len(body) > 0 {
			return truncateString(string(body), 200)
		}
		return fallback
	}

	var msg string
	if err := json.Unmarshal(envelope.Errors, &msg); err == nil {
		return msg
	}
	return truncateString(string(envelope.Errors), 200)
}

// parseRetryAfter reads Shopify's Retry-After header, given in (possibly
// fractional) seconds.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// truncateString truncates a string to the specified length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

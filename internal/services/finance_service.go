package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/niaga-platform/service-finance/internal/analytics"
	shopifydomain "github.com/niaga-platform/service-finance/internal/domain/shopify"
	"github.com/niaga-platform/service-finance/internal/events"
	"github.com/niaga-platform/service-finance/internal/models"
	"github.com/niaga-platform/service-finance/internal/providers/shopify"
)

// ErrUpstreamFetch wraps failures talking to the Shopify Admin API.
var ErrUpstreamFetch = errors.New("upstream fetch failed")

// allTimeKey replaces the start date in cache keys for reports computed over
// every fetched order.
const allTimeKey = "all"

// ShopifyAPI is the subset of the Shopify client used by the finance service.
type ShopifyAPI interface {
	GetOrders(ctx context.Context, accessToken string, limit int) ([]shopify.Order, error)
	GetCustomers(ctx context.Context, accessToken string, limit int) ([]shopify.Customer, error)
	GetShop(ctx context.Context, accessToken string) (*shopify.Shop, error)
	GetProducts(ctx context.Context, accessToken string, limit int) ([]shopify.Product, error)
	ValidateToken(ctx context.Context, accessToken string) error
}

// FetchRunStore persists the fetch-run audit log.
type FetchRunStore interface {
	Create(ctx context.Context, run *models.FetchRun) error
	ListRecent(ctx context.Context, shop string, limit int) ([]models.FetchRun, error)
}

// EventPublisher publishes finance events.
type EventPublisher interface {
	PublishReportComputed(event *events.ReportComputedEvent) error
	PublishFetchFailed(event *events.FetchFailedEvent) error
}

// FinanceService fetches store data, computes finance reports and caches them.
type FinanceService struct {
	shopify    ShopifyAPI
	aggregator *analytics.Aggregator
	cache      *ReportCacheService
	runs       FetchRunStore
	publisher  EventPublisher
	logger     *zap.Logger
	clock      func() time.Time

	shop            string
	maxOrders       int
	maxCustomers    int
	maxProducts     int
	upstreamTimeout time.Duration
}

// FinanceServiceConfig holds configuration
type FinanceServiceConfig struct {
	Shop            string
	MaxOrders       int
	MaxCustomers    int
	MaxProducts     int
	UpstreamTimeout time.Duration
	// Clock overrides time.Now, used by tests.
	Clock func() time.Time
}

// NewFinanceService creates a new FinanceService. cache, runs and publisher
// are optional.
func NewFinanceService(
	shopifyAPI ShopifyAPI,
	aggregator *analytics.Aggregator,
	cache *ReportCacheService,
	runs FetchRunStore,
	publisher EventPublisher,
	cfg *FinanceServiceConfig,
	logger *zap.Logger,
) *FinanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if aggregator == nil {
		aggregator = analytics.NewAggregator(time.UTC)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &FinanceService{
		shopify:         shopifyAPI,
		aggregator:      aggregator,
		cache:           cache,
		runs:            runs,
		publisher:       publisher,
		logger:          logger,
		clock:           clock,
		shop:            cfg.Shop,
		maxOrders:       cfg.MaxOrders,
		maxCustomers:    cfg.MaxCustomers,
		maxProducts:     cfg.MaxProducts,
		upstreamTimeout: timeout,
	}
}

// FinanceRequest describes one finance report request.
type FinanceRequest struct {
	AccessToken  string
	Start        string // YYYY-MM-DD, optional
	End          string // YYYY-MM-DD, optional
	ForceRefresh bool
}

// DateRangeLabel is the inclusive date range echoed back to clients.
type DateRangeLabel struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FinanceResult is the finance endpoint payload: the report fields plus
// request metadata.
type FinanceResult struct {
	*analytics.Report
	DateRange DateRangeLabel `json:"dateRange"`
	FromCache bool           `json:"fromCache"`
}

// GetFinances returns the finance report for the requested range. Without an
// explicit range the report covers every fetched order and the daily series
// covers the default look-back window.
func (s *FinanceService) GetFinances(ctx context.Context, req *FinanceRequest) (*FinanceResult, error) {
	if req.AccessToken == "" {
		return nil, shopifydomain.ErrMissingToken
	}

	now := s.clock()
	explicit := strings.TrimSpace(req.Start) != "" || strings.TrimSpace(req.End) != ""

	r, err := s.aggregator.ParseDateRange(req.Start, req.End, now)
	if err != nil {
		return nil, err
	}

	label := DateRangeLabel{Start: r.StartLabel(), End: r.EndLabel()}
	startKey := label.Start
	if !explicit {
		startKey = allTimeKey
	}
	zone := s.aggregator.Location().String()
	cacheKey := ReportKey{
		Shop:        s.shop,
		AccessToken: req.AccessToken,
		StartDate:   startKey,
		EndDate:     label.End,
		Zone:        zone,
	}

	if !req.ForceRefresh {
		if cached := s.cache.Get(ctx, cacheKey); cached != nil {
			return &FinanceResult{Report: cached.Report, DateRange: label, FromCache: true}, nil
		}
	}

	fetchStart := time.Now()
	orders, customers, err := s.fetch(ctx, req.AccessToken)
	run := s.recordRun(ctx, &fetchRunInput{
		label:        label,
		zone:         zone,
		orders:       len(orders),
		customers:    len(customers),
		duration:     time.Since(fetchStart),
		forceRefresh: req.ForceRefresh,
		err:          err,
	})
	if err != nil {
		s.publishFetchFailed(err)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}

	inOrders := toAnalyticsOrders(orders)
	inCustomers := toAnalyticsCustomers(customers)

	var report *analytics.Report
	if explicit {
		report, err = s.aggregator.ComputeRangeReport(inOrders, inCustomers, now, r)
	} else {
		report, err = s.computeAllTime(inOrders, inCustomers, now, r)
	}
	if err != nil {
		s.logger.Error("Failed to compute finance report",
			zap.String("shop", s.shop),
			zap.String("start_date", label.Start),
			zap.String("end_date", label.End),
			zap.Error(err),
		)
		return nil, err
	}

	s.cache.Set(ctx, cacheKey, report)
	s.publishReportComputed(report, label, run)

	s.logger.Info("Computed finance report",
		zap.String("shop", s.shop),
		zap.Int("orders", report.TotalOrders),
		zap.String("total_revenue", report.TotalRevenue.String()),
		zap.Bool("ranged", explicit),
	)

	return &FinanceResult{Report: report, DateRange: label}, nil
}

func (s *FinanceService) computeAllTime(orders []analytics.Order, customers []analytics.Customer, now time.Time, r analytics.DateRange) (*analytics.Report, error) {
	report, err := s.aggregator.ComputeReport(orders, customers, now)
	if err != nil {
		return nil, err
	}
	history, err := s.aggregator.DailySeries(orders, customers, r)
	if err != nil {
		return nil, err
	}
	report.HistoricalData = history
	return report, nil
}

// fetch loads orders and customers concurrently. The first failure cancels
// the other request.
func (s *FinanceService) fetch(ctx context.Context, accessToken string) ([]shopify.Order, []shopify.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()

	var (
		orders    []shopify.Order
		customers []shopify.Customer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o, err := s.shopify.GetOrders(gctx, accessToken, s.maxOrders)
		if err != nil {
			return fmt.Errorf("fetch orders: %w", err)
		}
		orders = o
		return nil
	})
	g.Go(func() error {
		c, err := s.shopify.GetCustomers(gctx, accessToken, s.maxCustomers)
		if err != nil {
			return fmt.Errorf("fetch customers: %w", err)
		}
		customers = c
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return orders, customers, nil
}

type fetchRunInput struct {
	label        DateRangeLabel
	zone         string
	orders       int
	customers    int
	duration     time.Duration
	forceRefresh bool
	err          error
}

// recordRun stores the fetch-run entry. Failures are logged and swallowed.
func (s *FinanceService) recordRun(ctx context.Context, in *fetchRunInput) *models.FetchRun {
	if s.runs == nil {
		return nil
	}

	params, _ := json.Marshal(models.FetchRunParams{
		StartDate:    in.label.Start,
		EndDate:      in.label.End,
		Timezone:     in.zone,
		OrderLimit:   s.maxOrders,
		ForceRefresh: in.forceRefresh,
	})

	run := &models.FetchRun{
		Shop:             s.shop,
		Status:           models.FetchRunSucceeded,
		OrdersFetched:    in.orders,
		CustomersFetched: in.customers,
		DurationMs:       in.duration.Milliseconds(),
		Params:           datatypes.JSON(params),
	}
	if in.err != nil {
		run.Status = models.FetchRunFailed
		run.ErrorMessage = in.err.Error()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Warn("Failed to record fetch run", zap.String("shop", s.shop), zap.Error(err))
		return nil
	}
	return run
}

func (s *FinanceService) publishReportComputed(report *analytics.Report, label DateRangeLabel, run *models.FetchRun) {
	if s.publisher == nil {
		return
	}
	event := &events.ReportComputedEvent{
		Shop:         s.shop,
		StartDate:    label.Start,
		EndDate:      label.End,
		Timezone:     report.Timezone,
		TotalOrders:  report.TotalOrders,
		TotalRevenue: report.TotalRevenue.String(),
	}
	if run != nil {
		event.FetchRunID = run.ID.String()
	}
	if err := s.publisher.PublishReportComputed(event); err != nil {
		s.logger.Warn("Failed to publish report computed event", zap.Error(err))
	}
}

func (s *FinanceService) publishFetchFailed(fetchErr error) {
	s.logger.Error("Failed to fetch store data", zap.String("shop", s.shop), zap.Error(fetchErr))
	if s.publisher == nil {
		return
	}
	event := &events.FetchFailedEvent{
		Shop:  s.shop,
		Error: fetchErr.Error(),
	}
	var apiErr *shopifydomain.APIError
	if errors.As(fetchErr, &apiErr) {
		event.Resource = apiErr.Path
		event.StatusCode = apiErr.StatusCode
	}
	if err := s.publisher.PublishFetchFailed(event); err != nil {
		s.logger.Warn("Failed to publish fetch failed event", zap.Error(err))
	}
}

// ValidateConnection checks that the access token can read the shop.
func (s *FinanceService) ValidateConnection(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return shopifydomain.ErrMissingToken
	}
	return s.shopify.ValidateToken(ctx, accessToken)
}

// GetShop returns the store profile.
func (s *FinanceService) GetShop(ctx context.Context, accessToken string) (*shopify.Shop, error) {
	if accessToken == "" {
		return nil, shopifydomain.ErrMissingToken
	}
	return s.shopify.GetShop(ctx, accessToken)
}

// GetProducts returns the store catalogue, up to the configured limit.
func (s *FinanceService) GetProducts(ctx context.Context, accessToken string) ([]shopify.Product, error) {
	if accessToken == "" {
		return nil, shopifydomain.ErrMissingToken
	}
	return s.shopify.GetProducts(ctx, accessToken, s.maxProducts)
}

// InvalidateCache drops every cached report for the configured shop.
func (s *FinanceService) InvalidateCache(ctx context.Context) error {
	n, err := s.cache.Invalidate(ctx, s.shop)
	if err != nil {
		return err
	}
	s.logger.Info("Invalidated finance report cache", zap.String("shop", s.shop), zap.Int("keys_removed", n))
	return nil
}

// FetchRunsEnabled reports whether the fetch-run log is configured.
func (s *FinanceService) FetchRunsEnabled() bool {
	return s.runs != nil
}

// RecentFetchRuns lists the newest fetch runs for the configured shop.
func (s *FinanceService) RecentFetchRuns(ctx context.Context, limit int) ([]models.FetchRun, error) {
	if s.runs == nil {
		return []models.FetchRun{}, nil
	}
	return s.runs.ListRecent(ctx, s.shop, limit)
}

// HandleStoreChanged invalidates cached reports when the storefront reports
// changed orders or customers.
func (s *FinanceService) HandleStoreChanged(ctx context.Context, event *events.StoreChangedEvent) error {
	if event.Shop != "" && !strings.EqualFold(event.Shop, s.shop) {
		s.logger.Debug("Ignoring store changed event for another shop", zap.String("shop", event.Shop))
		return nil
	}
	return s.InvalidateCache(ctx)
}

func toAnalyticsOrders(in []shopify.Order) []analytics.Order {
	out := make([]analytics.Order, len(in))
	for i, o := range in {
		out[i] = analytics.Order{
			ID:                strconv.FormatInt(o.ID, 10),
			OrderNumber:       o.OrderNumber,
			TotalPrice:        o.TotalPrice,
			CreatedAt:         o.CreatedAt,
			FinancialStatus:   o.FinancialStatus,
			FulfillmentStatus: o.FulfillmentStatus,
		}
	}
	return out
}

func toAnalyticsCustomers(in []shopify.Customer) []analytics.Customer {
	out := make([]analytics.Customer, len(in))
	for i, c := range in {
		out[i] = analytics.Customer{
			ID:        strconv.FormatInt(c.ID, 10),
			CreatedAt: c.CreatedAt,
		}
	}
	return out
}

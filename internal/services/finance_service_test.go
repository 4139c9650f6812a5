package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/niaga-platform/service-finance/internal/analytics"
	shopifydomain "github.com/niaga-platform/service-finance/internal/domain/shopify"
	"github.com/niaga-platform/service-finance/internal/events"
	"github.com/niaga-platform/service-finance/internal/models"
	"github.com/niaga-platform/service-finance/internal/providers/shopify"
)

const testShop = "my-store.myshopify.com"

var testNow = time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)

type fakeShopify struct {
	orders       []shopify.Order
	customers    []shopify.Customer
	ordersErr    error
	validToken   string
	orderCalls   int32
	customerCall int32
}

func (f *fakeShopify) GetOrders(ctx context.Context, accessToken string, limit int) ([]shopify.Order, error) {
	atomic.AddInt32(&f.orderCalls, 1)
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	if f.validToken != "" && accessToken != f.validToken {
		return nil, shopifydomain.NewAPIError(401, "orders.json", "Invalid API key or access token")
	}
	return f.orders, nil
}

func (f *fakeShopify) GetCustomers(ctx context.Context, accessToken string, limit int) ([]shopify.Customer, error) {
	atomic.AddInt32(&f.customerCall, 1)
	return f.customers, nil
}

func (f *fakeShopify) GetShop(ctx context.Context, accessToken string) (*shopify.Shop, error) {
	return &shopify.Shop{Name: "My Store", MyshopifyDomain: testShop}, nil
}

func (f *fakeShopify) GetProducts(ctx context.Context, accessToken string, limit int) ([]shopify.Product, error) {
	return []shopify.Product{{ID: 1, Title: "Batik Shirt"}}, nil
}

func (f *fakeShopify) ValidateToken(ctx context.Context, accessToken string) error {
	return nil
}

type fakeRunStore struct {
	mu   sync.Mutex
	runs []models.FetchRun
}

func (f *fakeRunStore) Create(ctx context.Context, run *models.FetchRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRunStore) ListRecent(ctx context.Context, shop string, limit int) ([]models.FetchRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FetchRun(nil), f.runs...), nil
}

type fakePublisher struct {
	computed []*events.ReportComputedEvent
	failed   []*events.FetchFailedEvent
}

func (f *fakePublisher) PublishReportComputed(event *events.ReportComputedEvent) error {
	f.computed = append(f.computed, event)
	return nil
}

func (f *fakePublisher) PublishFetchFailed(event *events.FetchFailedEvent) error {
	f.failed = append(f.failed, event)
	return nil
}

func strPtr(s string) *string { return &s }

func sampleShopify() *fakeShopify {
	return &fakeShopify{
		orders: []shopify.Order{
			{ID: 1001, OrderNumber: 1, TotalPrice: "100.00", CreatedAt: "2024-02-10T10:00:00Z", FinancialStatus: "paid"},
			{ID: 1002, OrderNumber: 2, TotalPrice: "50.00", CreatedAt: "2023-12-01T10:00:00Z", FinancialStatus: "paid", FulfillmentStatus: strPtr("fulfilled")},
		},
		customers: []shopify.Customer{
			{ID: 7, CreatedAt: "2024-02-12T00:00:00Z"},
		},
	}
}

type testDeps struct {
	shopify   *fakeShopify
	runs      *fakeRunStore
	publisher *fakePublisher
	cache     *ReportCacheService
	redis     *miniredis.Miniredis
}

func newTestService(t *testing.T, api *fakeShopify) (*FinanceService, *testDeps) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	deps := &testDeps{
		shopify:   api,
		runs:      &fakeRunStore{},
		publisher: &fakePublisher{},
		cache:     NewReportCacheService(client, time.Minute, nil),
		redis:     mr,
	}
	svc := NewFinanceService(api, analytics.NewAggregator(time.UTC), deps.cache, deps.runs, deps.publisher, &FinanceServiceConfig{
		Shop:         testShop,
		MaxOrders:    250,
		MaxCustomers: 250,
		MaxProducts:  50,
		Clock:        func() time.Time { return testNow },
	}, nil)
	return svc, deps
}

func TestGetFinances_AllTime(t *testing.T) {
	svc, deps := newTestService(t, sampleShopify())

	res, err := svc.GetFinances(context.Background(), &FinanceRequest{AccessToken: "shpat_test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FromCache {
		t.Fatalf("first call must not be served from cache")
	}
	if res.TotalOrders != 2 || res.TotalRevenue.String() != "150" {
		t.Fatalf("expected 2 orders / 150 revenue, got %d / %s", res.TotalOrders, res.TotalRevenue)
	}
	if res.NewCustomersThisWeek != 1 || res.OpenOrdersCount != 1 {
		t.Fatalf("unexpected customers/open orders: %d / %d", res.NewCustomersThisWeek, res.OpenOrdersCount)
	}
	if res.DateRange.Start != "2024-01-16" || res.DateRange.End != "2024-02-15" {
		t.Fatalf("unexpected date range: %+v", res.DateRange)
	}
	if res.HistoricalData == nil || len(res.HistoricalData.Dates) != 31 {
		t.Fatalf("expected a 31 day series, got %+v", res.HistoricalData)
	}

	if len(deps.runs.runs) != 1 || deps.runs.runs[0].Status != models.FetchRunSucceeded || deps.runs.runs[0].OrdersFetched != 2 {
		t.Fatalf("unexpected fetch runs: %+v", deps.runs.runs)
	}
	if len(deps.publisher.computed) != 1 || deps.publisher.computed[0].TotalRevenue != "150" {
		t.Fatalf("expected one report computed event, got %+v", deps.publisher.computed)
	}
	if deps.publisher.computed[0].FetchRunID == "" {
		t.Fatalf("expected event to reference the fetch run")
	}
}

func TestGetFinances_ExplicitRange(t *testing.T) {
	svc, _ := newTestService(t, sampleShopify())

	res, err := svc.GetFinances(context.Background(), &FinanceRequest{
		AccessToken: "shpat_test",
		Start:       "2024-02-01",
		End:         "2024-02-15",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalOrders != 1 || res.TotalRevenue.String() != "100" {
		t.Fatalf("expected only the February order, got %d / %s", res.TotalOrders, res.TotalRevenue)
	}
	if len(res.HistoricalData.Dates) != 15 {
		t.Fatalf("expected 15 days, got %d", len(res.HistoricalData.Dates))
	}
}

func TestGetFinances_ServedFromCache(t *testing.T) {
	api := sampleShopify()
	svc, deps := newTestService(t, api)
	ctx := context.Background()

	if _, err := svc.GetFinances(ctx, &FinanceRequest{AccessToken: "shpat_test"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deps.redis.Exists("finance:report:" + testShop + ":" + tokenDigest("shpat_test") + ":all:2024-02-15:UTC") {
		t.Fatalf("expected report to be cached, keys: %v", deps.redis.Keys())
	}

	res, err := svc.GetFinances(ctx, &FinanceRequest{AccessToken: "shpat_test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.FromCache || res.TotalOrders != 2 || res.TotalRevenue.String() != "150" {
		t.Fatalf("expected cached report, got fromCache=%v orders=%d", res.FromCache, res.TotalOrders)
	}
	if atomic.LoadInt32(&api.orderCalls) != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", api.orderCalls)
	}

	res, err = svc.GetFinances(ctx, &FinanceRequest{AccessToken: "shpat_test", ForceRefresh: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FromCache || atomic.LoadInt32(&api.orderCalls) != 2 {
		t.Fatalf("refresh must bypass the cache")
	}
}

func TestGetFinances_CacheScopedToAccessToken(t *testing.T) {
	api := sampleShopify()
	api.validToken = "shpat_valid"
	svc, deps := newTestService(t, api)
	ctx := context.Background()

	if _, err := svc.GetFinances(ctx, &FinanceRequest{AccessToken: "shpat_valid"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := svc.GetFinances(ctx, &FinanceRequest{AccessToken: "garbage"})
	if err == nil {
		t.Fatalf("expected upstream rejection for another token, got report fromCache=%v", res.FromCache)
	}
	if !errors.Is(err, shopifydomain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized upstream error, got %v", err)
	}
	if atomic.LoadInt32(&api.orderCalls) != 2 {
		t.Fatalf("expected the second token to reach upstream, got %d calls", api.orderCalls)
	}

	res, err = svc.GetFinances(ctx, &FinanceRequest{AccessToken: "shpat_valid"})
	if err != nil || !res.FromCache {
		t.Fatalf("expected cached report for the original token, got %v / %v", res, err)
	}
	for _, key := range deps.redis.Keys() {
		if strings.Contains(key, "shpat_valid") {
			t.Fatalf("raw access token leaked into cache key %q", key)
		}
	}
}

func TestGetFinances_UpstreamUnauthorized(t *testing.T) {
	api := sampleShopify()
	api.ordersErr = shopifydomain.NewAPIError(401, "orders.json", "Invalid API key or access token")
	svc, deps := newTestService(t, api)

	_, err := svc.GetFinances(context.Background(), &FinanceRequest{AccessToken: "bad"})
	if !errors.Is(err, shopifydomain.ErrUnauthorized) || !errors.Is(err, ErrUpstreamFetch) {
		t.Fatalf("expected unauthorized upstream error, got %v", err)
	}
	if len(deps.runs.runs) != 1 || deps.runs.runs[0].Status != models.FetchRunFailed {
		t.Fatalf("expected a failed fetch run, got %+v", deps.runs.runs)
	}
	if len(deps.publisher.failed) != 1 || deps.publisher.failed[0].StatusCode != 401 {
		t.Fatalf("expected fetch failed event, got %+v", deps.publisher.failed)
	}
	if len(deps.publisher.computed) != 0 {
		t.Fatalf("no report event expected on failure")
	}
}

func TestGetFinances_InvalidRange(t *testing.T) {
	api := sampleShopify()
	svc, _ := newTestService(t, api)

	_, err := svc.GetFinances(context.Background(), &FinanceRequest{
		AccessToken: "shpat_test",
		Start:       "2024-03-01",
		End:         "2024-02-01",
	})
	if !errors.Is(err, analytics.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if atomic.LoadInt32(&api.orderCalls) != 0 {
		t.Fatalf("no upstream call expected for an invalid range")
	}
}

func TestGetFinances_MissingToken(t *testing.T) {
	svc, _ := newTestService(t, sampleShopify())

	if _, err := svc.GetFinances(context.Background(), &FinanceRequest{}); !errors.Is(err, shopifydomain.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestGetFinances_DataFormatError(t *testing.T) {
	api := sampleShopify()
	api.orders[0].TotalPrice = "abc"
	svc, deps := newTestService(t, api)

	_, err := svc.GetFinances(context.Background(), &FinanceRequest{AccessToken: "shpat_test"})
	if !errors.Is(err, analytics.ErrDataFormat) {
		t.Fatalf("expected ErrDataFormat, got %v", err)
	}
	if len(deps.redis.Keys()) != 0 {
		t.Fatalf("nothing must be cached on failure, got %v", deps.redis.Keys())
	}
}

func TestHandleStoreChanged_InvalidatesCache(t *testing.T) {
	svc, deps := newTestService(t, sampleShopify())
	ctx := context.Background()

	if _, err := svc.GetFinances(ctx, &FinanceRequest{AccessToken: "shpat_test"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps.redis.Keys()) != 1 {
		t.Fatalf("expected one cached report, got %v", deps.redis.Keys())
	}

	if err := svc.HandleStoreChanged(ctx, &events.StoreChangedEvent{Shop: "other.myshopify.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps.redis.Keys()) != 1 {
		t.Fatalf("events for another shop must not invalidate")
	}

	if err := svc.HandleStoreChanged(ctx, &events.StoreChangedEvent{Shop: testShop, Topic: "orders/create"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps.redis.Keys()) != 0 {
		t.Fatalf("expected cache to be empty, got %v", deps.redis.Keys())
	}
}

func TestRecentFetchRuns_Disabled(t *testing.T) {
	svc := NewFinanceService(sampleShopify(), nil, nil, nil, nil, &FinanceServiceConfig{Shop: testShop}, nil)

	runs, err := svc.RecentFetchRuns(context.Background(), 10)
	if err != nil || runs == nil || len(runs) != 0 {
		t.Fatalf("expected empty list, got %v / %v", runs, err)
	}
	if svc.FetchRunsEnabled() {
		t.Fatalf("fetch runs must be disabled without a store")
	}
}

func TestGetFinances_NoCacheConfigured(t *testing.T) {
	api := sampleShopify()
	svc := NewFinanceService(api, nil, nil, nil, nil, &FinanceServiceConfig{
		Shop:  testShop,
		Clock: func() time.Time { return testNow },
	}, nil)

	for i := 0; i < 2; i++ {
		res, err := svc.GetFinances(context.Background(), &FinanceRequest{AccessToken: "shpat_test"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.FromCache {
			t.Fatalf("no cache is configured")
		}
	}
	if atomic.LoadInt32(&api.orderCalls) != 2 {
		t.Fatalf("expected two upstream fetches, got %d", api.orderCalls)
	}
	if err := svc.InvalidateCache(context.Background()); err != nil {
		t.Fatalf("invalidate without cache must be a no-op, got %v", err)
	}
}

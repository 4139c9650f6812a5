package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-finance/internal/analytics"
	"github.com/niaga-platform/service-finance/internal/config"
	"github.com/niaga-platform/service-finance/internal/database"
	shopifydomain "github.com/niaga-platform/service-finance/internal/domain/shopify"
	"github.com/niaga-platform/service-finance/internal/events"
	"github.com/niaga-platform/service-finance/internal/handlers"
	applogger "github.com/niaga-platform/service-finance/internal/logger"
	"github.com/niaga-platform/service-finance/internal/middleware"
	"github.com/niaga-platform/service-finance/internal/monitoring"
	"github.com/niaga-platform/service-finance/internal/providers/shopify"
	"github.com/niaga-platform/service-finance/internal/repository"
	"github.com/niaga-platform/service-finance/internal/routes"
	"github.com/niaga-platform/service-finance/internal/services"
)

func main() {
	// Load .env file in development
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := applogger.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Sentry for error tracking
	sentryMonitor, err := monitoring.NewSentryMonitor(&monitoring.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		ServiceName:      cfg.App.Name,
		TracesSampleRate: 0.1,
	}, logger)
	if err != nil {
		logger.Warn("Failed to initialize Sentry", zap.Error(err))
	}
	defer sentryMonitor.Flush(2 * time.Second)

	loc, err := cfg.Report.Location()
	if err != nil {
		logger.Fatal("Invalid report timezone", zap.Error(err))
	}

	// Connect to database (optional - fetch-run log only)
	var fetchRuns services.FetchRunStore
	if cfg.Database.Enabled() {
		db, err := database.Connect(cfg.Database, logger)
		if err != nil {
			logger.Warn("Failed to connect to database, fetch-run log disabled", zap.Error(err))
		} else {
			defer database.Close(db)
			fetchRuns = repository.NewFetchRunRepository(db)
		}
	}

	// Connect to Redis (optional - report cache)
	var redisClient *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Failed to connect to Redis, report cache disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			logger.Info("Connected to Redis", zap.String("addr", addr))
			defer redisClient.Close()
		}
		cancel()
	}
	reportCache := services.NewReportCacheService(redisClient, cfg.Report.CacheTTL, logger)

	// Connect to NATS (optional)
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = nats.Connect(cfg.NATS.URL, nats.Name(cfg.App.Name))
		if err != nil {
			logger.Warn("Failed to connect to NATS, events disabled", zap.Error(err))
			natsConn = nil
		} else {
			logger.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
			defer natsConn.Drain()
		}
	}
	eventPublisher := events.NewPublisher(natsConn, logger)

	// Initialize Shopify client
	shopifyClient, err := shopify.NewClient(&shopify.ClientConfig{
		ShopDomain:     cfg.Shopify.ShopDomain,
		APIVersion:     cfg.Shopify.APIVersion,
		RequestTimeout: cfg.Shopify.RequestTimeout,
		RetryPolicy:    shopifydomain.DefaultRetryPolicy().WithMaxAttempts(cfg.Shopify.RetryAttempts),
		RateLimit: shopifydomain.RateLimitConfig{
			RPS:   cfg.Shopify.RateRPS,
			Burst: cfg.Shopify.RateBurst,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Failed to initialize Shopify client", zap.Error(err))
	}

	// Initialize finance service
	financeService := services.NewFinanceService(
		shopifyClient,
		analytics.NewAggregator(loc),
		reportCache,
		fetchRuns,
		eventPublisher,
		&services.FinanceServiceConfig{
			Shop:            shopify.NormalizeShopDomain(cfg.Shopify.ShopDomain),
			MaxOrders:       cfg.Shopify.MaxOrders,
			MaxCustomers:    cfg.Shopify.MaxCustomers,
			MaxProducts:     cfg.Shopify.MaxProducts,
			UpstreamTimeout: cfg.Report.UpstreamTimeout,
		},
		logger,
	)

	// Start NATS subscriber if connected
	var eventSubscriber *events.Subscriber
	if natsConn != nil {
		eventSubscriber = events.NewSubscriber(natsConn, financeService, logger)
		if err := eventSubscriber.Start(); err != nil {
			logger.Warn("Failed to start event subscriber", zap.Error(err))
		}
	}

	// Initialize handlers
	financeHandler := handlers.NewFinanceHandler(financeService, logger)
	shopHandler := handlers.NewShopHandler(financeService, logger)
	if cfg.Shopify.WebhookSecret == "" {
		logger.Warn("SHOPIFY_WEBHOOK_SECRET not set, all webhooks will be rejected")
	}
	webhookHandler := handlers.NewWebhookHandler(
		shopifydomain.NewSignature(cfg.Shopify.WebhookSecret),
		financeService,
		eventPublisher,
		logger,
	)

	// Set Gin mode
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(sentryMonitor.RecoveryMiddleware())
	router.Use(sentryMonitor.GinMiddleware())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORSWithOrigins(cfg.CORS.Origins()))
	router.Use(middleware.SecurityHeaders())

	// Rate limiting
	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	defer stopLimiter()
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	rateLimiter.CleanupLimiters(limiterCtx, time.Minute, 10*time.Minute)

	if cfg.JWT.Secret == "" {
		logger.Warn("JWT_SECRET not set, /api/shopify routes are not authenticated")
	}

	// Setup routes using the routes package
	routes.SetupRoutes(router, &routes.RouteConfig{
		ServiceName:    cfg.App.Name,
		FinanceHandler: financeHandler,
		ShopHandler:    shopHandler,
		WebhookHandler: webhookHandler,
		JWTSecret:      cfg.JWT.Secret,
		RateLimiter:    rateLimiter,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Report.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Finance service starting",
			zap.String("port", cfg.App.Port),
			zap.String("shop", cfg.Shopify.ShopDomain),
			zap.String("timezone", loc.String()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	if eventSubscriber != nil {
		eventSubscriber.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SentryConfig holds Sentry settings
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	ServiceName      string
	TracesSampleRate float64
}

// SentryMonitor wraps the Sentry SDK. A monitor without a DSN is disabled and
// its methods are no-ops.
type SentryMonitor struct {
	enabled bool
	logger  *zap.Logger
}

// NewSentryMonitor initialises Sentry when a DSN is configured.
func NewSentryMonitor(cfg *SentryConfig, logger *zap.Logger) (*SentryMonitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SentryMonitor{logger: logger}
	if cfg == nil || cfg.DSN == "" {
		logger.Info("Sentry DSN not configured, error tracking disabled")
		return m, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       cfg.ServiceName,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return m, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", cfg.ServiceName)
	})

	m.enabled = true
	logger.Info("Sentry initialized", zap.String("environment", cfg.Environment))
	return m, nil
}

// Enabled reports whether events are sent to Sentry.
func (m *SentryMonitor) Enabled() bool {
	return m != nil && m.enabled
}

// GinMiddleware attaches a per-request hub and re-panics so gin's recovery
// can answer the request.
func (m *SentryMonitor) GinMiddleware() gin.HandlerFunc {
	if !m.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// RecoveryMiddleware recovers panics, logs them and answers 500.
func (m *SentryMonitor) RecoveryMiddleware() gin.HandlerFunc {
	logger := zap.NewNop()
	if m != nil {
		logger = m.logger
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Recovered from panic",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(500, gin.H{"error": "Internal server error"})
	})
}

// Flush waits for buffered events to be delivered.
func (m *SentryMonitor) Flush(timeout time.Duration) {
	if m.Enabled() {
		sentry.Flush(timeout)
	}
}

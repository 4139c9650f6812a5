package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event subjects
const (
	SubjectReportComputed = "finance.report.computed"
	SubjectFetchFailed    = "finance.fetch.failed"

	// Published by the storefront integration whenever orders or customers change
	SubjectStoreChanged = "shopify.store.changed"
)

// ReportComputedEvent is published after a metrics report was built from fresh upstream data
type ReportComputedEvent struct {
	Shop         string    `json:"shop"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Timezone     string    `json:"timezone"`
	TotalOrders  int       `json:"total_orders"`
	TotalRevenue string    `json:"total_revenue"`
	FetchRunID   string    `json:"fetch_run_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// FetchFailedEvent is published when orders or customers could not be fetched
type FetchFailedEvent struct {
	Shop       string    `json:"shop"`
	Resource   string    `json:"resource,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
}

// StoreChangedEvent signals that cached reports for a shop are stale
type StoreChangedEvent struct {
	Shop      string    `json:"shop"`
	Topic     string    `json:"topic"` // e.g. orders/create, customers/update
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber handles NATS event subscriptions
type Subscriber struct {
	nc      *nats.Conn
	logger  *zap.Logger
	handler EventHandler
	subs    []*nats.Subscription
}

// EventHandler defines the interface for handling events
type EventHandler interface {
	HandleStoreChanged(ctx context.Context, event *StoreChangedEvent) error
}

// NewSubscriber creates a new NATS subscriber
func NewSubscriber(nc *nats.Conn, handler EventHandler, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		nc:      nc,
		logger:  logger,
		handler: handler,
		subs:    make([]*nats.Subscription, 0),
	}
}

// Start subscribes to all relevant events
func (s *Subscriber) Start() error {
	sub, err := s.nc.Subscribe(SubjectStoreChanged, s.handleStoreChanged)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	s.logger.Info("Subscribed to event", zap.String("subject", SubjectStoreChanged))

	return nil
}

// Stop unsubscribes from all events
func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = s.subs[:0]
	s.logger.Info("NATS subscriber stopped")
}

// handleStoreChanged processes store changed events
func (s *Subscriber) handleStoreChanged(msg *nats.Msg) {
	var event StoreChangedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.Error("Failed to unmarshal store changed event", zap.Error(err))
		return
	}

	s.logger.Info("Received store changed event",
		zap.String("shop", event.Shop),
		zap.String("topic", event.Topic),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.handler.HandleStoreChanged(ctx, &event); err != nil {
		s.logger.Error("Failed to handle store changed event",
			zap.String("shop", event.Shop),
			zap.Error(err),
		)
	}
}

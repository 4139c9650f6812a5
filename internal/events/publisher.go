package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher handles publishing events to NATS. A Publisher built without a
// connection drops every event, so callers need no nil checks.
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewPublisher creates a new NATS publisher
func NewPublisher(nc *nats.Conn, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{nc: nc, logger: logger}
}

// PublishReportComputed publishes a report computed event
func (p *Publisher) PublishReportComputed(event *ReportComputedEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.publish(SubjectReportComputed, event)
}

// PublishFetchFailed publishes a fetch failed event
func (p *Publisher) PublishFetchFailed(event *FetchFailedEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.publish(SubjectFetchFailed, event)
}

// PublishStoreChanged publishes a store changed event so every replica drops
// its cached reports.
func (p *Publisher) PublishStoreChanged(event *StoreChangedEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.publish(SubjectStoreChanged, event)
}

func (p *Publisher) publish(subject string, event interface{}) error {
	if p == nil || p.nc == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", zap.String("subject", subject), zap.Error(err))
		return err
	}
	return nil
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
)

type recordingHandler struct {
	events []*StoreChangedEvent
	err    error
}

func (h *recordingHandler) HandleStoreChanged(ctx context.Context, event *StoreChangedEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestSubscriber_HandleStoreChanged(t *testing.T) {
	h := &recordingHandler{}
	s := NewSubscriber(nil, h, nil)

	data, _ := json.Marshal(&StoreChangedEvent{Shop: "my-store.myshopify.com", Topic: "orders/create"})
	s.handleStoreChanged(&nats.Msg{Subject: SubjectStoreChanged, Data: data})

	if len(h.events) != 1 || h.events[0].Topic != "orders/create" {
		t.Fatalf("expected one dispatched event, got %+v", h.events)
	}
}

func TestSubscriber_IgnoresMalformedPayload(t *testing.T) {
	h := &recordingHandler{err: errors.New("unused")}
	s := NewSubscriber(nil, h, nil)

	s.handleStoreChanged(&nats.Msg{Subject: SubjectStoreChanged, Data: []byte("not json")})

	if len(h.events) != 0 {
		t.Fatalf("malformed payloads must not reach the handler")
	}
}

func TestPublisher_WithoutConnection(t *testing.T) {
	p := NewPublisher(nil, nil)
	if err := p.PublishReportComputed(&ReportComputedEvent{Shop: "s"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}

	var nilPublisher *Publisher
	event := &FetchFailedEvent{Shop: "s", Error: "boom"}
	if err := nilPublisher.PublishFetchFailed(event); err != nil {
		t.Fatalf("expected no-op on nil publisher, got %v", err)
	}
	if event.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be stamped")
	}
}

package events

import (
	"context"
	"testing"
)

func TestNewEvent_Envelope(t *testing.T) {
	event := NewEvent(EventZoneBreachDetected, ZoneBreachEvent{PatientID: 3, ZoneID: 9})

	if event.ID == "" {
		t.Error("event ID should not be empty")
	}
	if event.Source != "safestep-service" {
		t.Errorf("expected source 'safestep-service', got %q", event.Source)
	}
	if event.Version != "1.0" {
		t.Errorf("expected version '1.0', got %q", event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("event timestamp should not be zero")
	}
	if event.Type != EventZoneBreachDetected {
		t.Errorf("expected type %q, got %q", EventZoneBreachDetected, event.Type)
	}
}

func TestMockEventPublisher_RecordsAndClears(t *testing.T) {
	publisher := NewMockEventPublisher(nil)
	ctx := context.Background()

	if err := publisher.Publish(ctx, NewEvent(EventAlertRaised, AlertEvent{AlertID: 1})); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := publisher.Publish(ctx, NewEvent(EventHighRiskDetected, HighRiskEvent{PatientID: 2})); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(published))
	}
	if published[0].Type != EventAlertRaised {
		t.Errorf("expected first event %q, got %q", EventAlertRaised, published[0].Type)
	}

	publisher.ClearEvents()
	if got := publisher.GetPublishedEvents(); len(got) != 0 {
		t.Errorf("expected no events after clear, got %d", len(got))
	}
}

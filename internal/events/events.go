package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by this service.
const (
	EventZoneBreachDetected  = "safety.zone_breach"
	EventAlertRaised         = "safety.alert_raised"
	EventAlertResolved       = "safety.alert_resolved"
	EventIncidentRecorded    = "incident.recorded"
	EventSeizureSessionEnded = "incident.session_ended"
	EventPredictionCompleted = "prediction.completed"
	EventHighRiskDetected    = "prediction.high_risk"
)

// Event is the envelope every published message carries.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with a fresh ID and the service identity.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "safestep-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events. Publishing is fire-and-forget from
// the caller's point of view; delivery failures are logged, not returned to
// request handlers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// ZoneBreachEvent payload for safety.zone_breach.
type ZoneBreachEvent struct {
	PatientID   uint    `json:"patient_id"`
	PatientCode string  `json:"patient_code"`
	ZoneID      uint    `json:"zone_id"`
	ZoneName    string  `json:"zone_name"`
	ZoneType    string  `json:"zone_type"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DistanceM   float64 `json:"distance_m"`
}

// AlertEvent payload for safety.alert_raised and safety.alert_resolved.
type AlertEvent struct {
	AlertID     uint   `json:"alert_id"`
	PatientID   uint   `json:"patient_id"`
	TriggerKind string `json:"trigger_kind"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

// IncidentEvent payload for incident.recorded and incident.session_ended.
type IncidentEvent struct {
	IncidentID      uint      `json:"incident_id"`
	PatientID       uint      `json:"patient_id"`
	Type            string    `json:"type"`
	Severity        string    `json:"severity"`
	OccurredAt      time.Time `json:"occurred_at"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
}

// PredictionEvent payload for prediction.completed.
type PredictionEvent struct {
	JobID             uint `json:"job_id"`
	PatientsProcessed int  `json:"patients_processed"`
	PatientsFailed    int  `json:"patients_failed"`
	HighRiskCount     int  `json:"high_risk_count"`
	RiskEscalations   int  `json:"risk_escalations"`
	RiskReductions    int  `json:"risk_reductions"`
}

// HighRiskEvent payload for prediction.high_risk.
type HighRiskEvent struct {
	PatientID  uint    `json:"patient_id"`
	Score      float64 `json:"score"`
	RiskStatus string  `json:"risk_status"`
	Previous   string  `json:"previous_status"`
}

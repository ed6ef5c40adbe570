package models

import (
	"time"

	"gorm.io/gorm"
)

// Incident severity levels.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Incident types recorded by the monitoring pipeline.
const (
	IncidentTypeSeizure      = "seizure"
	IncidentTypeFall         = "fall"
	IncidentTypeZoneBreach   = "zone_breach"
	IncidentTypeMissedMed    = "missed_medication"
	IncidentTypeManualReport = "manual_report"
)

// Incident statuses.
const (
	IncidentStatusOpen     = "open"
	IncidentStatusResolved = "resolved"
)

// Incident is a recorded safety event for a patient. Seizure incidents carry
// the seizure-specific columns; other types leave them null.
type Incident struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	PatientRef uint   `json:"patient_ref" gorm:"not null;index"`
	Type       string `json:"type" gorm:"size:50;not null;index" validate:"required,oneof=seizure fall zone_breach missed_medication manual_report"`
	Severity   string `json:"severity" gorm:"size:20;not null;default:medium" validate:"required,oneof=low medium high critical"`
	Status     string `json:"status" gorm:"size:20;not null;default:open"`

	OccurredAt  time.Time  `json:"occurred_at" gorm:"not null;index"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Description string     `json:"description" gorm:"type:text"`
	Location    *string    `json:"location,omitempty" gorm:"size:255"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`

	// Seizure detail, populated for Type == seizure.
	SeizureType     *string  `json:"seizure_type,omitempty" gorm:"size:50"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
	HeartRate       *int     `json:"heart_rate,omitempty"`
	OxygenLevel     *float64 `json:"oxygen_level,omitempty"`

	// Response bookkeeping used by the rolling patient stats.
	ResponseTimeSeconds *int    `json:"response_time_seconds,omitempty"`
	RespondedBy         *uint   `json:"responded_by,omitempty"`
	ResolutionNotes     *string `json:"resolution_notes,omitempty" gorm:"type:text"`

	ReportedBy uint           `json:"reported_by" gorm:"not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Patient  *PatientProfile `json:"patient,omitempty" gorm:"foreignKey:PatientRef"`
	Reporter *User           `json:"reporter,omitempty" gorm:"foreignKey:ReportedBy"`
}

func (Incident) TableName() string {
	return "incidents"
}

// IsResolved reports whether the incident has been closed out.
func (i *Incident) IsResolved() bool {
	return i.Status == IncidentStatusResolved
}

// Seizure session statuses.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

// SeizureSession is a live monitoring window opened when a seizure begins and
// closed when it ends. A completed session produces an Incident record.
type SeizureSession struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	PatientRef uint   `json:"patient_ref" gorm:"not null;index"`
	Status     string `json:"status" gorm:"size:20;not null;default:active;index"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	SeizureType *string    `json:"seizure_type,omitempty" gorm:"size:50"`
	Severity    *string    `json:"severity,omitempty" gorm:"size:20"`
	Notes       *string    `json:"notes,omitempty" gorm:"type:text"`

	// Vitals sampled during the session.
	PeakHeartRate  *int     `json:"peak_heart_rate,omitempty"`
	MinOxygenLevel *float64 `json:"min_oxygen_level,omitempty"`

	IncidentID *uint `json:"incident_id,omitempty" gorm:"index"`
	StartedBy  uint  `json:"started_by" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Patient  *PatientProfile `json:"patient,omitempty" gorm:"foreignKey:PatientRef"`
	Incident *Incident       `json:"incident,omitempty" gorm:"foreignKey:IncidentID"`
}

func (SeizureSession) TableName() string {
	return "seizure_sessions"
}

// DurationSeconds returns the elapsed session length, using the current time
// for sessions that are still active.
func (s *SeizureSession) DurationSeconds() int {
	end := time.Now()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	d := end.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return int(d.Seconds())
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Medication is an active prescription attached to a patient.
type Medication struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	PatientRef uint   `json:"patient_ref" gorm:"not null;index"`
	Name       string `json:"name" gorm:"size:150;not null" validate:"required,min=2,max=150"`
	Dosage     string `json:"dosage" gorm:"size:100" validate:"required,max=100"`
	Frequency  string `json:"frequency" gorm:"size:100"`
	Schedule   string `json:"schedule" gorm:"size:255"`
	Notes      string `json:"notes" gorm:"type:text"`
	IsActive   bool   `json:"is_active" gorm:"default:true;index"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	PrescribedBy string         `json:"prescribed_by" gorm:"size:150"`
	CreatedBy    uint           `json:"created_by" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Patient *PatientProfile `json:"patient,omitempty" gorm:"foreignKey:PatientRef"`
	Logs    []MedicationLog `json:"logs,omitempty" gorm:"foreignKey:MedicationID"`
}

func (Medication) TableName() string {
	return "medications"
}

// Medication log statuses.
const (
	MedLogTaken   = "taken"
	MedLogMissed  = "missed"
	MedLogSkipped = "skipped"
)

// MedicationLog is one administration record. Adherence is the ratio of
// taken logs over all logs in a window.
type MedicationLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	MedicationID uint      `json:"medication_id" gorm:"not null;index"`
	Status       string    `json:"status" gorm:"size:20;not null" validate:"required,oneof=taken missed skipped"`
	TakenAt      time.Time `json:"taken_at" gorm:"not null;index"`
	Notes        string    `json:"notes" gorm:"size:500"`
	LoggedBy     uint      `json:"logged_by" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Medication *Medication `json:"-" gorm:"foreignKey:MedicationID"`
}

func (MedicationLog) TableName() string {
	return "medication_logs"
}

// Care plan statuses.
const (
	CarePlanActive    = "active"
	CarePlanCompleted = "completed"
	CarePlanArchived  = "archived"
)

// CarePlan groups daily care tasks for a patient.
type CarePlan struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	PatientRef  uint   `json:"patient_ref" gorm:"not null;index"`
	Title       string `json:"title" gorm:"size:200;not null" validate:"required,min=3,max=200"`
	Description string `json:"description" gorm:"type:text"`
	Status      string `json:"status" gorm:"size:20;not null;default:active;index"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	CreatedBy uint           `json:"created_by" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Patient *PatientProfile `json:"patient,omitempty" gorm:"foreignKey:PatientRef"`
	Tasks   []CarePlanTask  `json:"tasks,omitempty" gorm:"foreignKey:CarePlanID"`
}

func (CarePlan) TableName() string {
	return "care_plans"
}

// CarePlanTask is one actionable item inside a care plan.
type CarePlanTask struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	CarePlanID uint   `json:"care_plan_id" gorm:"not null;index"`
	Title      string `json:"title" gorm:"size:200;not null" validate:"required,min=2,max=200"`
	Notes      string `json:"notes" gorm:"size:500"`
	DueTime    string `json:"due_time" gorm:"size:20"`
	IsDone     bool   `json:"is_done" gorm:"default:false"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy *uint      `json:"completed_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CarePlanTask) TableName() string {
	return "care_plan_tasks"
}

// EmergencyContact is a person notified when an alert is raised for the
// patient. Contacts are ordered by priority, lowest first.
type EmergencyContact struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	PatientRef   uint   `json:"patient_ref" gorm:"not null;index"`
	Name         string `json:"name" gorm:"size:150;not null" validate:"required,min=2,max=150"`
	Relationship string `json:"relationship" gorm:"size:100"`
	Phone        string `json:"phone" gorm:"size:30;not null" validate:"required,max=30"`
	Email        string `json:"email" gorm:"size:255" validate:"omitempty,email"`
	Priority     int    `json:"priority" gorm:"default:1" validate:"min=1,max=10"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Patient *PatientProfile `json:"-" gorm:"foreignKey:PatientRef"`
}

func (EmergencyContact) TableName() string {
	return "emergency_contacts"
}

// Emergency alert statuses.
const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// Emergency alert trigger kinds.
const (
	AlertTriggerZoneBreach = "zone_breach"
	AlertTriggerSeizure    = "seizure"
	AlertTriggerManual     = "manual"
	AlertTriggerPrediction = "prediction"
)

// EmergencyAlert is raised by zone breaches, seizure sessions, risk
// predictions or manually by a caregiver.
type EmergencyAlert struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	PatientRef uint   `json:"patient_ref" gorm:"not null;index"`
	TriggerKind string `json:"trigger_kind" gorm:"size:30;not null;index" validate:"required,oneof=zone_breach seizure manual prediction"`
	Status     string `json:"status" gorm:"size:20;not null;default:active;index"`
	Message    string `json:"message" gorm:"size:500"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	ZoneID    *uint    `json:"zone_id,omitempty" gorm:"index"`

	RaisedAt       time.Time  `json:"raised_at" gorm:"not null;index"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *uint      `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     *uint      `json:"resolved_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Patient *PatientProfile `json:"patient,omitempty" gorm:"foreignKey:PatientRef"`
	Zone    *SafetyZone     `json:"zone,omitempty" gorm:"foreignKey:ZoneID"`
}

func (EmergencyAlert) TableName() string {
	return "emergency_alerts"
}

package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RiskStatus string

const (
	RiskLow      RiskStatus = "Low"
	RiskMedium   RiskStatus = "Medium"
	RiskHigh     RiskStatus = "High"
	RiskCritical RiskStatus = "Critical"
)

type EpilepsyType string

const (
	EpilepsyFocal       EpilepsyType = "focal"
	EpilepsyGeneralized EpilepsyType = "generalized"
	EpilepsyCombined    EpilepsyType = "combined"
	EpilepsyUnknown     EpilepsyType = "unknown"
)

type SeizureFrequency string

const (
	FrequencyDaily   SeizureFrequency = "daily"
	FrequencyWeekly  SeizureFrequency = "weekly"
	FrequencyMonthly SeizureFrequency = "monthly"
	FrequencyRare    SeizureFrequency = "rare"
)

// PatientProfile is the person being monitored. PatientID is the
// external identifier used across incidents and exports (sub-01 style).
type PatientProfile struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	PatientID string `json:"patient_id" gorm:"uniqueIndex;not null;size:20" validate:"required,max=20"`

	// Personal information
	Name   string  `json:"name" gorm:"size:100" validate:"omitempty,max=100"`
	Age    *int    `json:"age" validate:"omitempty,min=0,max=120"`
	Gender *string `json:"gender" gorm:"size:10" validate:"omitempty,oneof=M F"`

	// Medical information
	EpilepsyType      EpilepsyType     `json:"epilepsy_type" gorm:"size:50" validate:"omitempty,oneof=focal generalized combined unknown"`
	SeizureFrequency  SeizureFrequency `json:"seizure_frequency" gorm:"size:50" validate:"omitempty,oneof=daily weekly monthly rare"`
	MedicationRegimen datatypes.JSON   `json:"medication_regimen"` // JSON array of medication names

	// Risk assessment, denormalized from the prediction engine
	RiskStatus     RiskStatus `json:"risk_status" gorm:"default:Low;size:20;index"`
	RiskScore      float64    `json:"risk_score" gorm:"default:0"`
	LastRiskUpdate *time.Time `json:"last_risk_update"`

	// Recent activity patterns, maintained by the incident service
	RecentSeizureCount  int        `json:"recent_seizure_count" gorm:"default:0"`
	AverageResponseTime float64    `json:"average_response_time"` // minutes
	LastIncidentDate    *time.Time `json:"last_incident_date"`

	// Clinical monitoring metadata
	ElectrodeImplant bool    `json:"electrode_implant" gorm:"default:false"`
	MonitoringType   *string `json:"monitoring_type" gorm:"size:50"`
	HFOBurden        float64 `json:"hfo_burden" gorm:"column:hfo_burden;default:0"`

	// Ownership
	CaregiverID uint `json:"caregiver_id" gorm:"not null;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Caregiver *User      `json:"caregiver,omitempty" gorm:"foreignKey:CaregiverID"`
	Incidents []Incident `json:"incidents,omitempty" gorm:"foreignKey:PatientRef"`

	// Computed fields (not stored)
	IncidentCount int `json:"incident_count" gorm:"-"`
}

func (PatientProfile) TableName() string {
	return "patients"
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// PredictionResult is one risk-score computation for a patient. The latest
// result is denormalized onto the patient row for cheap listing.
type PredictionResult struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	PatientRef uint    `json:"patient_ref" gorm:"not null;index"`
	Score      float64 `json:"score" gorm:"not null"`
	Status     string  `json:"status" gorm:"size:20;not null;index"`
	Confidence float64 `json:"confidence"`

	// Feature snapshot, contributing factors and recommended actions
	// captured at computation time.
	Features        datatypes.JSON `json:"features"`
	Factors         datatypes.JSON `json:"factors"`
	Recommendations datatypes.JSON `json:"recommendations"`

	JobID      *uint     `json:"job_id,omitempty" gorm:"index"`
	ComputedAt time.Time `json:"computed_at" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	Patient *PatientProfile `json:"patient,omitempty" gorm:"foreignKey:PatientRef"`
}

func (PredictionResult) TableName() string {
	return "prediction_results"
}

// Prediction job statuses.
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// PredictionJob records one batch analysis run over the patient population,
// whether triggered from the schedule or on demand by an admin.
type PredictionJob struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Status      string     `json:"status" gorm:"size:20;not null;index"`
	TriggeredBy string     `json:"triggered_by" gorm:"size:50"`
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	PatientsTotal     int    `json:"patients_total"`
	PatientsProcessed int    `json:"patients_processed"`
	PatientsFailed    int    `json:"patients_failed"`
	HighRiskCount     int    `json:"high_risk_count"`
	RiskEscalations   int    `json:"risk_escalations"`
	RiskReductions    int    `json:"risk_reductions"`
	Error             string `json:"error,omitempty" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PredictionJob) TableName() string {
	return "prediction_jobs"
}

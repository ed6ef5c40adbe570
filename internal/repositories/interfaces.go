package repositories

import (
	"time"

	"github.com/safestep-care/safestep-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type PatientFilters struct {
	CaregiverID *uint              `json:"caregiver_id"`
	RiskStatus  *models.RiskStatus `json:"risk_status"`
	Search      *string            `json:"search"`
	Limit       int                `json:"limit"`
	Offset      int                `json:"offset"`
	SortBy      string             `json:"sort_by"`    // "created_at", "last_name", "risk_score"
	SortOrder   string             `json:"sort_order"` // "asc", "desc"
}

type IncidentFilters struct {
	PatientRef  *uint      `json:"patient_ref"`
	CaregiverID *uint      `json:"caregiver_id"`
	Type       *string    `json:"type"`
	Severity   *string    `json:"severity"`
	Status     *string    `json:"status"`
	DateFrom   *time.Time `json:"date_from"`
	DateTo     *time.Time `json:"date_to"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
	SortBy     string     `json:"sort_by"`
	SortOrder  string     `json:"sort_order"`
}

type ZoneFilters struct {
	PatientRef     *uint   `json:"patient_ref"`
	Type           *string `json:"type"`
	ApprovalStatus *string `json:"approval_status"`
	IsActive       *bool   `json:"is_active"`
	Limit          int     `json:"limit"`
	Offset         int     `json:"offset"`
}

type AlertFilters struct {
	PatientRef  *uint   `json:"patient_ref"`
	CaregiverID *uint   `json:"caregiver_id"` // restricts to the caregiver's patients
	Status      *string `json:"status"`
	Trigger     *string `json:"trigger"`
	Limit       int     `json:"limit"`
	Offset      int     `json:"offset"`
}

type TicketFilters struct {
	UserID   *uint   `json:"user_id"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

// PatientStats are the rolling aggregates consulted by the prediction
// engine and shown on patient detail pages.
type PatientStats struct {
	IncidentCount30d     int        `json:"incident_count_30d"`
	SeizureCount30d      int        `json:"seizure_count_30d"`
	HighSeverityCount30d int        `json:"high_severity_count_30d"`
	AvgResponseTime      float64    `json:"avg_response_time_seconds"`
	AvgSeizureDuration   float64    `json:"avg_seizure_duration_seconds"`
	LastIncidentAt       *time.Time `json:"last_incident_at"`
	ActiveMedications    int        `json:"active_medications"`
	AdherenceRate        float64    `json:"adherence_rate"`
}

type CaregiverStats struct {
	TotalPatients   int `json:"total_patients"`
	HighRiskCount   int `json:"high_risk_count"`
	OpenIncidents   int `json:"open_incidents"`
	ActiveAlerts    int `json:"active_alerts"`
	PendingZones    int `json:"pending_zones"`
	ModulesFinished int `json:"modules_finished"`
}

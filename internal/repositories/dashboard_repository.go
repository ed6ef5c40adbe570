package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
)

// DashboardRepository interface for admin dashboard analytics
type DashboardRepository interface {
	// Counters
	GetTotalPatients(ctx context.Context, tx *gorm.DB) (int64, error)
	GetTotalCaregivers(ctx context.Context, tx *gorm.DB) (int64, error)
	GetOpenIncidents(ctx context.Context, tx *gorm.DB) (int64, error)
	GetActiveAlerts(ctx context.Context, tx *gorm.DB) (int64, error)
	GetPendingZones(ctx context.Context, tx *gorm.DB) (int64, error)
	GetOpenTickets(ctx context.Context, tx *gorm.DB) (int64, error)

	// Risk distribution across the patient population
	GetRiskBreakdown(ctx context.Context, tx *gorm.DB) (map[models.RiskStatus]int64, error)

	// Incident trends bucketed by day
	GetIncidentTrend(ctx context.Context, tx *gorm.DB, days int) ([]IncidentTrendData, error)
	GetIncidentsByType(ctx context.Context, tx *gorm.DB, days int) (map[string]int64, error)
	GetIncidentsBySeverity(ctx context.Context, tx *gorm.DB, days int) (map[string]int64, error)

	// Recent activity feed
	GetRecentIncidents(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Incident, error)
	GetRecentAlerts(ctx context.Context, tx *gorm.DB, limit int) ([]*models.EmergencyAlert, error)

	// Export source rows for the analytics workbook
	GetIncidentsForExport(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]*models.Incident, error)
}

// IncidentTrendData is one day's bucket in the incident trend series
type IncidentTrendData struct {
	Date     time.Time `json:"date"`
	Count    int64     `json:"count"`
	Seizures int64     `json:"seizures"`
}

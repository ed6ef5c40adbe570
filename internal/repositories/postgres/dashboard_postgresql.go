package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/cache"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

type DashboardPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDashboardPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.DashboardRepository {
	return &DashboardPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (d *DashboardPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return d.db
}

func (d *DashboardPostgreSQL) GetTotalPatients(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := d.getDB(tx).WithContext(ctx).Model(&models.PatientProfile{}).Count(&count).Error
	return count, err
}

func (d *DashboardPostgreSQL) GetTotalCaregivers(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := d.getDB(tx).WithContext(ctx).
		Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.RoleCaregiver, true).
		Count(&count).Error
	return count, err
}

func (d *DashboardPostgreSQL) GetOpenIncidents(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := d.getDB(tx).WithContext(ctx).
		Model(&models.Incident{}).
		Where("status = ?", models.IncidentStatusOpen).
		Count(&count).Error
	return count, err
}

func (d *DashboardPostgreSQL) GetActiveAlerts(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := d.getDB(tx).WithContext(ctx).
		Model(&models.EmergencyAlert{}).
		Where("status = ?", models.AlertStatusActive).
		Count(&count).Error
	return count, err
}

func (d *DashboardPostgreSQL) GetPendingZones(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := d.getDB(tx).WithContext(ctx).
		Model(&models.SafetyZone{}).
		Where("approval_status = ?", models.ZoneApprovalPending).
		Count(&count).Error
	return count, err
}

func (d *DashboardPostgreSQL) GetOpenTickets(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := d.getDB(tx).WithContext(ctx).
		Model(&models.SupportTicket{}).
		Where("status IN ?", []string{models.TicketStatusOpen, models.TicketStatusInProgress}).
		Count(&count).Error
	return count, err
}

// GetRiskBreakdown returns patient counts per risk status, cached briefly
func (d *DashboardPostgreSQL) GetRiskBreakdown(ctx context.Context, tx *gorm.DB) (map[models.RiskStatus]int64, error) {
	var breakdown map[models.RiskStatus]int64
	err := d.cacheManager.Stats.CacheOrExecute(ctx, "dashboard:risk_breakdown", &breakdown, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return d.computeRiskBreakdown(ctx, tx)
	})
	return breakdown, err
}

func (d *DashboardPostgreSQL) computeRiskBreakdown(ctx context.Context, tx *gorm.DB) (map[models.RiskStatus]int64, error) {
	type row struct {
		RiskStatus models.RiskStatus
		Count      int64
	}

	var rows []row
	err := d.getDB(tx).WithContext(ctx).
		Model(&models.PatientProfile{}).
		Select("risk_status, COUNT(*) as count").
		Group("risk_status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get risk breakdown: %w", err)
	}

	breakdown := map[models.RiskStatus]int64{
		models.RiskLow:      0,
		models.RiskMedium:   0,
		models.RiskHigh:     0,
		models.RiskCritical: 0,
	}
	for _, r := range rows {
		breakdown[r.RiskStatus] = r.Count
	}
	return breakdown, nil
}

// GetIncidentTrend buckets incidents per day over the trailing window
func (d *DashboardPostgreSQL) GetIncidentTrend(ctx context.Context, tx *gorm.DB, days int) ([]repositories.IncidentTrendData, error) {
	db := d.getDB(tx).WithContext(ctx)
	since := time.Now().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	var incidents []models.Incident
	err := db.Select("occurred_at, type").
		Where("occurred_at >= ?", since).
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get incident trend: %w", err)
	}

	// Bucket in Go so the query stays portable across postgres and sqlite.
	buckets := make(map[string]*repositories.IncidentTrendData)
	for day := 0; day <= days; day++ {
		date := since.AddDate(0, 0, day)
		buckets[date.Format("2006-01-02")] = &repositories.IncidentTrendData{Date: date}
	}
	for _, inc := range incidents {
		key := inc.OccurredAt.Format("2006-01-02")
		bucket, ok := buckets[key]
		if !ok {
			continue
		}
		bucket.Count++
		if inc.Type == models.IncidentTypeSeizure {
			bucket.Seizures++
		}
	}

	trend := make([]repositories.IncidentTrendData, 0, len(buckets))
	for day := 0; day <= days; day++ {
		date := since.AddDate(0, 0, day)
		trend = append(trend, *buckets[date.Format("2006-01-02")])
	}
	return trend, nil
}

func (d *DashboardPostgreSQL) GetIncidentsByType(ctx context.Context, tx *gorm.DB, days int) (map[string]int64, error) {
	return d.countGrouped(ctx, tx, "type", days)
}

func (d *DashboardPostgreSQL) GetIncidentsBySeverity(ctx context.Context, tx *gorm.DB, days int) (map[string]int64, error) {
	return d.countGrouped(ctx, tx, "severity", days)
}

func (d *DashboardPostgreSQL) countGrouped(ctx context.Context, tx *gorm.DB, column string, days int) (map[string]int64, error) {
	type row struct {
		Key   string
		Count int64
	}

	since := time.Now().AddDate(0, 0, -days)
	var rows []row
	err := d.getDB(tx).WithContext(ctx).
		Model(&models.Incident{}).
		Select(column+" as key, COUNT(*) as count").
		Where("occurred_at >= ?", since).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group incidents by %s: %w", column, err)
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}

func (d *DashboardPostgreSQL) GetRecentIncidents(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Incident, error) {
	var incidents []*models.Incident
	err := d.getDB(tx).WithContext(ctx).
		Preload("Patient").
		Order("occurred_at DESC").
		Limit(limit).
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent incidents: %w", err)
	}
	return incidents, nil
}

func (d *DashboardPostgreSQL) GetRecentAlerts(ctx context.Context, tx *gorm.DB, limit int) ([]*models.EmergencyAlert, error) {
	var alerts []*models.EmergencyAlert
	err := d.getDB(tx).WithContext(ctx).
		Preload("Patient").
		Order("raised_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent alerts: %w", err)
	}
	return alerts, nil
}

// GetIncidentsForExport returns incidents in the date range with patients
// preloaded for the analytics workbook.
func (d *DashboardPostgreSQL) GetIncidentsForExport(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]*models.Incident, error) {
	var incidents []*models.Incident
	err := d.getDB(tx).WithContext(ctx).
		Preload("Patient").
		Where("occurred_at >= ? AND occurred_at <= ?", from, to).
		Order("occurred_at ASC").
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get incidents for export: %w", err)
	}
	return incidents, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/cache"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

type PatientPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewPatientPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.PatientRepository {
	return &PatientPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (p *PatientPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

// Create creates a new patient profile and invalidates cache
func (p *PatientPostgreSQL) Create(ctx context.Context, tx *gorm.DB, patient *models.PatientProfile) error {
	if err := p.getDB(tx).WithContext(ctx).Create(patient).Error; err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, p.cacheManager.Patient, fmt.Sprintf("caregiver:%d:*", patient.CaregiverID))
	cache.SafeInvalidatePattern(ctx, p.cacheManager.Patient, "list:*")
	cache.SafeInvalidatePattern(ctx, p.cacheManager.Stats, "dashboard:*")

	return nil
}

// GetByID retrieves a patient by ID with caching
func (p *PatientPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PatientProfile, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var patient models.PatientProfile

	err := p.cacheManager.Patient.CacheOrExecute(ctx, cacheKey, &patient, cache.PatientCacheConfig.TTL, func() (interface{}, error) {
		var dbPatient models.PatientProfile
		err := p.getDB(tx).WithContext(ctx).First(&dbPatient, id).Error
		if err != nil {
			return nil, err
		}
		return &dbPatient, nil
	})

	if err != nil {
		return nil, err
	}

	return &patient, nil
}

// GetByPatientID retrieves a patient by its external code
func (p *PatientPostgreSQL) GetByPatientID(ctx context.Context, tx *gorm.DB, patientID string) (*models.PatientProfile, error) {
	var patient models.PatientProfile
	err := p.getDB(tx).WithContext(ctx).
		Where("patient_id = ?", patientID).
		First(&patient).Error
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// GetByIDWithDetails retrieves a patient with caregiver and recent relations preloaded
func (p *PatientPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.PatientProfile, error) {
	cacheKey := fmt.Sprintf("details:%d", id)
	var patient models.PatientProfile

	err := p.cacheManager.Patient.CacheOrExecute(ctx, cacheKey, &patient, cache.PatientCacheConfig.TTL, func() (interface{}, error) {
		var dbPatient models.PatientProfile
		err := p.getDB(tx).WithContext(ctx).
			Preload("Caregiver").
			Preload("Incidents", func(db *gorm.DB) *gorm.DB {
				return db.Order("occurred_at DESC").Limit(10)
			}).
			First(&dbPatient, id).Error
		if err != nil {
			return nil, err
		}

		count, err := p.helpers.CountIncidentsByPatient(ctx, id)
		if err == nil {
			dbPatient.IncidentCount = int(count)
		}
		return &dbPatient, nil
	})

	return &patient, err
}

// Update updates a patient and invalidates cache
func (p *PatientPostgreSQL) Update(ctx context.Context, tx *gorm.DB, patient *models.PatientProfile) error {
	if err := p.getDB(tx).WithContext(ctx).Save(patient).Error; err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	cache.InvalidatePatientCache(ctx, p.cacheManager, patient.ID, patient.CaregiverID)

	return nil
}

// Delete soft-deletes a patient
func (p *PatientPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := p.getDB(tx).WithContext(ctx).Delete(&models.PatientProfile{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete patient: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.SafeDelete(ctx, p.cacheManager.Patient, fmt.Sprintf("id:%d", id), fmt.Sprintf("details:%d", id))
	cache.SafeInvalidatePattern(ctx, p.cacheManager.Patient, "list:*")
	cache.SafeInvalidatePattern(ctx, p.cacheManager.Stats, "dashboard:*")

	return nil
}

// List retrieves patients matching filters with total count
func (p *PatientPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.PatientFilters) ([]*models.PatientProfile, int64, error) {
	var patients []*models.PatientProfile
	var total int64

	query := p.getDB(tx).WithContext(ctx).Model(&models.PatientProfile{})
	query = p.helpers.ApplyPatientFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query = p.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&patients).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}

	return patients, total, nil
}

// GetByCaregiver retrieves patients assigned to one caregiver
func (p *PatientPostgreSQL) GetByCaregiver(ctx context.Context, tx *gorm.DB, caregiverID uint, filters repositories.PatientFilters) ([]*models.PatientProfile, int64, error) {
	filters.CaregiverID = &caregiverID
	return p.List(ctx, tx, filters)
}

// ListAll retrieves every patient, used by the batch prediction run
func (p *PatientPostgreSQL) ListAll(ctx context.Context, tx *gorm.DB) ([]*models.PatientProfile, error) {
	var patients []*models.PatientProfile
	if err := p.getDB(tx).WithContext(ctx).Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("failed to list all patients: %w", err)
	}
	return patients, nil
}

// Exists checks whether a patient row exists
func (p *PatientPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.PatientProfile{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// ExistsByPatientID checks whether a patient code is taken
func (p *PatientPostgreSQL) ExistsByPatientID(ctx context.Context, tx *gorm.DB, patientID string) (bool, error) {
	var count int64
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.PatientProfile{}).
		Where("patient_id = ?", patientID).
		Count(&count).Error
	return count > 0, err
}

// CountIncidents counts all incidents recorded against a patient
func (p *PatientPostgreSQL) CountIncidents(ctx context.Context, tx *gorm.DB, id uint) (int64, error) {
	var count int64
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.Incident{}).
		Where("patient_ref = ?", id).
		Count(&count).Error
	return count, err
}

// UpdateRiskFields writes the denormalized risk score and status
func (p *PatientPostgreSQL) UpdateRiskFields(ctx context.Context, tx *gorm.DB, id uint, score float64, status models.RiskStatus) error {
	now := time.Now()
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.PatientProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"risk_score":       score,
			"risk_status":      status,
			"last_risk_update": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update risk fields: %w", err)
	}
	cache.SafeDelete(ctx, p.cacheManager.Patient, fmt.Sprintf("id:%d", id), fmt.Sprintf("details:%d", id))
	cache.SafeInvalidatePattern(ctx, p.cacheManager.Patient, "list:*")
	cache.SafeInvalidatePattern(ctx, p.cacheManager.Stats, "dashboard:*")

	return nil
}

// UpdateRollingStats recomputes the denormalized incident aggregates on the
// patient row from the last 30 days of incidents.
func (p *PatientPostgreSQL) UpdateRollingStats(ctx context.Context, tx *gorm.DB, id uint) error {
	db := p.getDB(tx).WithContext(ctx)
	since := time.Now().AddDate(0, 0, -30)

	var seizureCount int64
	if err := db.Model(&models.Incident{}).
		Where("patient_ref = ? AND type = ? AND occurred_at >= ?", id, models.IncidentTypeSeizure, since).
		Count(&seizureCount).Error; err != nil {
		return fmt.Errorf("failed to count recent seizures: %w", err)
	}

	var avgResponse *float64
	if err := db.Model(&models.Incident{}).
		Where("patient_ref = ? AND response_time_seconds IS NOT NULL AND occurred_at >= ?", id, since).
		Select("AVG(response_time_seconds)").
		Scan(&avgResponse).Error; err != nil {
		return fmt.Errorf("failed to average response time: %w", err)
	}

	var lastIncident models.Incident
	var lastIncidentAt *time.Time
	err := db.Where("patient_ref = ?", id).
		Order("occurred_at DESC").
		First(&lastIncident).Error
	if err == nil {
		lastIncidentAt = &lastIncident.OccurredAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to find last incident: %w", err)
	}

	updates := map[string]interface{}{
		"recent_seizure_count": seizureCount,
		"last_incident_date":   lastIncidentAt,
	}
	if avgResponse != nil {
		updates["average_response_time"] = *avgResponse
	}

	if err := db.Model(&models.PatientProfile{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update rolling stats: %w", err)
	}

	cache.SafeDelete(ctx, p.cacheManager.Patient, fmt.Sprintf("id:%d", id), fmt.Sprintf("details:%d", id))
	cache.SafeInvalidatePattern(ctx, p.cacheManager.Stats, fmt.Sprintf("patient:%d:*", id))

	return nil
}

// GetStats computes the rolling aggregates used by risk scoring, cached briefly
func (p *PatientPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.PatientStats, error) {
	cacheKey := fmt.Sprintf("patient:%d:stats", id)
	var stats repositories.PatientStats

	err := p.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return p.computeStats(ctx, tx, id)
	})

	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (p *PatientPostgreSQL) computeStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.PatientStats, error) {
	db := p.getDB(tx).WithContext(ctx)
	since := time.Now().AddDate(0, 0, -30)
	stats := &repositories.PatientStats{}

	var incidentCount int64
	if err := db.Model(&models.Incident{}).
		Where("patient_ref = ? AND occurred_at >= ?", id, since).
		Count(&incidentCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count incidents: %w", err)
	}
	stats.IncidentCount30d = int(incidentCount)

	var seizureCount int64
	if err := db.Model(&models.Incident{}).
		Where("patient_ref = ? AND type = ? AND occurred_at >= ?", id, models.IncidentTypeSeizure, since).
		Count(&seizureCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count seizures: %w", err)
	}
	stats.SeizureCount30d = int(seizureCount)

	var highCount int64
	if err := db.Model(&models.Incident{}).
		Where("patient_ref = ? AND severity IN ? AND occurred_at >= ?", id,
			[]string{models.SeverityHigh, models.SeverityCritical}, since).
		Count(&highCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count high severity incidents: %w", err)
	}
	stats.HighSeverityCount30d = int(highCount)

	var avgResponse *float64
	if err := db.Model(&models.Incident{}).
		Where("patient_ref = ? AND response_time_seconds IS NOT NULL AND occurred_at >= ?", id, since).
		Select("AVG(response_time_seconds)").
		Scan(&avgResponse).Error; err != nil {
		return nil, fmt.Errorf("failed to average response time: %w", err)
	}
	if avgResponse != nil {
		stats.AvgResponseTime = *avgResponse
	}

	var avgDuration *float64
	if err := db.Model(&models.Incident{}).
		Where("patient_ref = ? AND duration_seconds IS NOT NULL AND occurred_at >= ?", id, since).
		Select("AVG(duration_seconds)").
		Scan(&avgDuration).Error; err != nil {
		return nil, fmt.Errorf("failed to average seizure duration: %w", err)
	}
	if avgDuration != nil {
		stats.AvgSeizureDuration = *avgDuration
	}

	var lastIncident models.Incident
	err := db.Where("patient_ref = ?", id).
		Order("occurred_at DESC").
		First(&lastIncident).Error
	if err == nil {
		stats.LastIncidentAt = &lastIncident.OccurredAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find last incident: %w", err)
	}

	var activeMeds int64
	if err := db.Model(&models.Medication{}).
		Where("patient_ref = ? AND is_active = ?", id, true).
		Count(&activeMeds).Error; err != nil {
		return nil, fmt.Errorf("failed to count medications: %w", err)
	}
	stats.ActiveMedications = int(activeMeds)

	var takenCount, totalLogs int64
	logQuery := db.Model(&models.MedicationLog{}).
		Joins("JOIN medications ON medications.id = medication_logs.medication_id").
		Where("medications.patient_ref = ? AND medication_logs.taken_at >= ?", id, since)
	if err := logQuery.Count(&totalLogs).Error; err != nil {
		return nil, fmt.Errorf("failed to count medication logs: %w", err)
	}
	if totalLogs > 0 {
		if err := logQuery.Where("medication_logs.status = ?", models.MedLogTaken).
			Count(&takenCount).Error; err != nil {
			return nil, fmt.Errorf("failed to count taken logs: %w", err)
		}
		stats.AdherenceRate = float64(takenCount) / float64(totalLogs)
	} else {
		stats.AdherenceRate = 1.0
	}

	return stats, nil
}

// NextPatientID allocates the next sequential patient code in sub-NN form
func (p *PatientPostgreSQL) NextPatientID(ctx context.Context, tx *gorm.DB) (string, error) {
	var count int64
	err := p.getDB(tx).WithContext(ctx).
		Unscoped().
		Model(&models.PatientProfile{}).
		Count(&count).Error
	if err != nil {
		return "", fmt.Errorf("failed to count patients: %w", err)
	}

	// Skip codes already taken, soft-deleted rows included in the count above
	for candidate := count + 1; ; candidate++ {
		code := fmt.Sprintf("sub-%02d", candidate)
		taken, err := p.ExistsByPatientID(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}

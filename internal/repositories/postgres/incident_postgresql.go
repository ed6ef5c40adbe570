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

type IncidentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewIncidentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.IncidentRepository {
	return &IncidentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (i *IncidentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return i.db
}

// Create records an incident and invalidates listing caches
func (i *IncidentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, incident *models.Incident) error {
	if err := i.getDB(tx).WithContext(ctx).Create(incident).Error; err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	cache.InvalidateIncidentCache(ctx, i.cacheManager, incident.ID, incident.PatientRef)

	return nil
}

// GetByID retrieves an incident with its patient preloaded
func (i *IncidentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Incident, error) {
	var incident models.Incident
	err := i.getDB(tx).WithContext(ctx).
		Preload("Patient").
		First(&incident, id).Error
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

// Update saves an incident and invalidates caches
func (i *IncidentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, incident *models.Incident) error {
	if err := i.getDB(tx).WithContext(ctx).Save(incident).Error; err != nil {
		return fmt.Errorf("failed to update incident: %w", err)
	}
	cache.InvalidateIncidentCache(ctx, i.cacheManager, incident.ID, incident.PatientRef)

	return nil
}

// Delete soft-deletes an incident
func (i *IncidentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	var incident models.Incident
	if err := i.getDB(tx).WithContext(ctx).First(&incident, id).Error; err != nil {
		return err
	}

	result := i.getDB(tx).WithContext(ctx).Delete(&models.Incident{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete incident: %w", result.Error)
	}
	cache.InvalidateIncidentCache(ctx, i.cacheManager, id, incident.PatientRef)

	return nil
}

// List retrieves incidents matching filters with total count
func (i *IncidentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.IncidentFilters) ([]*models.Incident, int64, error) {
	var incidents []*models.Incident
	var total int64

	query := i.getDB(tx).WithContext(ctx).Model(&models.Incident{})
	query = i.helpers.ApplyIncidentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count incidents: %w", err)
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "occurred_at"
	}
	query = i.helpers.ApplyPaginationAndSort(query, sortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Patient").Find(&incidents).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list incidents: %w", err)
	}

	return incidents, total, nil
}

// GetByPatient retrieves incidents for one patient
func (i *IncidentPostgreSQL) GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint, filters repositories.IncidentFilters) ([]*models.Incident, int64, error) {
	filters.PatientRef = &patientID
	return i.List(ctx, tx, filters)
}

// GetRecentByPatient retrieves incidents inside the trailing window, newest first
func (i *IncidentPostgreSQL) GetRecentByPatient(ctx context.Context, tx *gorm.DB, patientID uint, days int) ([]*models.Incident, error) {
	var incidents []*models.Incident
	since := time.Now().AddDate(0, 0, -days)

	err := i.getDB(tx).WithContext(ctx).
		Where("patient_ref = ? AND occurred_at >= ?", patientID, since).
		Order("occurred_at DESC").
		Find(&incidents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent incidents: %w", err)
	}
	return incidents, nil
}

// Exists checks whether an incident row exists
func (i *IncidentPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	err := i.getDB(tx).WithContext(ctx).
		Model(&models.Incident{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// CountOpenByPatient counts unresolved incidents for a patient
func (i *IncidentPostgreSQL) CountOpenByPatient(ctx context.Context, tx *gorm.DB, patientID uint) (int64, error) {
	var count int64
	err := i.getDB(tx).WithContext(ctx).
		Model(&models.Incident{}).
		Where("patient_ref = ? AND status = ?", patientID, models.IncidentStatusOpen).
		Count(&count).Error
	return count, err
}

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.SeizureSession) error {
	if err := s.getDB(tx).WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SeizureSession, error) {
	var session models.SeizureSession
	err := s.getDB(tx).WithContext(ctx).
		Preload("Patient").
		First(&session, id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, session *models.SeizureSession) error {
	if err := s.getDB(tx).WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// GetActiveByPatient returns the open session for a patient, nil when none exists
func (s *SessionPostgreSQL) GetActiveByPatient(ctx context.Context, tx *gorm.DB, patientID uint) (*models.SeizureSession, error) {
	var session models.SeizureSession
	err := s.getDB(tx).WithContext(ctx).
		Where("patient_ref = ? AND status = ?", patientID, models.SessionStatusActive).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint, limit, offset int) ([]*models.SeizureSession, int64, error) {
	var sessions []*models.SeizureSession
	var total int64

	query := s.getDB(tx).WithContext(ctx).
		Model(&models.SeizureSession{}).
		Where("patient_ref = ?", patientID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query = query.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}

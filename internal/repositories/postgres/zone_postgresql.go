package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/cache"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

type ZonePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewZonePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ZoneRepository {
	return &ZonePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (z *ZonePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return z.db
}

// Create stores a zone and invalidates patient zone caches
func (z *ZonePostgreSQL) Create(ctx context.Context, tx *gorm.DB, zone *models.SafetyZone) error {
	if err := z.getDB(tx).WithContext(ctx).Create(zone).Error; err != nil {
		return fmt.Errorf("failed to create zone: %w", err)
	}
	cache.InvalidateZoneCache(ctx, z.cacheManager, zone.ID, zone.PatientRef)

	return nil
}

func (z *ZonePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SafetyZone, error) {
	var zone models.SafetyZone
	err := z.getDB(tx).WithContext(ctx).
		Preload("Patient").
		First(&zone, id).Error
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

func (z *ZonePostgreSQL) Update(ctx context.Context, tx *gorm.DB, zone *models.SafetyZone) error {
	if err := z.getDB(tx).WithContext(ctx).Save(zone).Error; err != nil {
		return fmt.Errorf("failed to update zone: %w", err)
	}
	cache.InvalidateZoneCache(ctx, z.cacheManager, zone.ID, zone.PatientRef)

	return nil
}

func (z *ZonePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	var zone models.SafetyZone
	if err := z.getDB(tx).WithContext(ctx).First(&zone, id).Error; err != nil {
		return err
	}

	result := z.getDB(tx).WithContext(ctx).Delete(&models.SafetyZone{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete zone: %w", result.Error)
	}
	cache.InvalidateZoneCache(ctx, z.cacheManager, id, zone.PatientRef)

	return nil
}

// List retrieves zones matching filters with total count
func (z *ZonePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ZoneFilters) ([]*models.SafetyZone, int64, error) {
	var zones []*models.SafetyZone
	var total int64

	query := z.getDB(tx).WithContext(ctx).Model(&models.SafetyZone{})
	if filters.PatientRef != nil {
		query = query.Where("patient_ref = ?", *filters.PatientRef)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.ApprovalStatus != nil {
		query = query.Where("approval_status = ?", *filters.ApprovalStatus)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count zones: %w", err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&zones).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list zones: %w", err)
	}
	return zones, total, nil
}

// GetByPatient retrieves all zones attached to a patient
func (z *ZonePostgreSQL) GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.SafetyZone, error) {
	var zones []*models.SafetyZone
	err := z.getDB(tx).WithContext(ctx).
		Where("patient_ref = ?", patientID).
		Order("created_at DESC").
		Find(&zones).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get patient zones: %w", err)
	}
	return zones, nil
}

// GetEnforcedByPatient retrieves the active approved zones consulted on every
// location check, cached since geometry rarely changes.
func (z *ZonePostgreSQL) GetEnforcedByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.SafetyZone, error) {
	cacheKey := fmt.Sprintf("patient:%d:enforced", patientID)
	var zones []*models.SafetyZone

	err := z.cacheManager.Zone.CacheOrExecute(ctx, cacheKey, &zones, cache.ZoneCacheConfig.TTL, func() (interface{}, error) {
		var dbZones []*models.SafetyZone
		err := z.getDB(tx).WithContext(ctx).
			Where("patient_ref = ? AND is_active = ? AND approval_status = ?",
				patientID, true, models.ZoneApprovalApproved).
			Find(&dbZones).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get enforced zones: %w", err)
		}
		return dbZones, nil
	})

	return zones, err
}

// GetPendingApproval retrieves zones awaiting admin review
func (z *ZonePostgreSQL) GetPendingApproval(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.SafetyZone, int64, error) {
	pending := models.ZoneApprovalPending
	return z.List(ctx, tx, repositories.ZoneFilters{
		ApprovalStatus: &pending,
		Limit:          limit,
		Offset:         offset,
	})
}

func (z *ZonePostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	err := z.getDB(tx).WithContext(ctx).
		Model(&models.SafetyZone{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
)

// ZoneRepository interface for safety zone operations
type ZoneRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, zone *models.SafetyZone) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SafetyZone, error)
	Update(ctx context.Context, tx *gorm.DB, zone *models.SafetyZone) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// List operations
	List(ctx context.Context, tx *gorm.DB, filters ZoneFilters) ([]*models.SafetyZone, int64, error)
	GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.SafetyZone, error)

	// GetEnforcedByPatient returns active approved zones used in location checks
	GetEnforcedByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.SafetyZone, error)
	GetPendingApproval(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.SafetyZone, int64, error)

	// Validation and checks
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

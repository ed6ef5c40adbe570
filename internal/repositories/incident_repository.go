package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
)

// IncidentRepository interface for incident operations
type IncidentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, incident *models.Incident) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Incident, error)
	Update(ctx context.Context, tx *gorm.DB, incident *models.Incident) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// List operations
	List(ctx context.Context, tx *gorm.DB, filters IncidentFilters) ([]*models.Incident, int64, error)
	GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint, filters IncidentFilters) ([]*models.Incident, int64, error)
	GetRecentByPatient(ctx context.Context, tx *gorm.DB, patientID uint, days int) ([]*models.Incident, error)

	// Validation and checks
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	CountOpenByPatient(ctx context.Context, tx *gorm.DB, patientID uint) (int64, error)
}

// SessionRepository interface for seizure monitoring sessions
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.SeizureSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.SeizureSession, error)
	Update(ctx context.Context, tx *gorm.DB, session *models.SeizureSession) error

	// GetActiveByPatient returns the open session for a patient, if any
	GetActiveByPatient(ctx context.Context, tx *gorm.DB, patientID uint) (*models.SeizureSession, error)
	GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint, limit, offset int) ([]*models.SeizureSession, int64, error)
}

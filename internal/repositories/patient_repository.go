package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
)

// PatientRepository interface for patient profile operations
type PatientRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, patient *models.PatientProfile) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PatientProfile, error)
	GetByPatientID(ctx context.Context, tx *gorm.DB, patientID string) (*models.PatientProfile, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.PatientProfile, error)
	Update(ctx context.Context, tx *gorm.DB, patient *models.PatientProfile) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// List and search operations
	List(ctx context.Context, tx *gorm.DB, filters PatientFilters) ([]*models.PatientProfile, int64, error)
	GetByCaregiver(ctx context.Context, tx *gorm.DB, caregiverID uint, filters PatientFilters) ([]*models.PatientProfile, int64, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*models.PatientProfile, error)

	// Validation and checks
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	ExistsByPatientID(ctx context.Context, tx *gorm.DB, patientID string) (bool, error)
	CountIncidents(ctx context.Context, tx *gorm.DB, id uint) (int64, error)

	// Risk fields maintained by the prediction engine and incident pipeline
	UpdateRiskFields(ctx context.Context, tx *gorm.DB, id uint, score float64, status models.RiskStatus) error
	UpdateRollingStats(ctx context.Context, tx *gorm.DB, id uint) error

	// Statistics
	GetStats(ctx context.Context, tx *gorm.DB, id uint) (*PatientStats, error)

	// NextPatientID allocates the next sequential patient code
	NextPatientID(ctx context.Context, tx *gorm.DB) (string, error)
}

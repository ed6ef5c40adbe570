package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
)

// MedicationRepository interface for prescriptions and administration logs
type MedicationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, med *models.Medication) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Medication, error)
	Update(ctx context.Context, tx *gorm.DB, med *models.Medication) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint, activeOnly bool) ([]*models.Medication, error)

	// Administration logs
	CreateLog(ctx context.Context, tx *gorm.DB, log *models.MedicationLog) error
	GetLogs(ctx context.Context, tx *gorm.DB, medicationID uint, from, to *time.Time) ([]*models.MedicationLog, error)

	// AdherenceRate reports taken/total over the window, 1.0 when no logs exist
	AdherenceRate(ctx context.Context, tx *gorm.DB, patientID uint, since time.Time) (float64, error)
	CountActiveByPatient(ctx context.Context, tx *gorm.DB, patientID uint) (int64, error)
}

// CarePlanRepository interface for care plans and their tasks
type CarePlanRepository interface {
	Create(ctx context.Context, tx *gorm.DB, plan *models.CarePlan) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CarePlan, error)
	Update(ctx context.Context, tx *gorm.DB, plan *models.CarePlan) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.CarePlan, error)

	// Task operations
	CreateTask(ctx context.Context, tx *gorm.DB, task *models.CarePlanTask) error
	GetTaskByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CarePlanTask, error)
	UpdateTask(ctx context.Context, tx *gorm.DB, task *models.CarePlanTask) error
	DeleteTask(ctx context.Context, tx *gorm.DB, id uint) error
}

// ContactRepository interface for emergency contacts
type ContactRepository interface {
	Create(ctx context.Context, tx *gorm.DB, contact *models.EmergencyContact) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.EmergencyContact, error)
	Update(ctx context.Context, tx *gorm.DB, contact *models.EmergencyContact) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// GetByPatient returns contacts ordered by priority
	GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.EmergencyContact, error)
}

// AlertRepository interface for emergency alerts
type AlertRepository interface {
	Create(ctx context.Context, tx *gorm.DB, alert *models.EmergencyAlert) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.EmergencyAlert, error)
	Update(ctx context.Context, tx *gorm.DB, alert *models.EmergencyAlert) error
	List(ctx context.Context, tx *gorm.DB, filters AlertFilters) ([]*models.EmergencyAlert, int64, error)
	GetActiveByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.EmergencyAlert, error)
	CountActive(ctx context.Context, tx *gorm.DB) (int64, error)

	// ResolveStale closes active alerts older than the cutoff, returning how many
	ResolveStale(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

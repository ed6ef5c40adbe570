package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
)

// PredictionRepository interface for risk prediction results and batch jobs
type PredictionRepository interface {
	// Result operations
	CreateResult(ctx context.Context, tx *gorm.DB, result *models.PredictionResult) error
	GetLatestByPatient(ctx context.Context, tx *gorm.DB, patientID uint) (*models.PredictionResult, error)
	GetHistoryByPatient(ctx context.Context, tx *gorm.DB, patientID uint, limit int) ([]*models.PredictionResult, error)

	// Job bookkeeping
	CreateJob(ctx context.Context, tx *gorm.DB, job *models.PredictionJob) error
	UpdateJob(ctx context.Context, tx *gorm.DB, job *models.PredictionJob) error
	GetJobByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PredictionJob, error)
	GetLatestJob(ctx context.Context, tx *gorm.DB) (*models.PredictionJob, error)
	ListJobs(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.PredictionJob, int64, error)
}

package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
)

// TrainingRepository interface for training modules and caregiver progress
type TrainingRepository interface {
	// Module operations
	CreateModule(ctx context.Context, tx *gorm.DB, module *models.TrainingModule) error
	GetModuleByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TrainingModule, error)
	UpdateModule(ctx context.Context, tx *gorm.DB, module *models.TrainingModule) error
	DeleteModule(ctx context.Context, tx *gorm.DB, id uint) error
	ListModules(ctx context.Context, tx *gorm.DB, publishedOnly bool, limit, offset int) ([]*models.TrainingModule, int64, error)

	// Progress operations
	GetProgress(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.TrainingProgress, error)
	UpsertProgress(ctx context.Context, tx *gorm.DB, progress *models.TrainingProgress) error
	GetUserProgress(ctx context.Context, tx *gorm.DB, userID uint) ([]*models.TrainingProgress, error)
	CountCompleted(ctx context.Context, tx *gorm.DB, userID uint) (int64, error)

	// Aggregation for the admin dashboard
	GetCompletionStats(ctx context.Context, tx *gorm.DB) ([]*ModuleCompletionStats, error)
}

// ModuleCompletionStats aggregates learner progress for one module.
type ModuleCompletionStats struct {
	ModuleID     uint    `json:"module_id"`
	Title        string  `json:"title"`
	Started      int64   `json:"started"`
	Completed    int64   `json:"completed"`
	AvgPercent   float64 `json:"avg_percent"`
	AvgQuizScore float64 `json:"avg_quiz_score"`
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

type TrainingPostgreSQL struct {
	db *gorm.DB
}

func NewTrainingPostgreSQL(db *gorm.DB) repositories.TrainingRepository {
	return &TrainingPostgreSQL{db: db}
}

func (t *TrainingPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

func (t *TrainingPostgreSQL) CreateModule(ctx context.Context, tx *gorm.DB, module *models.TrainingModule) error {
	if err := t.getDB(tx).WithContext(ctx).Create(module).Error; err != nil {
		return fmt.Errorf("failed to create training module: %w", err)
	}
	return nil
}

func (t *TrainingPostgreSQL) GetModuleByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TrainingModule, error) {
	var module models.TrainingModule
	if err := t.getDB(tx).WithContext(ctx).First(&module, id).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

func (t *TrainingPostgreSQL) UpdateModule(ctx context.Context, tx *gorm.DB, module *models.TrainingModule) error {
	if err := t.getDB(tx).WithContext(ctx).Save(module).Error; err != nil {
		return fmt.Errorf("failed to update training module: %w", err)
	}
	return nil
}

func (t *TrainingPostgreSQL) DeleteModule(ctx context.Context, tx *gorm.DB, id uint) error {
	result := t.getDB(tx).WithContext(ctx).Delete(&models.TrainingModule{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete training module: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *TrainingPostgreSQL) ListModules(ctx context.Context, tx *gorm.DB, publishedOnly bool, limit, offset int) ([]*models.TrainingModule, int64, error) {
	var modules []*models.TrainingModule
	var total int64

	query := t.getDB(tx).WithContext(ctx).Model(&models.TrainingModule{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count modules: %w", err)
	}

	query = query.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&modules).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, total, nil
}

// GetProgress returns the progress row for one user and module, nil when absent
func (t *TrainingPostgreSQL) GetProgress(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.TrainingProgress, error) {
	var progress models.TrainingProgress
	err := t.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &progress, nil
}

// UpsertProgress inserts or updates the unique user/module progress row
func (t *TrainingPostgreSQL) UpsertProgress(ctx context.Context, tx *gorm.DB, progress *models.TrainingProgress) error {
	err := t.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"percent", "quiz_score", "completed_at", "updated_at"}),
		}).
		Create(progress).Error
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

func (t *TrainingPostgreSQL) GetUserProgress(ctx context.Context, tx *gorm.DB, userID uint) ([]*models.TrainingProgress, error) {
	var progress []*models.TrainingProgress
	err := t.getDB(tx).WithContext(ctx).
		Preload("Module").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&progress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return progress, nil
}

func (t *TrainingPostgreSQL) CountCompleted(ctx context.Context, tx *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := t.getDB(tx).WithContext(ctx).
		Model(&models.TrainingProgress{}).
		Where("user_id = ? AND percent >= 100", userID).
		Count(&count).Error
	return count, err
}

// GetCompletionStats aggregates learner progress per module
func (t *TrainingPostgreSQL) GetCompletionStats(ctx context.Context, tx *gorm.DB) ([]*repositories.ModuleCompletionStats, error) {
	var stats []*repositories.ModuleCompletionStats
	err := t.getDB(tx).WithContext(ctx).
		Model(&models.TrainingModule{}).
		Select(`training_modules.id AS module_id,
			training_modules.title AS title,
			COUNT(training_progress.id) AS started,
			COALESCE(SUM(CASE WHEN training_progress.percent >= 100 THEN 1 ELSE 0 END), 0) AS completed,
			COALESCE(AVG(training_progress.percent), 0) AS avg_percent,
			COALESCE(AVG(training_progress.quiz_score), 0) AS avg_quiz_score`).
		Joins("LEFT JOIN training_progress ON training_progress.module_id = training_modules.id").
		Group("training_modules.id, training_modules.title").
		Order("training_modules.id").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate completion stats: %w", err)
	}
	return stats, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

type PredictionPostgreSQL struct {
	db *gorm.DB
}

func NewPredictionPostgreSQL(db *gorm.DB) repositories.PredictionRepository {
	return &PredictionPostgreSQL{db: db}
}

func (p *PredictionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

func (p *PredictionPostgreSQL) CreateResult(ctx context.Context, tx *gorm.DB, result *models.PredictionResult) error {
	if err := p.getDB(tx).WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to create prediction result: %w", err)
	}
	return nil
}

// GetLatestByPatient returns the newest result, nil when the patient has none
func (p *PredictionPostgreSQL) GetLatestByPatient(ctx context.Context, tx *gorm.DB, patientID uint) (*models.PredictionResult, error) {
	var result models.PredictionResult
	err := p.getDB(tx).WithContext(ctx).
		Where("patient_ref = ?", patientID).
		Order("computed_at DESC").
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest prediction: %w", err)
	}
	return &result, nil
}

func (p *PredictionPostgreSQL) GetHistoryByPatient(ctx context.Context, tx *gorm.DB, patientID uint, limit int) ([]*models.PredictionResult, error) {
	var results []*models.PredictionResult
	query := p.getDB(tx).WithContext(ctx).
		Where("patient_ref = ?", patientID).
		Order("computed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get prediction history: %w", err)
	}
	return results, nil
}

func (p *PredictionPostgreSQL) CreateJob(ctx context.Context, tx *gorm.DB, job *models.PredictionJob) error {
	if err := p.getDB(tx).WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create prediction job: %w", err)
	}
	return nil
}

func (p *PredictionPostgreSQL) UpdateJob(ctx context.Context, tx *gorm.DB, job *models.PredictionJob) error {
	if err := p.getDB(tx).WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("failed to update prediction job: %w", err)
	}
	return nil
}

func (p *PredictionPostgreSQL) GetJobByID(ctx context.Context, tx *gorm.DB, id uint) (*models.PredictionJob, error) {
	var job models.PredictionJob
	if err := p.getDB(tx).WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// GetLatestJob returns the most recent job, nil when none has run yet
func (p *PredictionPostgreSQL) GetLatestJob(ctx context.Context, tx *gorm.DB) (*models.PredictionJob, error) {
	var job models.PredictionJob
	err := p.getDB(tx).WithContext(ctx).
		Order("started_at DESC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest job: %w", err)
	}
	return &job, nil
}

func (p *PredictionPostgreSQL) ListJobs(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.PredictionJob, int64, error) {
	var jobs []*models.PredictionJob
	var total int64

	query := p.getDB(tx).WithContext(ctx).Model(&models.PredictionJob{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	query = query.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, total, nil
}

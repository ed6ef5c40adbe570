package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type trainingService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTrainingService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) TrainingService {
	return &trainingService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== MODULE MANAGEMENT =====

func (s *trainingService) CreateModule(ctx context.Context, req *CreateModuleRequest, adminID uint) (*models.TrainingModule, error) {
	s.logger.Info("Creating training module", "title", req.Title, "admin_id", adminID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	module := &models.TrainingModule{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Difficulty:      req.Difficulty,
		DurationMinutes: req.DurationMinutes,
		ContentURL:      req.ContentURL,
		VideoURL:        req.VideoURL,
		QuizQuestions:   quizJSON(req.QuizQuestions),
		IsPublished:     true,
		CreatedBy:       adminID,
	}

	if err := s.repo.Training().CreateModule(ctx, s.db, module); err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	return module, nil
}

func (s *trainingService) GetModule(ctx context.Context, id uint) (*models.TrainingModule, error) {
	module, err := s.repo.Training().GetModuleByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	return module, nil
}

func (s *trainingService) UpdateModule(ctx context.Context, id uint, req *CreateModuleRequest, adminID uint) (*models.TrainingModule, error) {
	s.logger.Info("Updating training module", "module_id", id, "admin_id", adminID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	module, err := s.GetModule(ctx, id)
	if err != nil {
		return nil, err
	}

	module.Title = req.Title
	module.Description = req.Description
	module.Category = req.Category
	module.Difficulty = req.Difficulty
	module.DurationMinutes = req.DurationMinutes
	module.ContentURL = req.ContentURL
	module.VideoURL = req.VideoURL
	if req.QuizQuestions != nil {
		module.QuizQuestions = quizJSON(req.QuizQuestions)
	}

	if err := s.repo.Training().UpdateModule(ctx, s.db, module); err != nil {
		return nil, fmt.Errorf("failed to update module: %w", err)
	}
	return module, nil
}

func (s *trainingService) DeleteModule(ctx context.Context, id uint, adminID uint) error {
	s.logger.Info("Deleting training module", "module_id", id, "admin_id", adminID)

	if _, err := s.GetModule(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Training().DeleteModule(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	return nil
}

func (s *trainingService) ListModules(ctx context.Context, includeUnpublished bool, limit, offset int) (*ModuleListResponse, error) {
	modules, total, err := s.repo.Training().ListModules(ctx, s.db, !includeUnpublished, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return &ModuleListResponse{Modules: modules, Total: total}, nil
}

// ===== PROGRESS TRACKING =====

// UpdateProgress records a user's progress through a module. Progress is
// monotonic, a lower percentage than already recorded is rejected.
func (s *trainingService) UpdateProgress(ctx context.Context, moduleID uint, req *UpdateProgressRequest, userID uint) (*ProgressResponse, error) {
	module, err := s.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Training().GetProgress(ctx, s.db, userID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	if errors := s.validator.GetBusinessValidator().ValidateProgressUpdate(req, existing); len(errors) > 0 {
		return nil, errors
	}

	progress := existing
	if progress == nil {
		progress = &models.TrainingProgress{
			UserID:    userID,
			ModuleID:  module.ID,
			StartedAt: time.Now().UTC(),
		}
	}

	progress.Percent = req.Percent
	if progress.Percent >= 100 && progress.CompletedAt == nil {
		now := time.Now().UTC()
		progress.CompletedAt = &now
		s.logger.Info("Training module completed", "user_id", userID, "module_id", moduleID)
	}

	if err := s.repo.Training().UpsertProgress(ctx, s.db, progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	return &ProgressResponse{
		TrainingProgress: progress,
		Completed:        progress.IsCompleted(),
	}, nil
}

// SubmitQuiz records a quiz score for a module the user has worked
// through. The best score is kept.
func (s *trainingService) SubmitQuiz(ctx context.Context, moduleID uint, req *SubmitQuizRequest, userID uint) (*ProgressResponse, error) {
	module, err := s.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if len(module.QuizQuestions) == 0 {
		return nil, NewBusinessRuleError("no_quiz", "module has no quiz")
	}

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	progress, err := s.repo.Training().GetProgress(ctx, s.db, userID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	if progress == nil {
		progress = &models.TrainingProgress{
			UserID:    userID,
			ModuleID:  module.ID,
			StartedAt: time.Now().UTC(),
		}
	}

	if progress.QuizScore == nil || req.Score > *progress.QuizScore {
		score := req.Score
		progress.QuizScore = &score
	}

	if err := s.repo.Training().UpsertProgress(ctx, s.db, progress); err != nil {
		return nil, fmt.Errorf("failed to save quiz score: %w", err)
	}

	s.logger.Info("Quiz submitted", "user_id", userID, "module_id", moduleID, "score", req.Score)
	return &ProgressResponse{
		TrainingProgress: progress,
		Completed:        progress.IsCompleted(),
	}, nil
}

func (s *trainingService) GetUserProgress(ctx context.Context, userID uint) ([]*models.TrainingProgress, error) {
	progress, err := s.repo.Training().GetUserProgress(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return progress, nil
}

func (s *trainingService) GetCompletionStats(ctx context.Context) ([]*repositories.ModuleCompletionStats, error) {
	stats, err := s.repo.Training().GetCompletionStats(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to get completion stats: %w", err)
	}
	return stats, nil
}

// quizJSON encodes the quiz question list for the JSON column.
func quizJSON(questions []validator.QuizQuestionRequest) datatypes.JSON {
	if len(questions) == 0 {
		return nil
	}
	encoded, _ := json.Marshal(questions)
	return datatypes.JSON(encoded)
}

package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

func newTrainingService(env *testEnv) TrainingService {
	return NewTrainingService(env.repo, env.db, env.logger, env.validator)
}

func createModule(t *testing.T, svc TrainingService, adminID uint, title string) *models.TrainingModule {
	t.Helper()
	module, err := svc.CreateModule(context.Background(), &CreateModuleRequest{
		Title:           title,
		Description:     "Recognizing tonic-clonic seizures and first response",
		Category:        "first-aid",
		Difficulty:      "beginner",
		DurationMinutes: 25,
	}, adminID)
	require.NoError(t, err)
	return module
}

func TestTrainingService_ModuleCRUD(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	module := createModule(t, svc, admin.ID, "Seizure first aid")

	assert.True(t, module.IsPublished)
	assert.Equal(t, admin.ID, module.CreatedBy)

	updated, err := svc.UpdateModule(ctx, module.ID, &CreateModuleRequest{
		Title:           "Seizure first aid, revised",
		Difficulty:      "intermediate",
		DurationMinutes: 40,
	}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Seizure first aid, revised", updated.Title)
	assert.Equal(t, 40, updated.DurationMinutes)

	require.NoError(t, svc.DeleteModule(ctx, module.ID, admin.ID))

	_, err = svc.GetModule(ctx, module.ID)
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestTrainingService_CreateModule_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)

	admin := env.createUser(t, "admin", models.RoleAdmin)

	_, err := svc.CreateModule(context.Background(), &CreateModuleRequest{
		Title:      "ok",
		Difficulty: "expert",
	}, admin.ID)

	var validationErrors ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestTrainingService_ListModules_PublishedFilter(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	createModule(t, svc, admin.ID, "Seizure first aid")
	draft := createModule(t, svc, admin.ID, "Medication schedules")

	draft.IsPublished = false
	require.NoError(t, env.repo.Training().UpdateModule(ctx, nil, draft))

	published, err := svc.ListModules(ctx, false, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), published.Total)

	all, err := svc.ListModules(ctx, true, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
}

func TestTrainingService_UpdateProgress_Monotonic(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	module := createModule(t, svc, admin.ID, "Seizure first aid")

	progress, err := svc.UpdateProgress(ctx, module.ID, &UpdateProgressRequest{Percent: 40}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, progress.Percent)
	assert.False(t, progress.Completed)
	assert.False(t, progress.StartedAt.IsZero())

	// Moving backwards is rejected
	_, err = svc.UpdateProgress(ctx, module.ID, &UpdateProgressRequest{Percent: 20}, caregiver.ID)
	var validationErrors ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
	assert.Equal(t, "percent", validationErrors[0].Field)

	// Reporting the same percentage again is a no-op, not an error
	progress, err = svc.UpdateProgress(ctx, module.ID, &UpdateProgressRequest{Percent: 40}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, progress.Percent)
}

func TestTrainingService_UpdateProgress_Completion(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	module := createModule(t, svc, admin.ID, "Seizure first aid")

	progress, err := svc.UpdateProgress(ctx, module.ID, &UpdateProgressRequest{Percent: 100}, caregiver.ID)
	require.NoError(t, err)
	assert.True(t, progress.Completed)
	require.NotNil(t, progress.CompletedAt)
	firstCompletion := *progress.CompletedAt

	// Re-reporting completion keeps the original completion timestamp
	progress, err = svc.UpdateProgress(ctx, module.ID, &UpdateProgressRequest{Percent: 100}, caregiver.ID)
	require.NoError(t, err)
	require.NotNil(t, progress.CompletedAt)
	assert.Equal(t, firstCompletion.Unix(), progress.CompletedAt.Unix())
}

func createQuizModule(t *testing.T, svc TrainingService, adminID uint, title string) *models.TrainingModule {
	t.Helper()
	module, err := svc.CreateModule(context.Background(), &CreateModuleRequest{
		Title:           title,
		Category:        "first-aid",
		Difficulty:      "beginner",
		DurationMinutes: 15,
		VideoURL:        "https://videos.example.com/first-aid.mp4",
		QuizQuestions: []QuizQuestionRequest{
			{
				Question:      "What should you do first when a seizure starts?",
				Options:       []string{"Restrain the person", "Clear the area and time the seizure"},
				CorrectOption: 1,
			},
			{
				Question:      "When should you call emergency services?",
				Options:       []string{"Always", "After 5 minutes of continuous seizing"},
				CorrectOption: 1,
			},
		},
	}, adminID)
	require.NoError(t, err)
	return module
}

func TestTrainingService_CreateModule_WithQuiz(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	module := createQuizModule(t, svc, admin.ID, "Seizure first aid")

	assert.Equal(t, "https://videos.example.com/first-aid.mp4", module.VideoURL)

	stored, err := svc.GetModule(ctx, module.ID)
	require.NoError(t, err)

	var questions []QuizQuestionRequest
	require.NoError(t, json.Unmarshal(stored.QuizQuestions, &questions))
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].CorrectOption)
	assert.Len(t, questions[0].Options, 2)
}

func TestTrainingService_SubmitQuiz(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	module := createQuizModule(t, svc, admin.ID, "Seizure first aid")

	progress, err := svc.SubmitQuiz(ctx, module.ID, &SubmitQuizRequest{Score: 60}, caregiver.ID)
	require.NoError(t, err)
	require.NotNil(t, progress.QuizScore)
	assert.Equal(t, 60, *progress.QuizScore)

	// A better score replaces the old one
	progress, err = svc.SubmitQuiz(ctx, module.ID, &SubmitQuizRequest{Score: 85}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, 85, *progress.QuizScore)

	// A worse retake keeps the best score
	progress, err = svc.SubmitQuiz(ctx, module.ID, &SubmitQuizRequest{Score: 40}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, 85, *progress.QuizScore)
}

func TestTrainingService_SubmitQuiz_NoQuiz(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)

	admin := env.createUser(t, "admin", models.RoleAdmin)
	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	module := createModule(t, svc, admin.ID, "Seizure first aid")

	_, err := svc.SubmitQuiz(context.Background(), module.ID, &SubmitQuizRequest{Score: 90}, caregiver.ID)
	var businessRuleError *BusinessRuleError
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "no_quiz", businessRuleError.Rule)
}

func TestTrainingService_GetCompletionStats(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	first := env.createUser(t, "caregiver1", models.RoleCaregiver)
	second := env.createUser(t, "caregiver2", models.RoleCaregiver)
	module := createQuizModule(t, svc, admin.ID, "Seizure first aid")
	untouched := createModule(t, svc, admin.ID, "Medication schedules")

	_, err := svc.UpdateProgress(ctx, module.ID, &UpdateProgressRequest{Percent: 100}, first.ID)
	require.NoError(t, err)
	_, err = svc.UpdateProgress(ctx, module.ID, &UpdateProgressRequest{Percent: 50}, second.ID)
	require.NoError(t, err)
	_, err = svc.SubmitQuiz(ctx, module.ID, &SubmitQuizRequest{Score: 80}, first.ID)
	require.NoError(t, err)

	stats, err := svc.GetCompletionStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byModule := make(map[uint]*repositories.ModuleCompletionStats, len(stats))
	for _, s := range stats {
		byModule[s.ModuleID] = s
	}

	quizStats := byModule[module.ID]
	require.NotNil(t, quizStats)
	assert.Equal(t, int64(2), quizStats.Started)
	assert.Equal(t, int64(1), quizStats.Completed)
	assert.InDelta(t, 75.0, quizStats.AvgPercent, 0.01)

	idle := byModule[untouched.ID]
	require.NotNil(t, idle)
	assert.Equal(t, int64(0), idle.Started)
	assert.Equal(t, int64(0), idle.Completed)
}

func TestTrainingService_GetUserProgress(t *testing.T) {
	env := newTestEnv(t)
	svc := newTrainingService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	first := createModule(t, svc, admin.ID, "Seizure first aid")
	second := createModule(t, svc, admin.ID, "Medication schedules")

	_, err := svc.UpdateProgress(ctx, first.ID, &UpdateProgressRequest{Percent: 60}, caregiver.ID)
	require.NoError(t, err)
	_, err = svc.UpdateProgress(ctx, second.ID, &UpdateProgressRequest{Percent: 10}, caregiver.ID)
	require.NoError(t, err)

	progress, err := svc.GetUserProgress(ctx, caregiver.ID)
	require.NoError(t, err)
	assert.Len(t, progress, 2)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/safestep-care/safestep-service/internal/events"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

func newPredictionService(env *testEnv) PredictionService {
	return NewPredictionService(env.repo, env.db, env.logger, env.validator, env.patientService(), env.publisher)
}

func TestStatusForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  models.RiskStatus
	}{
		{0, models.RiskLow},
		{24.9, models.RiskLow},
		{25, models.RiskMedium},
		{49.9, models.RiskMedium},
		{50, models.RiskHigh},
		{74.9, models.RiskHigh},
		{75, models.RiskCritical},
		{100, models.RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForScore(tt.score), "score %.1f", tt.score)
	}
}

func TestConfidenceForScore_Bounds(t *testing.T) {
	for _, score := range []float64{0, 12.5, 25, 37.5, 50, 62.5, 75, 100} {
		c := confidenceForScore(score)
		assert.GreaterOrEqual(t, c, 0.6, "score %.1f", score)
		assert.LessOrEqual(t, c, 1.0, "score %.1f", score)
	}

	// On a boundary the score is maximally ambiguous
	assert.Equal(t, 0.6, confidenceForScore(riskHighThreshold))
	assert.Equal(t, 1.0, confidenceForScore(0))
}

func TestScoreRisk_Deterministic(t *testing.T) {
	patient := &models.PatientProfile{
		EpilepsyType:       models.EpilepsyGeneralized,
		SeizureFrequency:   models.FrequencyWeekly,
		RecentSeizureCount: 4,
		MedicationRegimen:  datatypes.JSON(`["levetiracetam","lamotrigine","valproate"]`),
	}
	stats := &repositories.PatientStats{
		IncidentCount30d: 5,
		SeizureCount30d:  4,
		AdherenceRate:    0.9,
	}

	first := scoreRisk(patient, stats)
	second := scoreRisk(patient, stats)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Features, second.Features)
}

func TestScoreRisk_FactorsAndRecommendations(t *testing.T) {
	patient := &models.PatientProfile{
		EpilepsyType:        models.EpilepsyCombined,
		SeizureFrequency:    models.FrequencyDaily,
		RecentSeizureCount:  6,
		AverageResponseTime: 20,
		HFOBurden:           80,
		MedicationRegimen:   datatypes.JSON(`["levetiracetam","lamotrigine","valproate"]`),
	}
	stats := &repositories.PatientStats{
		HighSeverityCount30d: 2,
		ActiveMedications:    3,
		AdherenceRate:        0.5,
	}

	assessment := scoreRisk(patient, stats)

	assert.Contains(t, assessment.Factors, "High seizure frequency")
	assert.Contains(t, assessment.Factors, "Complex medication regimen")
	assert.Contains(t, assessment.Factors, "Slow emergency response times")
	assert.Contains(t, assessment.Factors, "Poor medication adherence")
	assert.Contains(t, assessment.Factors, "Elevated HFO burden")

	assert.True(t, assessment.Status == models.RiskHigh || assessment.Status == models.RiskCritical)
	assert.Contains(t, assessment.Recommendations, "Increase monitoring frequency")
	assert.Contains(t, assessment.Recommendations, "Adjust medication dosage")
}

func TestScoreRisk_QuietPatient(t *testing.T) {
	patient := &models.PatientProfile{
		EpilepsyType:     models.EpilepsyFocal,
		SeizureFrequency: models.FrequencyRare,
	}
	stats := &repositories.PatientStats{AdherenceRate: 1.0}

	assessment := scoreRisk(patient, stats)

	assert.Equal(t, models.RiskLow, assessment.Status)
	assert.Empty(t, assessment.Factors)
	assert.Equal(t, []string{"Continue current care plan"}, assessment.Recommendations)
}

func TestPredictionService_Predict(t *testing.T) {
	env := newTestEnv(t)
	svc := newPredictionService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	assessment, err := svc.Predict(ctx, patient.ID, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, assessment.PatientRef)
	assert.GreaterOrEqual(t, assessment.Score, 0.0)
	assert.LessOrEqual(t, assessment.Score, 100.0)

	// The denormalized risk fields on the patient follow the assessment
	updated, err := env.repo.Patient().GetByID(ctx, nil, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.Status, updated.RiskStatus)
	assert.Equal(t, assessment.Score, updated.RiskScore)

	history, err := svc.GetHistory(ctx, patient.ID, 10, caregiver.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].JobID)
}

func TestPredictionService_Predict_DeniedForOtherCaregiver(t *testing.T) {
	env := newTestEnv(t)
	svc := newPredictionService(env)

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	other := env.createUser(t, "other", models.RoleCaregiver)
	patient := env.createPatient(t, owner.ID)

	_, err := svc.Predict(context.Background(), patient.ID, other.ID)
	var permissionError *PermissionError
	assert.ErrorAs(t, err, &permissionError)
}

func TestPredictionService_GetLatest_ComputesOnDemand(t *testing.T) {
	env := newTestEnv(t)
	svc := newPredictionService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	assessment, err := svc.GetLatest(ctx, patient.ID, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, assessment.PatientRef)

	// A second call serves the stored result instead of recomputing
	again, err := svc.GetLatest(ctx, patient.ID, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.Score, again.Score)
	assert.Equal(t, assessment.Status, again.Status)
	assert.Equal(t, assessment.Confidence, again.Confidence)
	assert.Equal(t, assessment.Factors, again.Factors)
	assert.Equal(t, assessment.Recommendations, again.Recommendations)
	assert.Equal(t, assessment.Features, again.Features)

	history, err := svc.GetHistory(ctx, patient.ID, 10, caregiver.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestPredictionService_RunAnalysis(t *testing.T) {
	env := newTestEnv(t)
	svc := newPredictionService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)

	// Previously flagged High but now quiet, so this run reduces it.
	calm := env.createPatient(t, caregiver.ID)
	calm.RiskStatus = models.RiskHigh
	require.NoError(t, env.repo.Patient().Update(ctx, nil, calm))

	risky := env.createPatient(t, caregiver.ID)
	risky.EpilepsyType = models.EpilepsyCombined
	risky.SeizureFrequency = models.FrequencyDaily
	risky.RecentSeizureCount = 8
	risky.ElectrodeImplant = true
	require.NoError(t, env.repo.Patient().Update(ctx, nil, risky))

	result, err := svc.RunAnalysis(ctx, "manual")
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, result.Job.Status)
	assert.Equal(t, 2, result.Job.PatientsTotal)
	assert.Equal(t, 2, result.Job.PatientsProcessed)
	assert.Equal(t, 0, result.Job.PatientsFailed)
	assert.Equal(t, 1, result.Job.HighRiskCount)
	assert.Equal(t, 1, result.Job.RiskEscalations)
	assert.Equal(t, 1, result.Job.RiskReductions)
	assert.Equal(t, []uint{risky.ID}, result.HighRisk)
	require.NotNil(t, result.Job.FinishedAt)

	updated, err := env.repo.Patient().GetByID(ctx, nil, calm.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiskLow, updated.RiskStatus)

	var types []string
	for _, event := range env.publisher.GetPublishedEvents() {
		types = append(types, event.Type)
	}
	assert.Contains(t, types, events.EventHighRiskDetected)
	assert.Contains(t, types, events.EventPredictionCompleted)

	job, err := svc.GetJob(ctx, result.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	jobs, total, err := svc.ListJobs(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, jobs, 1)
}

func TestPredictionService_RunAnalysis_RejectsConcurrentRun(t *testing.T) {
	env := newTestEnv(t)
	svc := newPredictionService(env)
	ctx := context.Background()

	running := &models.PredictionJob{
		Status:      models.JobStatusRunning,
		TriggeredBy: "schedule",
		StartedAt:   time.Now().UTC(),
	}
	require.NoError(t, env.repo.Prediction().CreateJob(ctx, nil, running))

	_, err := svc.RunAnalysis(ctx, "manual")
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/events"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

// Risk band thresholds on the 0-100 score scale.
const (
	riskMediumThreshold   = 25.0
	riskHighThreshold     = 50.0
	riskCriticalThreshold = 75.0
)

// Feature weights for the deterministic risk scorer. The feature set
// mirrors the tabular inputs of the original classifier: demographics,
// epilepsy type and seizure frequency one-hots, medication load, clinical
// monitoring signals and 30-day incident aggregates.
var riskWeights = map[string]float64{
	"age":                    0.08,
	"gender_male":            1.5,
	"epilepsy_focal":         4.0,
	"epilepsy_generalized":   7.0,
	"epilepsy_combined":      10.0,
	"freq_daily":             20.0,
	"freq_weekly":            12.0,
	"freq_monthly":           6.0,
	"freq_rare":              2.0,
	"medication_count":       1.5,
	"recent_seizure_count":   4.0,
	"avg_response_minutes":   0.4,
	"hfo_burden":             0.25,
	"electrode_implant":      3.0,
	"incidents_30d":          2.0,
	"seizures_30d":           3.0,
	"high_severity_30d":      6.0,
	"avg_seizure_duration_m": 1.2,
	"active_medications":     1.0,
	"missed_dose_rate":       18.0,
}

type predictionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	patients  PatientService
	publisher events.EventPublisher
}

func NewPredictionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, patients PatientService, publisher events.EventPublisher) PredictionService {
	return &predictionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		patients:  patients,
		publisher: publisher,
	}
}

// ===== SINGLE-PATIENT PREDICTION =====

func (s *predictionService) Predict(ctx context.Context, patientID uint, userID uint) (*RiskAssessment, error) {
	canAccess, err := s.patients.CanAccess(ctx, patientID, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, patientID, "prediction", "compute", "not the assigned caregiver")
	}

	return s.computeAndStore(ctx, patientID, nil)
}

func (s *predictionService) GetLatest(ctx context.Context, patientID uint, userID uint) (*RiskAssessment, error) {
	canAccess, err := s.patients.CanAccess(ctx, patientID, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, patientID, "prediction", "read", "not the assigned caregiver")
	}

	result, err := s.repo.Prediction().GetLatestByPatient(ctx, s.db, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest prediction: %w", err)
	}
	if result == nil {
		// No stored result yet, compute one on demand.
		return s.computeAndStore(ctx, patientID, nil)
	}

	return assessmentFromResult(result), nil
}

func (s *predictionService) GetHistory(ctx context.Context, patientID uint, limit int, userID uint) ([]*models.PredictionResult, error) {
	canAccess, err := s.patients.CanAccess(ctx, patientID, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, patientID, "prediction", "read", "not the assigned caregiver")
	}

	if limit <= 0 {
		limit = 20
	}
	results, err := s.repo.Prediction().GetHistoryByPatient(ctx, s.db, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction history: %w", err)
	}
	return results, nil
}

// ===== BATCH ANALYSIS =====

// RunAnalysis scores every patient, writes results, updates the
// denormalized risk fields and tracks the run in a PredictionJob row.
// Only one run may be active at a time.
func (s *predictionService) RunAnalysis(ctx context.Context, triggeredBy string) (*AnalysisRunResult, error) {
	latest, err := s.repo.Prediction().GetLatestJob(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to check latest job: %w", err)
	}
	if latest != nil && latest.Status == models.JobStatusRunning {
		return nil, ErrJobAlreadyRunning
	}

	started := time.Now().UTC()
	job := &models.PredictionJob{
		Status:      models.JobStatusRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   started,
	}
	if err := s.repo.Prediction().CreateJob(ctx, s.db, job); err != nil {
		return nil, fmt.Errorf("failed to create prediction job: %w", err)
	}

	s.logger.Info("Starting risk analysis run", "job_id", job.ID, "triggered_by", triggeredBy)

	patients, err := s.repo.Patient().ListAll(ctx, s.db)
	if err != nil {
		s.failJob(ctx, job, err)
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	job.PatientsTotal = len(patients)

	var highRisk []uint
	for _, patient := range patients {
		previous := patient.RiskStatus
		assessment, err := s.computeAndStore(ctx, patient.ID, &job.ID)
		if err != nil {
			s.logger.Error("Failed to score patient", "job_id", job.ID,
				"patient_id", patient.ID, "error", err)
			job.PatientsFailed++
			continue
		}
		job.PatientsProcessed++

		switch {
		case riskRank(assessment.Status) > riskRank(previous):
			job.RiskEscalations++
		case riskRank(assessment.Status) < riskRank(previous):
			job.RiskReductions++
		}

		if assessment.Status == models.RiskHigh || assessment.Status == models.RiskCritical {
			job.HighRiskCount++
			highRisk = append(highRisk, patient.ID)
			s.publishHighRisk(ctx, patient, assessment)
		}
	}

	finished := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.FinishedAt = &finished
	if err := s.repo.Prediction().UpdateJob(ctx, s.db, job); err != nil {
		return nil, fmt.Errorf("failed to finalize prediction job: %w", err)
	}

	s.publishCompleted(ctx, job)

	duration := finished.Sub(started)
	s.logger.Info("Risk analysis run completed", "job_id", job.ID,
		"processed", job.PatientsProcessed, "failed", job.PatientsFailed,
		"high_risk", job.HighRiskCount, "duration", duration)

	return &AnalysisRunResult{
		Job:        job,
		HighRisk:   highRisk,
		DurationMS: duration.Milliseconds(),
	}, nil
}

func (s *predictionService) GetJob(ctx context.Context, id uint) (*models.PredictionJob, error) {
	job, err := s.repo.Prediction().GetJobByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *predictionService) ListJobs(ctx context.Context, limit, offset int) ([]*models.PredictionJob, int64, error) {
	jobs, total, err := s.repo.Prediction().ListJobs(ctx, s.db, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, total, nil
}

// ===== SCORING =====

func (s *predictionService) computeAndStore(ctx context.Context, patientID uint, jobID *uint) (*RiskAssessment, error) {
	patient, err := s.repo.Patient().GetByID(ctx, s.db, patientID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	stats, err := s.repo.Patient().GetStats(ctx, s.db, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient stats: %w", err)
	}

	assessment := scoreRisk(patient, stats)

	featuresJSON, _ := json.Marshal(assessment.Features)
	factorsJSON, _ := json.Marshal(assessment.Factors)
	recommendationsJSON, _ := json.Marshal(assessment.Recommendations)

	result := &models.PredictionResult{
		PatientRef:      patientID,
		Score:           assessment.Score,
		Status:          string(assessment.Status),
		Confidence:      assessment.Confidence,
		Features:        datatypes.JSON(featuresJSON),
		Factors:         datatypes.JSON(factorsJSON),
		Recommendations: datatypes.JSON(recommendationsJSON),
		JobID:           jobID,
		ComputedAt:      assessment.ComputedAt,
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Prediction().CreateResult(ctx, tx, result); err != nil {
			return fmt.Errorf("failed to store prediction result: %w", err)
		}
		return s.repo.Patient().UpdateRiskFields(ctx, tx, patientID, assessment.Score, assessment.Status)
	})
	if err != nil {
		return nil, err
	}

	return assessment, nil
}

// scoreRisk computes the weighted risk score, band, confidence, contributing
// factors and recommendations for one patient.
func scoreRisk(patient *models.PatientProfile, stats *repositories.PatientStats) *RiskAssessment {
	features := buildFeatures(patient, stats)

	score := 0.0
	for name, value := range features {
		score += value * riskWeights[name]
	}
	score = math.Round(clamp(score, 0, 100)*10) / 10

	status := statusForScore(score)

	return &RiskAssessment{
		PatientRef:      patient.ID,
		Score:           score,
		Status:          status,
		Confidence:      confidenceForScore(score),
		Features:        features,
		Factors:         riskFactors(patient, stats),
		Recommendations: recommendationsFor(status, score, patient, stats),
		ComputedAt:      time.Now().UTC(),
	}
}

func buildFeatures(patient *models.PatientProfile, stats *repositories.PatientStats) map[string]float64 {
	features := map[string]float64{
		"age":                    0,
		"gender_male":            0,
		"epilepsy_focal":         0,
		"epilepsy_generalized":   0,
		"epilepsy_combined":      0,
		"freq_daily":             0,
		"freq_weekly":            0,
		"freq_monthly":           0,
		"freq_rare":              0,
		"medication_count":       float64(medicationCount(patient)),
		"recent_seizure_count":   float64(patient.RecentSeizureCount),
		"avg_response_minutes":   patient.AverageResponseTime,
		"hfo_burden":             patient.HFOBurden,
		"electrode_implant":      0,
		"incidents_30d":          float64(stats.IncidentCount30d),
		"seizures_30d":           float64(stats.SeizureCount30d),
		"high_severity_30d":      float64(stats.HighSeverityCount30d),
		"avg_seizure_duration_m": stats.AvgSeizureDuration / 60,
		"active_medications":     float64(stats.ActiveMedications),
		"missed_dose_rate":       clamp(1-stats.AdherenceRate, 0, 1),
	}

	if patient.Age != nil {
		features["age"] = float64(*patient.Age)
	}
	if patient.Gender != nil && *patient.Gender == "M" {
		features["gender_male"] = 1
	}
	if patient.ElectrodeImplant {
		features["electrode_implant"] = 1
	}

	switch patient.EpilepsyType {
	case models.EpilepsyFocal:
		features["epilepsy_focal"] = 1
	case models.EpilepsyGeneralized:
		features["epilepsy_generalized"] = 1
	case models.EpilepsyCombined:
		features["epilepsy_combined"] = 1
	}

	switch patient.SeizureFrequency {
	case models.FrequencyDaily:
		features["freq_daily"] = 1
	case models.FrequencyWeekly:
		features["freq_weekly"] = 1
	case models.FrequencyMonthly:
		features["freq_monthly"] = 1
	case models.FrequencyRare:
		features["freq_rare"] = 1
	}

	return features
}

func statusForScore(score float64) models.RiskStatus {
	switch {
	case score >= riskCriticalThreshold:
		return models.RiskCritical
	case score >= riskHighThreshold:
		return models.RiskHigh
	case score >= riskMediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// confidenceForScore grows with the distance to the nearest band boundary,
// points near a threshold are genuinely ambiguous.
func confidenceForScore(score float64) float64 {
	boundaries := []float64{riskMediumThreshold, riskHighThreshold, riskCriticalThreshold}
	nearest := math.MaxFloat64
	for _, b := range boundaries {
		if d := math.Abs(score - b); d < nearest {
			nearest = d
		}
	}
	confidence := 0.6 + 0.4*clamp(nearest/12.5, 0, 1)
	return math.Round(confidence*1000) / 1000
}

func riskFactors(patient *models.PatientProfile, stats *repositories.PatientStats) []string {
	var factors []string

	if patient.SeizureFrequency == models.FrequencyDaily || patient.SeizureFrequency == models.FrequencyWeekly {
		factors = append(factors, "High seizure frequency")
	}
	if stats.HighSeverityCount30d > 0 {
		factors = append(factors, fmt.Sprintf("%d recent severe incidents", stats.HighSeverityCount30d))
	}
	if medicationCount(patient) > 2 {
		factors = append(factors, "Complex medication regimen")
	}
	if patient.AverageResponseTime > 15 {
		factors = append(factors, "Slow emergency response times")
	}
	if stats.AdherenceRate < 0.8 && stats.ActiveMedications > 0 {
		factors = append(factors, "Poor medication adherence")
	}
	if patient.HFOBurden > 50 {
		factors = append(factors, "Elevated HFO burden")
	}

	return factors
}

func recommendationsFor(status models.RiskStatus, score float64, patient *models.PatientProfile, stats *repositories.PatientStats) []string {
	var recommendations []string

	if status == models.RiskHigh || status == models.RiskCritical {
		recommendations = append(recommendations,
			"Increase monitoring frequency",
			"Review medication compliance",
			"Consider emergency response plan",
			"Schedule immediate medical consultation",
		)
	}
	if score > 70 {
		recommendations = append(recommendations, "Implement 24/7 monitoring")
	}
	if patient.AverageResponseTime > 10 {
		recommendations = append(recommendations, "Improve emergency response protocols")
	}
	if patient.RecentSeizureCount > 3 {
		recommendations = append(recommendations, "Adjust medication dosage")
	}
	if stats.AdherenceRate < 0.8 && stats.ActiveMedications > 0 {
		recommendations = append(recommendations, "Set up medication reminders")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Continue current care plan")
	}

	return recommendations
}

// medicationCount parses the JSON regimen list on the patient profile.
func medicationCount(patient *models.PatientProfile) int {
	if len(patient.MedicationRegimen) == 0 {
		return 0
	}
	var meds []string
	if err := json.Unmarshal(patient.MedicationRegimen, &meds); err != nil {
		return 0
	}
	return len(meds)
}

// assessmentFromResult rehydrates a stored prediction row into the
// assessment shape served to callers.
func assessmentFromResult(result *models.PredictionResult) *RiskAssessment {
	assessment := &RiskAssessment{
		PatientRef: result.PatientRef,
		Score:      result.Score,
		Status:     models.RiskStatus(result.Status),
		Confidence: result.Confidence,
		ComputedAt: result.ComputedAt,
	}

	if len(result.Features) > 0 {
		_ = json.Unmarshal(result.Features, &assessment.Features)
	}
	if len(result.Factors) > 0 {
		_ = json.Unmarshal(result.Factors, &assessment.Factors)
	}
	if len(result.Recommendations) > 0 {
		_ = json.Unmarshal(result.Recommendations, &assessment.Recommendations)
	}

	return assessment
}

// riskRank orders risk bands for escalation tracking.
func riskRank(status models.RiskStatus) int {
	switch status {
	case models.RiskCritical:
		return 3
	case models.RiskHigh:
		return 2
	case models.RiskMedium:
		return 1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ===== EVENTS =====

func (s *predictionService) publishHighRisk(ctx context.Context, patient *models.PatientProfile, assessment *RiskAssessment) {
	event := events.NewEvent(events.EventHighRiskDetected, events.HighRiskEvent{
		PatientID:  patient.ID,
		Score:      assessment.Score,
		RiskStatus: string(assessment.Status),
		Previous:   string(patient.RiskStatus),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish high risk event", "patient_id", patient.ID, "error", err)
	}
}

func (s *predictionService) publishCompleted(ctx context.Context, job *models.PredictionJob) {
	event := events.NewEvent(events.EventPredictionCompleted, events.PredictionEvent{
		JobID:             job.ID,
		PatientsProcessed: job.PatientsProcessed,
		PatientsFailed:    job.PatientsFailed,
		HighRiskCount:     job.HighRiskCount,
		RiskEscalations:   job.RiskEscalations,
		RiskReductions:    job.RiskReductions,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish prediction completed event", "job_id", job.ID, "error", err)
	}
}

func (s *predictionService) failJob(ctx context.Context, job *models.PredictionJob, cause error) {
	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.FinishedAt = &now
	job.Error = cause.Error()
	if err := s.repo.Prediction().UpdateJob(ctx, s.db, job); err != nil {
		s.logger.Error("Failed to mark prediction job failed", "job_id", job.ID, "error", err)
	}
}

func (s *predictionService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

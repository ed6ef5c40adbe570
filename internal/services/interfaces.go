package services

import (
	"context"
	"time"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type SignupRequest = validator.SignupRequest
type LoginRequest = validator.LoginRequest
type ChangePasswordRequest = validator.ChangePasswordRequest
type CreatePatientRequest = validator.PatientCreateRequest
type UpdatePatientRequest = validator.PatientUpdateRequest
type CreateIncidentRequest = validator.IncidentCreateRequest
type ResolveIncidentRequest = validator.IncidentResolveRequest
type StartSessionRequest = validator.SessionStartRequest
type EndSessionRequest = validator.SessionEndRequest
type CreateZoneRequest = validator.ZoneCreateRequest
type UpdateZoneRequest = validator.ZoneUpdateRequest
type LocationCheckRequest = validator.LocationCheckRequest
type CreateModuleRequest = validator.TrainingModuleCreateRequest
type UpdateProgressRequest = validator.ProgressUpdateRequest
type CreateMedicationRequest = validator.MedicationCreateRequest
type LogMedicationRequest = validator.MedicationLogRequest
type CreateCarePlanRequest = validator.CarePlanCreateRequest
type CarePlanTaskRequest = validator.CarePlanTaskRequest
type CreateContactRequest = validator.ContactCreateRequest
type RaiseAlertRequest = validator.AlertRaiseRequest
type ChatRequest = validator.ChatRequest
type CreateTicketRequest = validator.TicketCreateRequest
type UpdateTicketRequest = validator.TicketUpdateRequest
type UpdateUserRequest = validator.UserUpdateRequest
type CreateUserRequest = validator.UserCreateRequest
type SubmitQuizRequest = validator.QuizSubmitRequest
type QuizQuestionRequest = validator.QuizQuestionRequest

type AuthResponse struct {
	User *models.User `json:"user"`
}

type PatientResponse struct {
	*models.PatientProfile
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type PatientListResponse struct {
	Patients []*PatientResponse `json:"patients"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

type IncidentListResponse struct {
	Incidents []*models.Incident `json:"incidents"`
	Total     int64              `json:"total"`
	Page      int                `json:"page"`
	Size      int                `json:"size"`
}

type SessionListResponse struct {
	Sessions []*models.SeizureSession `json:"sessions"`
	Total    int64                    `json:"total"`
}

type ZoneListResponse struct {
	Zones []*models.SafetyZone `json:"zones"`
	Total int64                `json:"total"`
}

// ZoneCheckStatus is one zone's verdict for a location check
type ZoneCheckStatus struct {
	ZoneID    uint    `json:"zone_id"`
	ZoneName  string  `json:"zone_name"`
	ZoneType  string  `json:"zone_type"`
	Inside    bool    `json:"inside"`
	DistanceM float64 `json:"distance_m"`
}

// LocationCheckResult is the aggregate verdict for a GPS fix. Breached is
// true when the point is outside every safe zone or inside any danger zone.
type LocationCheckResult struct {
	PatientRef uint              `json:"patient_ref"`
	Breached   bool              `json:"breached"`
	Zones      []ZoneCheckStatus `json:"zones"`
	AlertID    *uint             `json:"alert_id,omitempty"`
}

type ModuleListResponse struct {
	Modules []*models.TrainingModule `json:"modules"`
	Total   int64                    `json:"total"`
}

type ProgressResponse struct {
	*models.TrainingProgress
	Completed bool `json:"completed"`
}

type AlertListResponse struct {
	Alerts []*models.EmergencyAlert `json:"alerts"`
	Total  int64                    `json:"total"`
}

type TicketListResponse struct {
	Tickets []*models.SupportTicket `json:"tickets"`
	Total   int64                   `json:"total"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
}

// RiskAssessment is one computed risk evaluation for a patient
type RiskAssessment struct {
	PatientRef      uint               `json:"patient_ref"`
	Score           float64            `json:"score"`
	Status          models.RiskStatus  `json:"status"`
	Confidence      float64            `json:"confidence"`
	Features        map[string]float64 `json:"features"`
	Factors         []string           `json:"factors"`
	Recommendations []string           `json:"recommendations"`
	ComputedAt      time.Time          `json:"computed_at"`
}

// AnalysisRunResult summarizes one batch prediction run
type AnalysisRunResult struct {
	Job        *models.PredictionJob `json:"job"`
	HighRisk   []uint                `json:"high_risk_patient_ids"`
	DurationMS int64                 `json:"duration_ms"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}

// DashboardOverview is the admin landing page payload
type DashboardOverview struct {
	TotalPatients   int64                        `json:"total_patients"`
	TotalCaregivers int64                        `json:"total_caregivers"`
	OpenIncidents   int64                        `json:"open_incidents"`
	ActiveAlerts    int64                        `json:"active_alerts"`
	PendingZones    int64                        `json:"pending_zones"`
	OpenTickets     int64                        `json:"open_tickets"`
	RiskBreakdown   map[models.RiskStatus]int64  `json:"risk_breakdown"`
	IncidentTrend   []repositories.IncidentTrendData `json:"incident_trend"`
	ByType          map[string]int64             `json:"incidents_by_type"`
	BySeverity      map[string]int64             `json:"incidents_by_severity"`
	RecentIncidents []*models.Incident           `json:"recent_incidents"`
	RecentAlerts    []*models.EmergencyAlert     `json:"recent_alerts"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
}

type PatientService interface {
	Create(ctx context.Context, req *CreatePatientRequest, caregiverID uint) (*PatientResponse, error)
	GetByID(ctx context.Context, id uint, userID uint) (*PatientResponse, error)
	GetByIDWithDetails(ctx context.Context, id uint, userID uint) (*PatientResponse, error)
	List(ctx context.Context, filters repositories.PatientFilters, userID uint) (*PatientListResponse, error)
	Update(ctx context.Context, id uint, req *UpdatePatientRequest, userID uint) (*PatientResponse, error)
	Delete(ctx context.Context, id uint, userID uint) error
	GetStats(ctx context.Context, id uint, userID uint) (*repositories.PatientStats, error)

	// Permission checks
	CanAccess(ctx context.Context, patientID uint, userID uint) (bool, error)
}

type IncidentService interface {
	Create(ctx context.Context, req *CreateIncidentRequest, reporterID uint) (*models.Incident, error)
	GetByID(ctx context.Context, id uint, userID uint) (*models.Incident, error)
	List(ctx context.Context, filters repositories.IncidentFilters, userID uint) (*IncidentListResponse, error)
	Resolve(ctx context.Context, id uint, req *ResolveIncidentRequest, userID uint) (*models.Incident, error)
	Delete(ctx context.Context, id uint, userID uint) error

	// Seizure session lifecycle
	StartSession(ctx context.Context, req *StartSessionRequest, userID uint) (*models.SeizureSession, error)
	EndSession(ctx context.Context, sessionID uint, req *EndSessionRequest, userID uint) (*models.SeizureSession, error)
	GetActiveSession(ctx context.Context, patientID uint, userID uint) (*models.SeizureSession, error)
	GetSessions(ctx context.Context, patientID uint, limit, offset int, userID uint) (*SessionListResponse, error)
}

type ZoneService interface {
	Create(ctx context.Context, req *CreateZoneRequest, caregiverID uint) (*models.SafetyZone, error)
	GetByID(ctx context.Context, id uint, userID uint) (*models.SafetyZone, error)
	GetByPatient(ctx context.Context, patientID uint, userID uint) ([]*models.SafetyZone, error)
	Update(ctx context.Context, id uint, req *UpdateZoneRequest, userID uint) (*models.SafetyZone, error)
	Delete(ctx context.Context, id uint, userID uint) error

	// Admin approval lifecycle for danger zones
	ListPending(ctx context.Context, limit, offset int) (*ZoneListResponse, error)
	Approve(ctx context.Context, id uint, adminID uint) (*models.SafetyZone, error)
	Reject(ctx context.Context, id uint, note string, adminID uint) (*models.SafetyZone, error)

	// CheckLocation tests a GPS fix against the patient's enforced zones and
	// raises an emergency alert on breach.
	CheckLocation(ctx context.Context, req *LocationCheckRequest, userID uint) (*LocationCheckResult, error)
}

type TrainingService interface {
	CreateModule(ctx context.Context, req *CreateModuleRequest, adminID uint) (*models.TrainingModule, error)
	GetModule(ctx context.Context, id uint) (*models.TrainingModule, error)
	UpdateModule(ctx context.Context, id uint, req *CreateModuleRequest, adminID uint) (*models.TrainingModule, error)
	DeleteModule(ctx context.Context, id uint, adminID uint) error
	ListModules(ctx context.Context, includeUnpublished bool, limit, offset int) (*ModuleListResponse, error)

	// Progress tracking, monotonic per user and module
	UpdateProgress(ctx context.Context, moduleID uint, req *UpdateProgressRequest, userID uint) (*ProgressResponse, error)
	SubmitQuiz(ctx context.Context, moduleID uint, req *SubmitQuizRequest, userID uint) (*ProgressResponse, error)
	GetUserProgress(ctx context.Context, userID uint) ([]*models.TrainingProgress, error)

	// GetCompletionStats aggregates per-module progress for the admin dashboard
	GetCompletionStats(ctx context.Context) ([]*repositories.ModuleCompletionStats, error)
}

type CareService interface {
	// Medications
	CreateMedication(ctx context.Context, req *CreateMedicationRequest, userID uint) (*models.Medication, error)
	GetMedications(ctx context.Context, patientID uint, activeOnly bool, userID uint) ([]*models.Medication, error)
	UpdateMedication(ctx context.Context, id uint, req *CreateMedicationRequest, userID uint) (*models.Medication, error)
	DeleteMedication(ctx context.Context, id uint, userID uint) error
	LogMedication(ctx context.Context, medicationID uint, req *LogMedicationRequest, userID uint) (*models.MedicationLog, error)
	GetAdherence(ctx context.Context, patientID uint, days int, userID uint) (float64, error)

	// Care plans
	CreateCarePlan(ctx context.Context, req *CreateCarePlanRequest, userID uint) (*models.CarePlan, error)
	GetCarePlans(ctx context.Context, patientID uint, userID uint) ([]*models.CarePlan, error)
	UpdateCarePlanStatus(ctx context.Context, id uint, status string, userID uint) (*models.CarePlan, error)
	DeleteCarePlan(ctx context.Context, id uint, userID uint) error
	AddTask(ctx context.Context, planID uint, req *CarePlanTaskRequest, userID uint) (*models.CarePlanTask, error)
	CompleteTask(ctx context.Context, taskID uint, userID uint) (*models.CarePlanTask, error)
	DeleteTask(ctx context.Context, taskID uint, userID uint) error

	// Emergency contacts
	CreateContact(ctx context.Context, req *CreateContactRequest, userID uint) (*models.EmergencyContact, error)
	GetContacts(ctx context.Context, patientID uint, userID uint) ([]*models.EmergencyContact, error)
	UpdateContact(ctx context.Context, id uint, req *CreateContactRequest, userID uint) (*models.EmergencyContact, error)
	DeleteContact(ctx context.Context, id uint, userID uint) error

	// Emergency alerts
	RaiseAlert(ctx context.Context, req *RaiseAlertRequest, userID uint) (*models.EmergencyAlert, error)
	AcknowledgeAlert(ctx context.Context, id uint, userID uint) (*models.EmergencyAlert, error)
	ResolveAlert(ctx context.Context, id uint, userID uint) (*models.EmergencyAlert, error)
	ListAlerts(ctx context.Context, filters repositories.AlertFilters, userID uint) (*AlertListResponse, error)

	// SweepStaleAlerts closes active alerts older than maxAge, used by the scheduler
	SweepStaleAlerts(ctx context.Context, maxAge time.Duration) (int64, error)
}

type PredictionService interface {
	// Predict computes and persists a risk assessment for one patient
	Predict(ctx context.Context, patientID uint, userID uint) (*RiskAssessment, error)
	GetLatest(ctx context.Context, patientID uint, userID uint) (*RiskAssessment, error)
	GetHistory(ctx context.Context, patientID uint, limit int, userID uint) ([]*models.PredictionResult, error)

	// RunAnalysis scores the whole patient population in one batch job
	RunAnalysis(ctx context.Context, triggeredBy string) (*AnalysisRunResult, error)
	GetJob(ctx context.Context, id uint) (*models.PredictionJob, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*models.PredictionJob, int64, error)
}

type AssistantService interface {
	// Chat answers a caregiver question with patient context when permitted
	Chat(ctx context.Context, req *ChatRequest, userID uint, role models.UserRole) (*ChatResponse, error)
	Enabled() bool
}

type DashboardService interface {
	GetOverview(ctx context.Context) (*DashboardOverview, error)
	GetCaregiverStats(ctx context.Context, caregiverID uint) (*repositories.CaregiverStats, error)

	// ExportIncidents builds the XLSX analytics workbook for the date range
	ExportIncidents(ctx context.Context, from, to time.Time) ([]byte, error)
}

type TicketService interface {
	Create(ctx context.Context, req *CreateTicketRequest, userID uint) (*models.SupportTicket, error)
	GetByID(ctx context.Context, id uint, userID uint, role models.UserRole) (*models.SupportTicket, error)
	List(ctx context.Context, filters repositories.TicketFilters, userID uint, role models.UserRole) (*TicketListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateTicketRequest, adminID uint) (*models.SupportTicket, error)
	Delete(ctx context.Context, id uint, adminID uint) error
}

type UserService interface {
	Create(ctx context.Context, req *CreateUserRequest, adminID uint) (*models.User, error)
	List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Update(ctx context.Context, id uint, req *UpdateUserRequest, adminID uint) (*models.User, error)
	Deactivate(ctx context.Context, id uint, adminID uint) error
	Delete(ctx context.Context, id uint, adminID uint) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Auth() AuthService
	Patient() PatientService
	Incident() IncidentService
	Zone() ZoneService
	Training() TrainingService
	Care() CareService
	Prediction() PredictionService
	Assistant() AssistantService
	Dashboard() DashboardService
	Ticket() TicketService
	User() UserService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

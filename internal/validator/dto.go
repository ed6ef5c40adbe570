package validator

import (
	"time"
)

// SignupRequest represents the request structure for account registration
type SignupRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
}

// LoginRequest represents the request structure for logging in. The
// username field also accepts the account's email address.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest represents the request structure for rotating a password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// PatientCreateRequest represents the request structure for creating patients
type PatientCreateRequest struct {
	Name              string   `json:"name" validate:"required,min=1,max=100"`
	Age               *int     `json:"age" validate:"omitempty,min=0,max=120"`
	Gender            *string  `json:"gender" validate:"omitempty,oneof=M F"`
	EpilepsyType      string   `json:"epilepsy_type" validate:"omitempty,epilepsy_type"`
	SeizureFrequency  string   `json:"seizure_frequency" validate:"omitempty,seizure_frequency"`
	MedicationRegimen []string `json:"medication_regimen" validate:"omitempty,dive,min=1,max=100"`
	ElectrodeImplant  bool     `json:"electrode_implant"`
	MonitoringType    *string  `json:"monitoring_type" validate:"omitempty,max=50"`
	HFOBurden         *float64 `json:"hfo_burden" validate:"omitempty,min=0"`
}

// PatientUpdateRequest represents the request structure for updating patients
type PatientUpdateRequest struct {
	Name              *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Age               *int     `json:"age" validate:"omitempty,min=0,max=120"`
	Gender            *string  `json:"gender" validate:"omitempty,oneof=M F"`
	EpilepsyType      *string  `json:"epilepsy_type" validate:"omitempty,epilepsy_type"`
	SeizureFrequency  *string  `json:"seizure_frequency" validate:"omitempty,seizure_frequency"`
	MedicationRegimen []string `json:"medication_regimen" validate:"omitempty,dive,min=1,max=100"`
	ElectrodeImplant  *bool    `json:"electrode_implant"`
	MonitoringType    *string  `json:"monitoring_type" validate:"omitempty,max=50"`
	HFOBurden         *float64 `json:"hfo_burden" validate:"omitempty,min=0"`
}

// IncidentCreateRequest represents the request structure for recording incidents
type IncidentCreateRequest struct {
	PatientRef          uint       `json:"patient_ref" validate:"required"`
	Type                string     `json:"type" validate:"required,oneof=seizure fall zone_breach missed_medication manual_report"`
	Severity            string     `json:"severity" validate:"required,oneof=low medium high critical"`
	OccurredAt          *time.Time `json:"occurred_at" validate:"omitempty,past_date"`
	Description         string     `json:"description" validate:"omitempty,max=2000"`
	Location            *string    `json:"location" validate:"omitempty,max=255"`
	Latitude            *float64   `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude           *float64   `json:"longitude" validate:"omitempty,min=-180,max=180"`
	SeizureType         *string    `json:"seizure_type" validate:"omitempty,max=50"`
	DurationSeconds     *int       `json:"duration_seconds" validate:"omitempty,min=0,max=86400"`
	HeartRate           *int       `json:"heart_rate" validate:"omitempty,min=0,max=400"`
	OxygenLevel         *float64   `json:"oxygen_level" validate:"omitempty,min=0,max=100"`
	ResponseTimeSeconds *int       `json:"response_time_seconds" validate:"omitempty,min=0"`
}

// IncidentResolveRequest represents the request structure for closing incidents
type IncidentResolveRequest struct {
	ResolutionNotes     string `json:"resolution_notes" validate:"omitempty,max=2000"`
	ResponseTimeSeconds *int   `json:"response_time_seconds" validate:"omitempty,min=0"`
}

// SessionStartRequest represents the request structure for opening seizure sessions
type SessionStartRequest struct {
	PatientRef  uint    `json:"patient_ref" validate:"required"`
	SeizureType *string `json:"seizure_type" validate:"omitempty,max=50"`
	Notes       *string `json:"notes" validate:"omitempty,max=2000"`
}

// SessionEndRequest represents the request structure for closing seizure sessions
type SessionEndRequest struct {
	Severity       *string  `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Notes          *string  `json:"notes" validate:"omitempty,max=2000"`
	PeakHeartRate  *int     `json:"peak_heart_rate" validate:"omitempty,min=0,max=400"`
	MinOxygenLevel *float64 `json:"min_oxygen_level" validate:"omitempty,min=0,max=100"`
}

// ZoneCreateRequest represents the request structure for creating safety zones
type ZoneCreateRequest struct {
	PatientRef  uint    `json:"patient_ref" validate:"required"`
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Type        string  `json:"type" validate:"required,oneof=safe danger"`
	Latitude    float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" validate:"min=-180,max=180"`
	RadiusM     float64 `json:"radius_m" validate:"required,min=1,max=10000"`
	Description string  `json:"description" validate:"omitempty,max=1000"`
}

// ZoneUpdateRequest represents the request structure for updating safety zones
type ZoneUpdateRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=2,max=120"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	RadiusM     *float64 `json:"radius_m" validate:"omitempty,min=1,max=10000"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	IsActive    *bool    `json:"is_active"`
}

// LocationCheckRequest represents a GPS fix to test against a patient's zones
type LocationCheckRequest struct {
	PatientRef uint    `json:"patient_ref" validate:"required"`
	Latitude   float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude  float64 `json:"longitude" validate:"min=-180,max=180"`
}

// TrainingModuleCreateRequest represents the request structure for publishing training modules
type TrainingModuleCreateRequest struct {
	Title           string `json:"title" validate:"required,min=3,max=200"`
	Description     string `json:"description" validate:"omitempty,max=5000"`
	Category        string `json:"category" validate:"omitempty,max=100"`
	Difficulty      string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0,max=600"`
	ContentURL      string `json:"content_url" validate:"omitempty,url,max=500"`
	VideoURL        string `json:"video_url" validate:"omitempty,url,max=500"`
	QuizQuestions   []QuizQuestionRequest `json:"quiz_questions" validate:"omitempty,max=50,dive"`
}

// QuizQuestionRequest represents one quiz question on a training module
type QuizQuestionRequest struct {
	Question      string   `json:"question" validate:"required,min=3,max=500"`
	Options       []string `json:"options" validate:"required,min=2,max=8,dive,min=1,max=200"`
	CorrectOption int      `json:"correct_option" validate:"min=0"`
}

// ProgressUpdateRequest represents the request structure for reporting training progress
type ProgressUpdateRequest struct {
	Percent int `json:"percent" validate:"min=0,max=100"`
}

// QuizSubmitRequest represents the request structure for submitting a quiz score
type QuizSubmitRequest struct {
	Score int `json:"score" validate:"min=0,max=100"`
}

// MedicationCreateRequest represents the request structure for adding medications
type MedicationCreateRequest struct {
	PatientRef   uint       `json:"patient_ref" validate:"required"`
	Name         string     `json:"name" validate:"required,min=2,max=150"`
	Dosage       string     `json:"dosage" validate:"required,max=100"`
	Frequency    string     `json:"frequency" validate:"omitempty,max=100"`
	Schedule     string     `json:"schedule" validate:"omitempty,max=255"`
	Notes        string     `json:"notes" validate:"omitempty,max=2000"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	PrescribedBy string     `json:"prescribed_by" validate:"omitempty,max=150"`
}

// MedicationLogRequest represents the request structure for logging administrations
type MedicationLogRequest struct {
	Status  string     `json:"status" validate:"required,oneof=taken missed skipped"`
	TakenAt *time.Time `json:"taken_at"`
	Notes   string     `json:"notes" validate:"omitempty,max=500"`
}

// CarePlanCreateRequest represents the request structure for creating care plans
type CarePlanCreateRequest struct {
	PatientRef  uint       `json:"patient_ref" validate:"required"`
	Title       string     `json:"title" validate:"required,min=3,max=200"`
	Description string     `json:"description" validate:"omitempty,max=5000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Tasks       []CarePlanTaskRequest `json:"tasks" validate:"omitempty,max=50,dive"`
}

// CarePlanTaskRequest represents one task inside a care plan request
type CarePlanTaskRequest struct {
	Title   string `json:"title" validate:"required,min=2,max=200"`
	Notes   string `json:"notes" validate:"omitempty,max=500"`
	DueTime string `json:"due_time" validate:"omitempty,max=20"`
}

// ContactCreateRequest represents the request structure for adding emergency contacts
type ContactCreateRequest struct {
	PatientRef   uint   `json:"patient_ref" validate:"required"`
	Name         string `json:"name" validate:"required,min=2,max=150"`
	Relationship string `json:"relationship" validate:"omitempty,max=100"`
	Phone        string `json:"phone" validate:"required,max=30"`
	Email        string `json:"email" validate:"omitempty,email"`
	Priority     int    `json:"priority" validate:"omitempty,min=1,max=10"`
}

// AlertRaiseRequest represents the request structure for raising a manual alert
type AlertRaiseRequest struct {
	PatientRef uint     `json:"patient_ref" validate:"required"`
	Message    string   `json:"message" validate:"omitempty,max=500"`
	Latitude   *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude  *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// ChatRequest represents one message to the care assistant
type ChatRequest struct {
	Message    string `json:"message" validate:"required,min=1,max=4000"`
	PatientRef *uint  `json:"patient_ref"`
}

// TicketCreateRequest represents the request structure for filing support tickets
type TicketCreateRequest struct {
	Subject  string `json:"subject" validate:"required,min=3,max=200"`
	Body     string `json:"body" validate:"required,min=5,max=5000"`
	Priority string `json:"priority" validate:"omitempty,oneof=low normal high"`
}

// TicketUpdateRequest represents the request structure for handling tickets
type TicketUpdateRequest struct {
	Status   *string `json:"status" validate:"omitempty,oneof=open in_progress closed"`
	Response *string `json:"response" validate:"omitempty,max=5000"`
	AssignedTo *uint `json:"assigned_to"`
}

// UserCreateRequest represents the admin request structure for provisioning accounts
type UserCreateRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Role      string `json:"role" validate:"required,oneof=caregiver admin"`
}

// UserUpdateRequest represents the admin request structure for managing users
type UserUpdateRequest struct {
	Role      *string `json:"role" validate:"omitempty,oneof=caregiver admin"`
	IsActive  *bool   `json:"is_active"`
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
}

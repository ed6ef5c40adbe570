package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/events"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type incidentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	patients  PatientService
	publisher events.EventPublisher
}

func NewIncidentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, patients PatientService, publisher events.EventPublisher) IncidentService {
	return &incidentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		patients:  patients,
		publisher: publisher,
	}
}

// ===== INCIDENT OPERATIONS =====

func (s *incidentService) Create(ctx context.Context, req *CreateIncidentRequest, reporterID uint) (*models.Incident, error) {
	s.logger.Info("Recording incident", "patient_ref", req.PatientRef, "type", req.Type, "reporter_id", reporterID)

	if errors := s.validator.GetBusinessValidator().ValidateIncidentCreate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAccess(ctx, req.PatientRef, reporterID, "record"); err != nil {
		return nil, err
	}

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	incident := &models.Incident{
		PatientRef:          req.PatientRef,
		Type:                req.Type,
		Severity:            req.Severity,
		Status:              models.IncidentStatusOpen,
		OccurredAt:          occurredAt,
		Description:         req.Description,
		Location:            req.Location,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		SeizureType:         req.SeizureType,
		DurationSeconds:     req.DurationSeconds,
		HeartRate:           req.HeartRate,
		OxygenLevel:         req.OxygenLevel,
		ResponseTimeSeconds: req.ResponseTimeSeconds,
		ReportedBy:          reporterID,
	}

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Incident().Create(ctx, tx, incident); err != nil {
			return fmt.Errorf("failed to create incident: %w", err)
		}
		return s.repo.Patient().UpdateRollingStats(ctx, tx, req.PatientRef)
	})
	if err != nil {
		return nil, err
	}

	s.publishIncidentEvent(ctx, events.EventIncidentRecorded, incident)

	s.logger.Info("Incident recorded", "incident_id", incident.ID, "severity", incident.Severity)
	return incident, nil
}

func (s *incidentService) GetByID(ctx context.Context, id uint, userID uint) (*models.Incident, error) {
	incident, err := s.repo.Incident().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}

	if err := s.requireAccess(ctx, incident.PatientRef, userID, "read"); err != nil {
		return nil, err
	}
	return incident, nil
}

func (s *incidentService) List(ctx context.Context, filters repositories.IncidentFilters, userID uint) (*IncidentListResponse, error) {
	// Caregivers may only list incidents for patients they can access.
	if filters.PatientRef != nil {
		if err := s.requireAccess(ctx, *filters.PatientRef, userID, "read"); err != nil {
			return nil, err
		}
	} else {
		user, err := s.repo.User().GetByID(ctx, s.db, userID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user.Role != models.RoleAdmin {
			filters.CaregiverID = &userID
		}
	}

	incidents, total, err := s.repo.Incident().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}

	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}

	return &IncidentListResponse{
		Incidents: incidents,
		Total:     total,
		Page:      page,
		Size:      len(incidents),
	}, nil
}

func (s *incidentService) Resolve(ctx context.Context, id uint, req *ResolveIncidentRequest, userID uint) (*models.Incident, error) {
	s.logger.Info("Resolving incident", "incident_id", id, "user_id", userID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	incident, err := s.repo.Incident().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}

	if err := s.requireAccess(ctx, incident.PatientRef, userID, "resolve"); err != nil {
		return nil, err
	}

	if incident.IsResolved() {
		return nil, NewBusinessRuleError("incident_already_resolved",
			"incident is already resolved")
	}

	now := time.Now().UTC()
	incident.Status = models.IncidentStatusResolved
	incident.ResolvedAt = &now
	incident.RespondedBy = &userID
	if req.ResolutionNotes != "" {
		incident.ResolutionNotes = &req.ResolutionNotes
	}
	if req.ResponseTimeSeconds != nil {
		incident.ResponseTimeSeconds = req.ResponseTimeSeconds
	} else if incident.ResponseTimeSeconds == nil {
		elapsed := int(now.Sub(incident.OccurredAt).Seconds())
		incident.ResponseTimeSeconds = &elapsed
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Incident().Update(ctx, tx, incident); err != nil {
			return fmt.Errorf("failed to update incident: %w", err)
		}
		return s.repo.Patient().UpdateRollingStats(ctx, tx, incident.PatientRef)
	})
	if err != nil {
		return nil, err
	}

	return incident, nil
}

func (s *incidentService) Delete(ctx context.Context, id uint, userID uint) error {
	s.logger.Info("Deleting incident", "incident_id", id, "user_id", userID)

	incident, err := s.repo.Incident().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrIncidentNotFound
		}
		return fmt.Errorf("failed to get incident: %w", err)
	}

	if err := s.requireAccess(ctx, incident.PatientRef, userID, "delete"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Incident().Delete(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete incident: %w", err)
		}
		return s.repo.Patient().UpdateRollingStats(ctx, tx, incident.PatientRef)
	})
}

// ===== SEIZURE SESSION LIFECYCLE =====

func (s *incidentService) StartSession(ctx context.Context, req *StartSessionRequest, userID uint) (*models.SeizureSession, error) {
	s.logger.Info("Starting seizure session", "patient_ref", req.PatientRef, "user_id", userID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAccess(ctx, req.PatientRef, userID, "monitor"); err != nil {
		return nil, err
	}

	active, err := s.repo.Session().GetActiveByPatient(ctx, s.db, req.PatientRef)
	if err != nil {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}
	if active != nil {
		return nil, ErrSessionAlreadyActive
	}

	session := &models.SeizureSession{
		PatientRef:  req.PatientRef,
		Status:      models.SessionStatusActive,
		StartedAt:   time.Now().UTC(),
		SeizureType: req.SeizureType,
		Notes:       req.Notes,
		StartedBy:   userID,
	}

	if err := s.repo.Session().Create(ctx, s.db, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Seizure session started", "session_id", session.ID)
	return session, nil
}

// EndSession closes an active session and records the observed seizure as an
// incident, linking the two records.
func (s *incidentService) EndSession(ctx context.Context, sessionID uint, req *EndSessionRequest, userID uint) (*models.SeizureSession, error) {
	s.logger.Info("Ending seizure session", "session_id", sessionID, "user_id", userID)

	session, err := s.repo.Session().GetByID(ctx, s.db, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if errors := s.validator.GetBusinessValidator().ValidateSessionEnd(req, session); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAccess(ctx, session.PatientRef, userID, "monitor"); err != nil {
		return nil, err
	}

	if session.Status != models.SessionStatusActive {
		return nil, NewBusinessRuleError("session_not_active",
			"session has already ended")
	}

	now := time.Now().UTC()
	session.Status = models.SessionStatusCompleted
	session.EndedAt = &now
	if req.Severity != nil {
		session.Severity = req.Severity
	}
	if req.Notes != nil {
		session.Notes = req.Notes
	}
	if req.PeakHeartRate != nil {
		session.PeakHeartRate = req.PeakHeartRate
	}
	if req.MinOxygenLevel != nil {
		session.MinOxygenLevel = req.MinOxygenLevel
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		incident := s.incidentFromSession(session, userID)
		if err := s.repo.Incident().Create(ctx, tx, incident); err != nil {
			return fmt.Errorf("failed to create incident from session: %w", err)
		}

		session.IncidentID = &incident.ID
		if err := s.repo.Session().Update(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return s.repo.Patient().UpdateRollingStats(ctx, tx, session.PatientRef)
	})
	if err != nil {
		return nil, err
	}

	s.publishSessionEvent(ctx, session)

	s.logger.Info("Seizure session ended", "session_id", session.ID,
		"duration_seconds", session.DurationSeconds(), "incident_id", session.IncidentID)
	return session, nil
}

func (s *incidentService) GetActiveSession(ctx context.Context, patientID uint, userID uint) (*models.SeizureSession, error) {
	if err := s.requireAccess(ctx, patientID, userID, "read"); err != nil {
		return nil, err
	}

	session, err := s.repo.Session().GetActiveByPatient(ctx, s.db, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *incidentService) GetSessions(ctx context.Context, patientID uint, limit, offset int, userID uint) (*SessionListResponse, error) {
	if err := s.requireAccess(ctx, patientID, userID, "read"); err != nil {
		return nil, err
	}

	sessions, total, err := s.repo.Session().GetByPatient(ctx, s.db, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return &SessionListResponse{Sessions: sessions, Total: total}, nil
}

// ===== HELPERS =====

func (s *incidentService) incidentFromSession(session *models.SeizureSession, userID uint) *models.Incident {
	duration := session.DurationSeconds()
	severity := models.SeverityMedium
	if session.Severity != nil {
		severity = *session.Severity
	}

	incident := &models.Incident{
		PatientRef:      session.PatientRef,
		Type:            models.IncidentTypeSeizure,
		Severity:        severity,
		Status:          models.IncidentStatusOpen,
		OccurredAt:      session.StartedAt,
		Description:     derefString(session.Notes),
		SeizureType:     session.SeizureType,
		DurationSeconds: &duration,
		HeartRate:       session.PeakHeartRate,
		OxygenLevel:     session.MinOxygenLevel,
		ReportedBy:      userID,
	}
	return incident
}

func (s *incidentService) requireAccess(ctx context.Context, patientID uint, userID uint, action string) error {
	canAccess, err := s.patients.CanAccess(ctx, patientID, userID)
	if err != nil {
		return err
	}
	if !canAccess {
		return NewPermissionError(userID, patientID, "incident", action, "not the assigned caregiver")
	}
	return nil
}

func (s *incidentService) publishIncidentEvent(ctx context.Context, eventType string, incident *models.Incident) {
	event := events.NewEvent(eventType, events.IncidentEvent{
		IncidentID: incident.ID,
		PatientID:  incident.PatientRef,
		Type:       incident.Type,
		Severity:   incident.Severity,
		OccurredAt: incident.OccurredAt,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish incident event", "event_type", eventType, "error", err)
	}
}

func (s *incidentService) publishSessionEvent(ctx context.Context, session *models.SeizureSession) {
	event := events.NewEvent(events.EventSeizureSessionEnded, events.IncidentEvent{
		IncidentID:      derefUint(session.IncidentID),
		PatientID:       session.PatientRef,
		Type:            models.IncidentTypeSeizure,
		Severity:        derefString(session.Severity),
		OccurredAt:      session.StartedAt,
		DurationSeconds: session.DurationSeconds(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish session event", "session_id", session.ID, "error", err)
	}
}

func derefUint(v *uint) uint {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func (s *incidentService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

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

type careService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	patients  PatientService
	publisher events.EventPublisher
}

func NewCareService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, patients PatientService, publisher events.EventPublisher) CareService {
	return &careService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		patients:  patients,
		publisher: publisher,
	}
}

// ===== MEDICATIONS =====

func (s *careService) CreateMedication(ctx context.Context, req *CreateMedicationRequest, userID uint) (*models.Medication, error) {
	s.logger.Info("Creating medication", "patient_ref", req.PatientRef, "name", req.Name)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}
	if errors := s.validator.GetBusinessValidator().ValidateMedicationDates(req.StartDate, req.EndDate); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAccess(ctx, req.PatientRef, userID, "medication", "create"); err != nil {
		return nil, err
	}

	med := &models.Medication{
		PatientRef:   req.PatientRef,
		Name:         req.Name,
		Dosage:       req.Dosage,
		Frequency:    req.Frequency,
		Schedule:     req.Schedule,
		Notes:        req.Notes,
		IsActive:     true,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		PrescribedBy: req.PrescribedBy,
		CreatedBy:    userID,
	}

	if err := s.repo.Medication().Create(ctx, s.db, med); err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}
	return med, nil
}

func (s *careService) GetMedications(ctx context.Context, patientID uint, activeOnly bool, userID uint) ([]*models.Medication, error) {
	if err := s.requireAccess(ctx, patientID, userID, "medication", "read"); err != nil {
		return nil, err
	}

	meds, err := s.repo.Medication().GetByPatient(ctx, s.db, patientID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return meds, nil
}

func (s *careService) UpdateMedication(ctx context.Context, id uint, req *CreateMedicationRequest, userID uint) (*models.Medication, error) {
	s.logger.Info("Updating medication", "medication_id", id, "user_id", userID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}
	if errors := s.validator.GetBusinessValidator().ValidateMedicationDates(req.StartDate, req.EndDate); len(errors) > 0 {
		return nil, errors
	}

	med, err := s.getMedication(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, med.PatientRef, userID, "medication", "update"); err != nil {
		return nil, err
	}

	med.Name = req.Name
	med.Dosage = req.Dosage
	med.Frequency = req.Frequency
	med.Schedule = req.Schedule
	med.Notes = req.Notes
	med.StartDate = req.StartDate
	med.EndDate = req.EndDate
	med.PrescribedBy = req.PrescribedBy

	if err := s.repo.Medication().Update(ctx, s.db, med); err != nil {
		return nil, fmt.Errorf("failed to update medication: %w", err)
	}
	return med, nil
}

func (s *careService) DeleteMedication(ctx context.Context, id uint, userID uint) error {
	s.logger.Info("Deleting medication", "medication_id", id, "user_id", userID)

	med, err := s.getMedication(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, med.PatientRef, userID, "medication", "delete"); err != nil {
		return err
	}

	if err := s.repo.Medication().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	return nil
}

func (s *careService) LogMedication(ctx context.Context, medicationID uint, req *LogMedicationRequest, userID uint) (*models.MedicationLog, error) {
	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	med, err := s.getMedication(ctx, medicationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, med.PatientRef, userID, "medication", "log"); err != nil {
		return nil, err
	}

	takenAt := time.Now().UTC()
	if req.TakenAt != nil {
		takenAt = *req.TakenAt
	}

	log := &models.MedicationLog{
		MedicationID: medicationID,
		Status:       req.Status,
		TakenAt:      takenAt,
		Notes:        req.Notes,
		LoggedBy:     userID,
	}

	if err := s.repo.Medication().CreateLog(ctx, s.db, log); err != nil {
		return nil, fmt.Errorf("failed to log medication: %w", err)
	}

	// A missed dose is a safety-relevant incident for the risk engine.
	if req.Status == models.MedLogMissed {
		incident := &models.Incident{
			PatientRef:  med.PatientRef,
			Type:        models.IncidentTypeMissedMed,
			Severity:    models.SeverityLow,
			Status:      models.IncidentStatusOpen,
			OccurredAt:  takenAt,
			Description: fmt.Sprintf("Missed dose of %s", med.Name),
			ReportedBy:  userID,
		}
		if err := s.repo.Incident().Create(ctx, s.db, incident); err != nil {
			s.logger.Error("Failed to record missed medication incident",
				"medication_id", medicationID, "error", err)
		}
	}

	return log, nil
}

func (s *careService) GetAdherence(ctx context.Context, patientID uint, days int, userID uint) (float64, error) {
	if err := s.requireAccess(ctx, patientID, userID, "medication", "read"); err != nil {
		return 0, err
	}

	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	rate, err := s.repo.Medication().AdherenceRate(ctx, s.db, patientID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to compute adherence: %w", err)
	}
	return rate, nil
}

// ===== CARE PLANS =====

func (s *careService) CreateCarePlan(ctx context.Context, req *CreateCarePlanRequest, userID uint) (*models.CarePlan, error) {
	s.logger.Info("Creating care plan", "patient_ref", req.PatientRef, "title", req.Title)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAccess(ctx, req.PatientRef, userID, "care_plan", "create"); err != nil {
		return nil, err
	}

	plan := &models.CarePlan{
		PatientRef:  req.PatientRef,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.CarePlanActive,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedBy:   userID,
	}

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CarePlan().Create(ctx, tx, plan); err != nil {
			return fmt.Errorf("failed to create care plan: %w", err)
		}
		for _, t := range req.Tasks {
			task := &models.CarePlanTask{
				CarePlanID: plan.ID,
				Title:      t.Title,
				Notes:      t.Notes,
				DueTime:    t.DueTime,
			}
			if err := s.repo.CarePlan().CreateTask(ctx, tx, task); err != nil {
				return fmt.Errorf("failed to create care plan task: %w", err)
			}
			plan.Tasks = append(plan.Tasks, *task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *careService) GetCarePlans(ctx context.Context, patientID uint, userID uint) ([]*models.CarePlan, error) {
	if err := s.requireAccess(ctx, patientID, userID, "care_plan", "read"); err != nil {
		return nil, err
	}

	plans, err := s.repo.CarePlan().GetByPatient(ctx, s.db, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list care plans: %w", err)
	}
	return plans, nil
}

func (s *careService) UpdateCarePlanStatus(ctx context.Context, id uint, status string, userID uint) (*models.CarePlan, error) {
	if status != models.CarePlanActive && status != models.CarePlanCompleted && status != models.CarePlanArchived {
		return nil, NewBusinessRuleError("invalid_plan_status",
			"status must be active, completed or archived")
	}

	plan, err := s.getCarePlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, plan.PatientRef, userID, "care_plan", "update"); err != nil {
		return nil, err
	}

	plan.Status = status
	if err := s.repo.CarePlan().Update(ctx, s.db, plan); err != nil {
		return nil, fmt.Errorf("failed to update care plan: %w", err)
	}
	return plan, nil
}

func (s *careService) DeleteCarePlan(ctx context.Context, id uint, userID uint) error {
	plan, err := s.getCarePlan(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, plan.PatientRef, userID, "care_plan", "delete"); err != nil {
		return err
	}

	if err := s.repo.CarePlan().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete care plan: %w", err)
	}
	return nil
}

func (s *careService) AddTask(ctx context.Context, planID uint, req *CarePlanTaskRequest, userID uint) (*models.CarePlanTask, error) {
	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	plan, err := s.getCarePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, plan.PatientRef, userID, "care_plan", "update"); err != nil {
		return nil, err
	}

	task := &models.CarePlanTask{
		CarePlanID: planID,
		Title:      req.Title,
		Notes:      req.Notes,
		DueTime:    req.DueTime,
	}
	if err := s.repo.CarePlan().CreateTask(ctx, s.db, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (s *careService) CompleteTask(ctx context.Context, taskID uint, userID uint) (*models.CarePlanTask, error) {
	task, err := s.repo.CarePlan().GetTaskByID(ctx, s.db, taskID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	plan, err := s.getCarePlan(ctx, task.CarePlanID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, plan.PatientRef, userID, "care_plan", "update"); err != nil {
		return nil, err
	}

	if task.IsDone {
		return task, nil
	}

	now := time.Now().UTC()
	task.IsDone = true
	task.CompletedAt = &now
	task.CompletedBy = &userID

	if err := s.repo.CarePlan().UpdateTask(ctx, s.db, task); err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}
	return task, nil
}

func (s *careService) DeleteTask(ctx context.Context, taskID uint, userID uint) error {
	task, err := s.repo.CarePlan().GetTaskByID(ctx, s.db, taskID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to get task: %w", err)
	}

	plan, err := s.getCarePlan(ctx, task.CarePlanID)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, plan.PatientRef, userID, "care_plan", "update"); err != nil {
		return err
	}

	if err := s.repo.CarePlan().DeleteTask(ctx, s.db, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ===== EMERGENCY CONTACTS =====

func (s *careService) CreateContact(ctx context.Context, req *CreateContactRequest, userID uint) (*models.EmergencyContact, error) {
	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAccess(ctx, req.PatientRef, userID, "contact", "create"); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == 0 {
		priority = 1
	}

	contact := &models.EmergencyContact{
		PatientRef:   req.PatientRef,
		Name:         req.Name,
		Relationship: req.Relationship,
		Phone:        req.Phone,
		Email:        req.Email,
		Priority:     priority,
	}

	if err := s.repo.Contact().Create(ctx, s.db, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact, nil
}

func (s *careService) GetContacts(ctx context.Context, patientID uint, userID uint) ([]*models.EmergencyContact, error) {
	if err := s.requireAccess(ctx, patientID, userID, "contact", "read"); err != nil {
		return nil, err
	}

	contacts, err := s.repo.Contact().GetByPatient(ctx, s.db, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

func (s *careService) UpdateContact(ctx context.Context, id uint, req *CreateContactRequest, userID uint) (*models.EmergencyContact, error) {
	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	contact, err := s.getContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, contact.PatientRef, userID, "contact", "update"); err != nil {
		return nil, err
	}

	contact.Name = req.Name
	contact.Relationship = req.Relationship
	contact.Phone = req.Phone
	contact.Email = req.Email
	if req.Priority > 0 {
		contact.Priority = req.Priority
	}

	if err := s.repo.Contact().Update(ctx, s.db, contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return contact, nil
}

func (s *careService) DeleteContact(ctx context.Context, id uint, userID uint) error {
	contact, err := s.getContact(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, contact.PatientRef, userID, "contact", "delete"); err != nil {
		return err
	}

	if err := s.repo.Contact().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return nil
}

// ===== EMERGENCY ALERTS =====

func (s *careService) RaiseAlert(ctx context.Context, req *RaiseAlertRequest, userID uint) (*models.EmergencyAlert, error) {
	s.logger.Info("Raising emergency alert", "patient_ref", req.PatientRef, "user_id", userID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAccess(ctx, req.PatientRef, userID, "alert", "raise"); err != nil {
		return nil, err
	}

	alert := &models.EmergencyAlert{
		PatientRef:  req.PatientRef,
		TriggerKind: models.AlertTriggerManual,
		Status:      models.AlertStatusActive,
		Message:     req.Message,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		RaisedAt:    time.Now().UTC(),
	}

	if err := s.repo.Alert().Create(ctx, s.db, alert); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	s.publishAlertEvent(ctx, events.EventAlertRaised, alert)

	s.logger.Warn("Emergency alert raised", "alert_id", alert.ID, "patient_ref", alert.PatientRef)
	return alert, nil
}

func (s *careService) AcknowledgeAlert(ctx context.Context, id uint, userID uint) (*models.EmergencyAlert, error) {
	alert, err := s.getAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, alert.PatientRef, userID, "alert", "acknowledge"); err != nil {
		return nil, err
	}

	if alert.Status != models.AlertStatusActive {
		return nil, NewBusinessRuleError("alert_not_active",
			"only active alerts can be acknowledged")
	}

	now := time.Now().UTC()
	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = &userID

	if err := s.repo.Alert().Update(ctx, s.db, alert); err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return alert, nil
}

func (s *careService) ResolveAlert(ctx context.Context, id uint, userID uint) (*models.EmergencyAlert, error) {
	alert, err := s.getAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, alert.PatientRef, userID, "alert", "resolve"); err != nil {
		return nil, err
	}

	if alert.Status == models.AlertStatusResolved {
		return nil, NewBusinessRuleError("alert_already_resolved",
			"alert is already resolved")
	}

	now := time.Now().UTC()
	alert.Status = models.AlertStatusResolved
	alert.ResolvedAt = &now
	alert.ResolvedBy = &userID

	if err := s.repo.Alert().Update(ctx, s.db, alert); err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}

	s.publishAlertEvent(ctx, events.EventAlertResolved, alert)
	return alert, nil
}

func (s *careService) ListAlerts(ctx context.Context, filters repositories.AlertFilters, userID uint) (*AlertListResponse, error) {
	// Caregivers may only list alerts for patients they can access.
	if filters.PatientRef != nil {
		if err := s.requireAccess(ctx, *filters.PatientRef, userID, "alert", "read"); err != nil {
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

	alerts, total, err := s.repo.Alert().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return &AlertListResponse{Alerts: alerts, Total: total}, nil
}

// SweepStaleAlerts auto-resolves active alerts older than maxAge. Called
// hourly by the scheduler so forgotten alerts do not pile up.
func (s *careService) SweepStaleAlerts(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	count, err := s.repo.Alert().ResolveStale(ctx, s.db, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale alerts: %w", err)
	}
	if count > 0 {
		s.logger.Info("Resolved stale alerts", "count", count, "cutoff", cutoff)
	}
	return count, nil
}

// ===== HELPERS =====

func (s *careService) getMedication(ctx context.Context, id uint) (*models.Medication, error) {
	med, err := s.repo.Medication().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}
	return med, nil
}

func (s *careService) getCarePlan(ctx context.Context, id uint) (*models.CarePlan, error) {
	plan, err := s.repo.CarePlan().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCarePlanNotFound
		}
		return nil, fmt.Errorf("failed to get care plan: %w", err)
	}
	return plan, nil
}

func (s *careService) getContact(ctx context.Context, id uint) (*models.EmergencyContact, error) {
	contact, err := s.repo.Contact().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

func (s *careService) getAlert(ctx context.Context, id uint) (*models.EmergencyAlert, error) {
	alert, err := s.repo.Alert().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

func (s *careService) requireAccess(ctx context.Context, patientID uint, userID uint, resource, action string) error {
	canAccess, err := s.patients.CanAccess(ctx, patientID, userID)
	if err != nil {
		return err
	}
	if !canAccess {
		return NewPermissionError(userID, patientID, resource, action, "not the assigned caregiver")
	}
	return nil
}

func (s *careService) publishAlertEvent(ctx context.Context, eventType string, alert *models.EmergencyAlert) {
	event := events.NewEvent(eventType, events.AlertEvent{
		AlertID:     alert.ID,
		PatientID:   alert.PatientRef,
		TriggerKind: alert.TriggerKind,
		Status:      alert.Status,
		Message:     alert.Message,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish alert event", "event_type", eventType, "error", err)
	}
}

func (s *careService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

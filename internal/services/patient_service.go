package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

type patientService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewPatientService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) PatientService {
	return &patientService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *patientService) Create(ctx context.Context, req *CreatePatientRequest, caregiverID uint) (*PatientResponse, error) {
	s.logger.Info("Creating patient", "caregiver_id", caregiverID, "name", req.Name)

	if errors := s.validator.GetBusinessValidator().ValidatePatientCreate(req); len(errors) > 0 {
		return nil, errors
	}

	var patient *models.PatientProfile
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		code, err := s.repo.Patient().NextPatientID(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to allocate patient code: %w", err)
		}

		patient = &models.PatientProfile{
			PatientID:         code,
			Name:              req.Name,
			Age:               req.Age,
			Gender:            req.Gender,
			EpilepsyType:      models.EpilepsyType(req.EpilepsyType),
			SeizureFrequency:  models.SeizureFrequency(req.SeizureFrequency),
			MedicationRegimen: regimenJSON(req.MedicationRegimen),
			ElectrodeImplant:  req.ElectrodeImplant,
			MonitoringType:    req.MonitoringType,
			RiskStatus:        models.RiskLow,
			CaregiverID:       caregiverID,
		}
		if req.HFOBurden != nil {
			patient.HFOBurden = *req.HFOBurden
		}

		return s.repo.Patient().Create(ctx, tx, patient)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Patient created", "patient_id", patient.ID, "patient_code", patient.PatientID)
	return s.buildPatientResponse(ctx, patient, caregiverID), nil
}

func (s *patientService) GetByID(ctx context.Context, id uint, userID uint) (*PatientResponse, error) {
	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "patient", "read", "not the assigned caregiver")
	}

	patient, err := s.repo.Patient().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	return s.buildPatientResponse(ctx, patient, userID), nil
}

func (s *patientService) GetByIDWithDetails(ctx context.Context, id uint, userID uint) (*PatientResponse, error) {
	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "patient", "read", "not the assigned caregiver")
	}

	patient, err := s.repo.Patient().GetByIDWithDetails(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to get patient details: %w", err)
	}

	return s.buildPatientResponse(ctx, patient, userID), nil
}

// List returns the caller's patients. Admins see every patient; caregivers
// are always scoped to their own assignments regardless of filters.
func (s *patientService) List(ctx context.Context, filters repositories.PatientFilters, userID uint) (*PatientListResponse, error) {
	isAdmin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		filters.CaregiverID = &userID
	}

	patients, total, err := s.repo.Patient().List(ctx, s.db, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	responses := make([]*PatientResponse, len(patients))
	for i, p := range patients {
		responses[i] = s.buildPatientResponse(ctx, p, userID)
	}

	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}

	return &PatientListResponse{
		Patients: responses,
		Total:    total,
		Page:     page,
		Size:     len(responses),
	}, nil
}

func (s *patientService) Update(ctx context.Context, id uint, req *UpdatePatientRequest, userID uint) (*PatientResponse, error) {
	s.logger.Info("Updating patient", "patient_id", id, "user_id", userID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "patient", "update", "not the assigned caregiver")
	}

	patient, err := s.repo.Patient().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	s.applyPatientUpdate(patient, req)

	if err := s.repo.Patient().Update(ctx, s.db, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	return s.buildPatientResponse(ctx, patient, userID), nil
}

// Delete removes a patient. Profiles with recorded incidents cannot be
// deleted, the history must stay auditable.
func (s *patientService) Delete(ctx context.Context, id uint, userID uint) error {
	s.logger.Info("Deleting patient", "patient_id", id, "user_id", userID)

	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return err
	}
	if !canAccess {
		return NewPermissionError(userID, id, "patient", "delete", "not the assigned caregiver")
	}

	count, err := s.repo.Patient().CountIncidents(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to count incidents: %w", err)
	}
	if count > 0 {
		return NewBusinessRuleError("patient_has_incidents",
			"cannot delete a patient with recorded incidents")
	}

	if err := s.repo.Patient().Delete(ctx, s.db, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrPatientNotFound
		}
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	s.logger.Info("Patient deleted", "patient_id", id)
	return nil
}

func (s *patientService) GetStats(ctx context.Context, id uint, userID uint) (*repositories.PatientStats, error) {
	canAccess, err := s.CanAccess(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "patient", "read", "not the assigned caregiver")
	}

	stats, err := s.repo.Patient().GetStats(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient stats: %w", err)
	}
	return stats, nil
}

// ===== PERMISSION CHECKS =====

// CanAccess reports whether the user is the assigned caregiver or an admin.
func (s *patientService) CanAccess(ctx context.Context, patientID uint, userID uint) (bool, error) {
	isAdmin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}

	patient, err := s.repo.Patient().GetByID(ctx, s.db, patientID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrPatientNotFound
		}
		return false, fmt.Errorf("failed to get patient: %w", err)
	}

	return patient.CaregiverID == userID, nil
}

func (s *patientService) isAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Role == models.RoleAdmin, nil
}

// ===== HELPERS =====

func (s *patientService) buildPatientResponse(ctx context.Context, patient *models.PatientProfile, userID uint) *PatientResponse {
	canEdit := patient.CaregiverID == userID
	if !canEdit {
		if isAdmin, err := s.isAdmin(ctx, userID); err == nil {
			canEdit = isAdmin
		}
	}

	return &PatientResponse{
		PatientProfile: patient,
		CanEdit:        canEdit,
		CanDelete:      canEdit && patient.IncidentCount == 0,
	}
}

func (s *patientService) applyPatientUpdate(patient *models.PatientProfile, req *UpdatePatientRequest) {
	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Age != nil {
		patient.Age = req.Age
	}
	if req.Gender != nil {
		patient.Gender = req.Gender
	}
	if req.EpilepsyType != nil {
		patient.EpilepsyType = models.EpilepsyType(*req.EpilepsyType)
	}
	if req.SeizureFrequency != nil {
		patient.SeizureFrequency = models.SeizureFrequency(*req.SeizureFrequency)
	}
	if req.MedicationRegimen != nil {
		patient.MedicationRegimen = regimenJSON(req.MedicationRegimen)
	}
	if req.ElectrodeImplant != nil {
		patient.ElectrodeImplant = *req.ElectrodeImplant
	}
	if req.MonitoringType != nil {
		patient.MonitoringType = req.MonitoringType
	}
	if req.HFOBurden != nil {
		patient.HFOBurden = *req.HFOBurden
	}
}

// regimenJSON encodes the medication name list for the JSON column.
func regimenJSON(meds []string) datatypes.JSON {
	if meds == nil {
		return nil
	}
	encoded, _ := json.Marshal(meds)
	return datatypes.JSON(encoded)
}

// withTx executes a function within a transaction
func (s *patientService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

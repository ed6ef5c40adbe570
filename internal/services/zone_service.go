package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/events"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
	"github.com/safestep-care/safestep-service/internal/validator"
)

const earthRadiusM = 6371000.0

type zoneService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	patients  PatientService
	publisher events.EventPublisher
}

func NewZoneService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, patients PatientService, publisher events.EventPublisher) ZoneService {
	return &zoneService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		patients:  patients,
		publisher: publisher,
	}
}

// ===== ZONE CRUD =====

// Create registers a new geofence. Safe zones take effect immediately;
// danger zones stay pending until an admin approves them.
func (s *zoneService) Create(ctx context.Context, req *CreateZoneRequest, caregiverID uint) (*models.SafetyZone, error) {
	s.logger.Info("Creating safety zone", "patient_ref", req.PatientRef, "type", req.Type, "caregiver_id", caregiverID)

	if errors := s.validator.GetBusinessValidator().ValidateZoneCreate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAccess(ctx, req.PatientRef, caregiverID, "create"); err != nil {
		return nil, err
	}

	zone := &models.SafetyZone{
		PatientRef:     req.PatientRef,
		Name:           req.Name,
		Type:           req.Type,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		RadiusM:        req.RadiusM,
		ApprovalStatus: models.ZoneApprovalPending,
		IsActive:       true,
		Description:    req.Description,
		CaregiverID:    caregiverID,
	}
	if req.Type == models.ZoneTypeSafe {
		now := time.Now().UTC()
		zone.ApprovalStatus = models.ZoneApprovalApproved
		zone.ApprovedAt = &now
	}

	if err := s.repo.Zone().Create(ctx, s.db, zone); err != nil {
		return nil, fmt.Errorf("failed to create zone: %w", err)
	}

	s.logger.Info("Safety zone created", "zone_id", zone.ID, "approval_status", zone.ApprovalStatus)
	return zone, nil
}

func (s *zoneService) GetByID(ctx context.Context, id uint, userID uint) (*models.SafetyZone, error) {
	zone, err := s.getZone(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, zone.PatientRef, userID, "read"); err != nil {
		return nil, err
	}
	return zone, nil
}

func (s *zoneService) GetByPatient(ctx context.Context, patientID uint, userID uint) ([]*models.SafetyZone, error) {
	if err := s.requireAccess(ctx, patientID, userID, "read"); err != nil {
		return nil, err
	}

	zones, err := s.repo.Zone().GetByPatient(ctx, s.db, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	return zones, nil
}

// Update edits a zone's geometry. Changing the geometry of an approved
// danger zone sends it back through approval.
func (s *zoneService) Update(ctx context.Context, id uint, req *UpdateZoneRequest, userID uint) (*models.SafetyZone, error) {
	s.logger.Info("Updating safety zone", "zone_id", id, "user_id", userID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	zone, err := s.getZone(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, zone.PatientRef, userID, "update"); err != nil {
		return nil, err
	}

	geometryChanged := false
	if req.Name != nil {
		zone.Name = *req.Name
	}
	if req.Latitude != nil && *req.Latitude != zone.Latitude {
		zone.Latitude = *req.Latitude
		geometryChanged = true
	}
	if req.Longitude != nil && *req.Longitude != zone.Longitude {
		zone.Longitude = *req.Longitude
		geometryChanged = true
	}
	if req.RadiusM != nil && *req.RadiusM != zone.RadiusM {
		zone.RadiusM = *req.RadiusM
		geometryChanged = true
	}
	if req.Description != nil {
		zone.Description = *req.Description
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
	}

	if geometryChanged && zone.Type == models.ZoneTypeDanger {
		zone.ApprovalStatus = models.ZoneApprovalPending
		zone.ApprovedBy = nil
		zone.ApprovedAt = nil
		zone.RejectionNote = nil
	}

	if err := s.repo.Zone().Update(ctx, s.db, zone); err != nil {
		return nil, fmt.Errorf("failed to update zone: %w", err)
	}
	return zone, nil
}

func (s *zoneService) Delete(ctx context.Context, id uint, userID uint) error {
	s.logger.Info("Deleting safety zone", "zone_id", id, "user_id", userID)

	zone, err := s.getZone(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, zone.PatientRef, userID, "delete"); err != nil {
		return err
	}

	if err := s.repo.Zone().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete zone: %w", err)
	}
	return nil
}

// ===== ADMIN APPROVAL =====

func (s *zoneService) ListPending(ctx context.Context, limit, offset int) (*ZoneListResponse, error) {
	zones, total, err := s.repo.Zone().GetPendingApproval(ctx, s.db, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending zones: %w", err)
	}
	return &ZoneListResponse{Zones: zones, Total: total}, nil
}

func (s *zoneService) Approve(ctx context.Context, id uint, adminID uint) (*models.SafetyZone, error) {
	s.logger.Info("Approving safety zone", "zone_id", id, "admin_id", adminID)

	zone, err := s.getZone(ctx, id)
	if err != nil {
		return nil, err
	}
	if zone.ApprovalStatus != models.ZoneApprovalPending {
		return nil, NewBusinessRuleError("zone_not_pending",
			"zone is not awaiting approval")
	}

	now := time.Now().UTC()
	zone.ApprovalStatus = models.ZoneApprovalApproved
	zone.ApprovedBy = &adminID
	zone.ApprovedAt = &now
	zone.RejectionNote = nil

	if err := s.repo.Zone().Update(ctx, s.db, zone); err != nil {
		return nil, fmt.Errorf("failed to approve zone: %w", err)
	}
	return zone, nil
}

func (s *zoneService) Reject(ctx context.Context, id uint, note string, adminID uint) (*models.SafetyZone, error) {
	s.logger.Info("Rejecting safety zone", "zone_id", id, "admin_id", adminID)

	zone, err := s.getZone(ctx, id)
	if err != nil {
		return nil, err
	}
	if zone.ApprovalStatus != models.ZoneApprovalPending {
		return nil, NewBusinessRuleError("zone_not_pending",
			"zone is not awaiting approval")
	}

	now := time.Now().UTC()
	zone.ApprovalStatus = models.ZoneApprovalRejected
	zone.ApprovedBy = &adminID
	zone.ApprovedAt = &now
	if note != "" {
		zone.RejectionNote = &note
	}

	if err := s.repo.Zone().Update(ctx, s.db, zone); err != nil {
		return nil, fmt.Errorf("failed to reject zone: %w", err)
	}
	return zone, nil
}

// ===== LOCATION CHECKS =====

// CheckLocation tests a GPS fix against the patient's enforced zones. A
// breach is a point outside every safe zone or inside any danger zone.
// Breaches raise an emergency alert and publish a zone breach event.
func (s *zoneService) CheckLocation(ctx context.Context, req *LocationCheckRequest, userID uint) (*LocationCheckResult, error) {
	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	if err := s.requireAccess(ctx, req.PatientRef, userID, "check"); err != nil {
		return nil, err
	}

	zones, err := s.repo.Zone().GetEnforcedByPatient(ctx, s.db, req.PatientRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get enforced zones: %w", err)
	}

	result := &LocationCheckResult{PatientRef: req.PatientRef}

	var breachedZone *models.SafetyZone
	var breachedDistance float64
	hasSafeZone := false
	insideSafeZone := false

	for _, zone := range zones {
		distance := haversineM(req.Latitude, req.Longitude, zone.Latitude, zone.Longitude)
		inside := distance <= zone.RadiusM

		result.Zones = append(result.Zones, ZoneCheckStatus{
			ZoneID:    zone.ID,
			ZoneName:  zone.Name,
			ZoneType:  zone.Type,
			Inside:    inside,
			DistanceM: distance,
		})

		switch zone.Type {
		case models.ZoneTypeSafe:
			hasSafeZone = true
			if inside {
				insideSafeZone = true
			} else if breachedZone == nil {
				breachedZone = zone
				breachedDistance = distance
			}
		case models.ZoneTypeDanger:
			if inside {
				// Danger zone entry always wins over safe zone cover.
				breachedZone = zone
				breachedDistance = distance
				result.Breached = true
			}
		}
	}

	if !result.Breached && hasSafeZone && !insideSafeZone {
		result.Breached = true
	}

	if result.Breached && breachedZone != nil {
		alert, err := s.raiseBreachAlert(ctx, req, breachedZone)
		if err != nil {
			s.logger.Error("Failed to raise breach alert", "patient_ref", req.PatientRef, "error", err)
		} else {
			result.AlertID = &alert.ID
		}
		s.publishBreach(ctx, req, breachedZone, breachedDistance)
	}

	return result, nil
}

// ===== HELPERS =====

func (s *zoneService) raiseBreachAlert(ctx context.Context, req *LocationCheckRequest, zone *models.SafetyZone) (*models.EmergencyAlert, error) {
	message := fmt.Sprintf("Left safe zone %q", zone.Name)
	if zone.Type == models.ZoneTypeDanger {
		message = fmt.Sprintf("Entered danger zone %q", zone.Name)
	}

	alert := &models.EmergencyAlert{
		PatientRef:  req.PatientRef,
		TriggerKind: models.AlertTriggerZoneBreach,
		Status:      models.AlertStatusActive,
		Message:     message,
		Latitude:    &req.Latitude,
		Longitude:   &req.Longitude,
		ZoneID:      &zone.ID,
		RaisedAt:    time.Now().UTC(),
	}
	if err := s.repo.Alert().Create(ctx, s.db, alert); err != nil {
		return nil, err
	}

	s.logger.Warn("Zone breach detected", "patient_ref", req.PatientRef,
		"zone_id", zone.ID, "zone_type", zone.Type, "alert_id", alert.ID)
	return alert, nil
}

func (s *zoneService) publishBreach(ctx context.Context, req *LocationCheckRequest, zone *models.SafetyZone, distance float64) {
	patientCode := ""
	if patient, err := s.repo.Patient().GetByID(ctx, s.db, req.PatientRef); err == nil {
		patientCode = patient.PatientID
	}

	event := events.NewEvent(events.EventZoneBreachDetected, events.ZoneBreachEvent{
		PatientID:   req.PatientRef,
		PatientCode: patientCode,
		ZoneID:      zone.ID,
		ZoneName:    zone.Name,
		ZoneType:    zone.Type,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		DistanceM:   distance,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish zone breach event", "zone_id", zone.ID, "error", err)
	}
}

func (s *zoneService) getZone(ctx context.Context, id uint) (*models.SafetyZone, error) {
	zone, err := s.repo.Zone().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrZoneNotFound
		}
		return nil, fmt.Errorf("failed to get zone: %w", err)
	}
	return zone, nil
}

func (s *zoneService) requireAccess(ctx context.Context, patientID uint, userID uint, action string) error {
	canAccess, err := s.patients.CanAccess(ctx, patientID, userID)
	if err != nil {
		return err
	}
	if !canAccess {
		return NewPermissionError(userID, patientID, "zone", action, "not the assigned caregiver")
	}
	return nil
}

// haversineM computes the great-circle distance between two points in meters.
func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

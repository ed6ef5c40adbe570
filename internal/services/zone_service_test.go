package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestep-care/safestep-service/internal/events"
	"github.com/safestep-care/safestep-service/internal/models"
)

func newZoneService(env *testEnv) ZoneService {
	return NewZoneService(env.repo, env.db, env.logger, env.validator, env.patientService(), env.publisher)
}

func TestZoneService_Create_SafeZoneAutoApproved(t *testing.T) {
	env := newTestEnv(t)
	svc := newZoneService(env)

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	zone, err := svc.Create(context.Background(), &CreateZoneRequest{
		PatientRef: patient.ID,
		Name:       "Home",
		Type:       models.ZoneTypeSafe,
		Latitude:   40.0,
		Longitude:  -74.0,
		RadiusM:    500,
	}, caregiver.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ZoneApprovalApproved, zone.ApprovalStatus)
	assert.NotNil(t, zone.ApprovedAt)
	assert.True(t, zone.IsActive)
}

func TestZoneService_Create_DangerZonePending(t *testing.T) {
	env := newTestEnv(t)
	svc := newZoneService(env)

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	zone, err := svc.Create(context.Background(), &CreateZoneRequest{
		PatientRef: patient.ID,
		Name:       "Riverbank",
		Type:       models.ZoneTypeDanger,
		Latitude:   40.01,
		Longitude:  -74.0,
		RadiusM:    200,
	}, caregiver.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ZoneApprovalPending, zone.ApprovalStatus)
	assert.Nil(t, zone.ApprovedAt)
}

func TestZoneService_Create_RadiusBounds(t *testing.T) {
	env := newTestEnv(t)
	svc := newZoneService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	newRequest := func(radius float64) *CreateZoneRequest {
		return &CreateZoneRequest{
			PatientRef: patient.ID,
			Name:       "Doorstep",
			Type:       models.ZoneTypeSafe,
			Latitude:   40.0,
			Longitude:  -74.0,
			RadiusM:    radius,
		}
	}

	var validationErrors ValidationErrors

	_, err := svc.Create(ctx, newRequest(0.5), caregiver.ID)
	require.ErrorAs(t, err, &validationErrors)
	assert.Equal(t, "radius_m", validationErrors[0].Field)

	_, err = svc.Create(ctx, newRequest(20000), caregiver.ID)
	require.ErrorAs(t, err, &validationErrors)
	assert.Equal(t, "radius_m", validationErrors[0].Field)

	// Both ends of the allowed 1-10000 m range pass
	_, err = svc.Create(ctx, newRequest(1), caregiver.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, newRequest(10000), caregiver.ID)
	require.NoError(t, err)
}

func TestZoneService_ApprovalLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := newZoneService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	patient := env.createPatient(t, caregiver.ID)

	zone, err := svc.Create(ctx, &CreateZoneRequest{
		PatientRef: patient.ID,
		Name:       "Riverbank",
		Type:       models.ZoneTypeDanger,
		Latitude:   40.01,
		Longitude:  -74.0,
		RadiusM:    200,
	}, caregiver.ID)
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Total)

	approved, err := svc.Approve(ctx, zone.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ZoneApprovalApproved, approved.ApprovalStatus)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, admin.ID, *approved.ApprovedBy)

	// The zone left the pending state, so the verdict is final
	_, err = svc.Approve(ctx, zone.ID, admin.ID)
	var businessRuleError *BusinessRuleError
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "zone_not_pending", businessRuleError.Rule)

	_, err = svc.Reject(ctx, zone.ID, "too close to the school", admin.ID)
	require.ErrorAs(t, err, &businessRuleError)
}

func TestZoneService_Reject_RecordsNote(t *testing.T) {
	env := newTestEnv(t)
	svc := newZoneService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	patient := env.createPatient(t, caregiver.ID)

	zone, err := svc.Create(ctx, &CreateZoneRequest{
		PatientRef: patient.ID,
		Name:       "Parking lot",
		Type:       models.ZoneTypeDanger,
		Latitude:   40.02,
		Longitude:  -74.0,
		RadiusM:    150,
	}, caregiver.ID)
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, zone.ID, "overlaps an approved zone", admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ZoneApprovalRejected, rejected.ApprovalStatus)
	require.NotNil(t, rejected.RejectionNote)
	assert.Equal(t, "overlaps an approved zone", *rejected.RejectionNote)
}

func TestZoneService_Update_GeometryChangeResetsApproval(t *testing.T) {
	env := newTestEnv(t)
	svc := newZoneService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	patient := env.createPatient(t, caregiver.ID)

	zone, err := svc.Create(ctx, &CreateZoneRequest{
		PatientRef: patient.ID,
		Name:       "Riverbank",
		Type:       models.ZoneTypeDanger,
		Latitude:   40.01,
		Longitude:  -74.0,
		RadiusM:    200,
	}, caregiver.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, zone.ID, admin.ID)
	require.NoError(t, err)

	// Renaming alone keeps the approval
	updated, err := svc.Update(ctx, zone.ID, &UpdateZoneRequest{Name: strPtr("River east bank")}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ZoneApprovalApproved, updated.ApprovalStatus)

	// Moving the zone sends it back through review
	updated, err = svc.Update(ctx, zone.ID, &UpdateZoneRequest{RadiusM: floatPtr(400)}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ZoneApprovalPending, updated.ApprovalStatus)
	assert.Nil(t, updated.ApprovedBy)
	assert.Nil(t, updated.ApprovedAt)
}

func TestZoneService_CheckLocation(t *testing.T) {
	env := newTestEnv(t)
	svc := newZoneService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	patient := env.createPatient(t, caregiver.ID)

	_, err := svc.Create(ctx, &CreateZoneRequest{
		PatientRef: patient.ID,
		Name:       "Home",
		Type:       models.ZoneTypeSafe,
		Latitude:   40.0,
		Longitude:  -74.0,
		RadiusM:    500,
	}, caregiver.ID)
	require.NoError(t, err)

	danger, err := svc.Create(ctx, &CreateZoneRequest{
		PatientRef: patient.ID,
		Name:       "Riverbank",
		Type:       models.ZoneTypeDanger,
		Latitude:   41.0,
		Longitude:  -73.0,
		RadiusM:    200,
	}, caregiver.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, danger.ID, admin.ID)
	require.NoError(t, err)

	t.Run("inside safe zone", func(t *testing.T) {
		env.publisher.ClearEvents()
		result, err := svc.CheckLocation(ctx, &LocationCheckRequest{
			PatientRef: patient.ID,
			Latitude:   40.0005,
			Longitude:  -74.0,
		}, caregiver.ID)
		require.NoError(t, err)
		assert.False(t, result.Breached)
		assert.Nil(t, result.AlertID)
		assert.Empty(t, env.publisher.GetPublishedEvents())
	})

	t.Run("outside every safe zone", func(t *testing.T) {
		env.publisher.ClearEvents()
		// Roughly 1.1 km north of the safe zone center
		result, err := svc.CheckLocation(ctx, &LocationCheckRequest{
			PatientRef: patient.ID,
			Latitude:   40.01,
			Longitude:  -74.0,
		}, caregiver.ID)
		require.NoError(t, err)
		assert.True(t, result.Breached)
		require.NotNil(t, result.AlertID)

		published := env.publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventZoneBreachDetected, published[0].Type)
	})

	t.Run("inside danger zone", func(t *testing.T) {
		env.publisher.ClearEvents()
		result, err := svc.CheckLocation(ctx, &LocationCheckRequest{
			PatientRef: patient.ID,
			Latitude:   41.0,
			Longitude:  -73.0,
		}, caregiver.ID)
		require.NoError(t, err)
		assert.True(t, result.Breached)
		require.NotNil(t, result.AlertID)
	})
}

func TestZoneService_CheckLocation_PendingZoneNotEnforced(t *testing.T) {
	env := newTestEnv(t)
	svc := newZoneService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	// Danger zone awaiting approval must not trigger breaches
	_, err := svc.Create(ctx, &CreateZoneRequest{
		PatientRef: patient.ID,
		Name:       "Riverbank",
		Type:       models.ZoneTypeDanger,
		Latitude:   41.0,
		Longitude:  -73.0,
		RadiusM:    200,
	}, caregiver.ID)
	require.NoError(t, err)

	result, err := svc.CheckLocation(ctx, &LocationCheckRequest{
		PatientRef: patient.ID,
		Latitude:   41.0,
		Longitude:  -73.0,
	}, caregiver.ID)
	require.NoError(t, err)
	assert.False(t, result.Breached)
	assert.Empty(t, result.Zones)
}

func TestHaversineM(t *testing.T) {
	// One degree of latitude is about 111.2 km
	d := haversineM(40.0, -74.0, 41.0, -74.0)
	assert.InDelta(t, 111200, d, 1000)

	assert.Zero(t, haversineM(40.0, -74.0, 40.0, -74.0))
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

func TestPatientService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := env.patientService()
	caregiver := env.createUser(t, "caregiver1", models.RoleCaregiver)

	resp, err := svc.Create(context.Background(), &CreatePatientRequest{
		Name:             "Alex Doe",
		Age:              intPtr(14),
		Gender:           strPtr("M"),
		EpilepsyType:     "focal",
		SeizureFrequency: "weekly",
		HFOBurden:        floatPtr(12.5),
	}, caregiver.ID)
	require.NoError(t, err)

	assert.Equal(t, "sub-01", resp.PatientID)
	assert.Equal(t, models.RiskLow, resp.RiskStatus)
	assert.Equal(t, caregiver.ID, resp.CaregiverID)
	assert.True(t, resp.CanEdit)
	assert.True(t, resp.CanDelete)
}

func TestPatientService_Create_RejectsImplausibleHFOBurden(t *testing.T) {
	env := newTestEnv(t)
	svc := env.patientService()
	caregiver := env.createUser(t, "caregiver1", models.RoleCaregiver)

	_, err := svc.Create(context.Background(), &CreatePatientRequest{
		Name:      "Alex Doe",
		HFOBurden: floatPtr(5000),
	}, caregiver.ID)
	require.Error(t, err)

	var validationErrors ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
	assert.Equal(t, "hfo_burden", validationErrors[0].Field)
}

func TestPatientService_GetByID_ScopedToCaregiver(t *testing.T) {
	env := newTestEnv(t)
	svc := env.patientService()
	ctx := context.Background()

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	other := env.createUser(t, "other", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	patient := env.createPatient(t, owner.ID)

	_, err := svc.GetByID(ctx, patient.ID, owner.ID)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, patient.ID, other.ID)
	var permissionError *PermissionError
	assert.ErrorAs(t, err, &permissionError)

	// Admins can read any patient
	_, err = svc.GetByID(ctx, patient.ID, admin.ID)
	assert.NoError(t, err)
}

func TestPatientService_List_ScopedToCaregiver(t *testing.T) {
	env := newTestEnv(t)
	svc := env.patientService()
	ctx := context.Background()

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	other := env.createUser(t, "other", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)

	env.createPatient(t, owner.ID)
	env.createPatient(t, owner.ID)
	env.createPatient(t, other.ID)

	mine, err := svc.List(ctx, repositories.PatientFilters{Limit: 10}, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Total)

	all, err := svc.List(ctx, repositories.PatientFilters{Limit: 10}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)
}

func TestPatientService_Update(t *testing.T) {
	env := newTestEnv(t)
	svc := env.patientService()
	ctx := context.Background()

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	patient := env.createPatient(t, owner.ID)

	resp, err := svc.Update(ctx, patient.ID, &UpdatePatientRequest{
		Name:             strPtr("Alex Updated"),
		SeizureFrequency: strPtr("daily"),
	}, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alex Updated", resp.Name)
	assert.Equal(t, models.FrequencyDaily, resp.SeizureFrequency)
}

func TestPatientService_Delete_BlockedWithIncidents(t *testing.T) {
	env := newTestEnv(t)
	svc := env.patientService()
	ctx := context.Background()

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	patient := env.createPatient(t, owner.ID)

	incidentSvc := NewIncidentService(env.repo, env.db, env.logger, env.validator, svc, env.publisher)
	_, err := incidentSvc.Create(ctx, &CreateIncidentRequest{
		PatientRef:  patient.ID,
		Type:        models.IncidentTypeFall,
		Severity:    models.SeverityLow,
		Description: "Tripped on the stairs",
	}, owner.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, patient.ID, owner.ID)
	var businessRuleError *BusinessRuleError
	assert.ErrorAs(t, err, &businessRuleError)
}

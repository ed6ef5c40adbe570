package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestep-care/safestep-service/internal/events"
	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

func newCareService(env *testEnv) CareService {
	return NewCareService(env.repo, env.db, env.logger, env.validator, env.patientService(), env.publisher)
}

func createMedication(t *testing.T, svc CareService, patientID, userID uint) *models.Medication {
	t.Helper()
	med, err := svc.CreateMedication(context.Background(), &CreateMedicationRequest{
		PatientRef: patientID,
		Name:       "Levetiracetam",
		Dosage:     "500mg",
		Frequency:  "twice daily",
	}, userID)
	require.NoError(t, err)
	return med
}

func TestCareService_MedicationCRUD(t *testing.T) {
	env := newTestEnv(t)
	svc := newCareService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	med := createMedication(t, svc, patient.ID, caregiver.ID)
	assert.True(t, med.IsActive)
	assert.Equal(t, caregiver.ID, med.CreatedBy)

	updated, err := svc.UpdateMedication(ctx, med.ID, &CreateMedicationRequest{
		PatientRef: patient.ID,
		Name:       "Levetiracetam",
		Dosage:     "750mg",
		Frequency:  "twice daily",
	}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, "750mg", updated.Dosage)

	meds, err := svc.GetMedications(ctx, patient.ID, true, caregiver.ID)
	require.NoError(t, err)
	assert.Len(t, meds, 1)

	require.NoError(t, svc.DeleteMedication(ctx, med.ID, caregiver.ID))

	meds, err = svc.GetMedications(ctx, patient.ID, false, caregiver.ID)
	require.NoError(t, err)
	assert.Empty(t, meds)
}

func TestCareService_CreateMedication_InvertedDates(t *testing.T) {
	env := newTestEnv(t)
	svc := newCareService(env)

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	start := time.Now()
	end := start.AddDate(0, 0, -7)

	_, err := svc.CreateMedication(context.Background(), &CreateMedicationRequest{
		PatientRef: patient.ID,
		Name:       "Levetiracetam",
		Dosage:     "500mg",
		StartDate:  &start,
		EndDate:    &end,
	}, caregiver.ID)

	var validationErrors ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestCareService_LogMedication_MissedDoseCreatesIncident(t *testing.T) {
	env := newTestEnv(t)
	svc := newCareService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)
	med := createMedication(t, svc, patient.ID, caregiver.ID)

	log, err := svc.LogMedication(ctx, med.ID, &LogMedicationRequest{
		Status: models.MedLogMissed,
	}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MedLogMissed, log.Status)

	incidentType := models.IncidentTypeMissedMed
	incidents, _, err := env.repo.Incident().List(ctx, nil, repositories.IncidentFilters{
		PatientRef: &patient.ID,
		Type:       &incidentType,
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, models.SeverityLow, incidents[0].Severity)
}

func TestCareService_GetAdherence(t *testing.T) {
	env := newTestEnv(t)
	svc := newCareService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)
	med := createMedication(t, svc, patient.ID, caregiver.ID)

	// No logs yet reads as perfect adherence
	rate, err := svc.GetAdherence(ctx, patient.ID, 30, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)

	for _, status := range []string{models.MedLogTaken, models.MedLogTaken, models.MedLogTaken, models.MedLogMissed} {
		_, err := svc.LogMedication(ctx, med.ID, &LogMedicationRequest{Status: status}, caregiver.ID)
		require.NoError(t, err)
	}

	rate, err = svc.GetAdherence(ctx, patient.ID, 30, caregiver.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, rate, 0.001)
}

func TestCareService_CarePlanLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := newCareService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	plan, err := svc.CreateCarePlan(ctx, &CreateCarePlanRequest{
		PatientRef:  patient.ID,
		Title:       "Morning routine",
		Description: "Daily medication and activity checklist",
		Tasks: []CarePlanTaskRequest{
			{Title: "Morning medication", DueTime: "08:00"},
			{Title: "Check monitoring device", DueTime: "08:30"},
		},
	}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CarePlanActive, plan.Status)
	require.Len(t, plan.Tasks, 2)

	task, err := svc.AddTask(ctx, plan.ID, &CarePlanTaskRequest{Title: "Evening medication", DueTime: "20:00"}, caregiver.ID)
	require.NoError(t, err)

	done, err := svc.CompleteTask(ctx, task.ID, caregiver.ID)
	require.NoError(t, err)
	assert.True(t, done.IsDone)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.CompletedBy)
	assert.Equal(t, caregiver.ID, *done.CompletedBy)

	// Completing twice is idempotent
	again, err := svc.CompleteTask(ctx, task.ID, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, done.CompletedAt.Unix(), again.CompletedAt.Unix())

	completed, err := svc.UpdateCarePlanStatus(ctx, plan.ID, models.CarePlanCompleted, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CarePlanCompleted, completed.Status)

	_, err = svc.UpdateCarePlanStatus(ctx, plan.ID, "paused", caregiver.ID)
	var businessRuleError *BusinessRuleError
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "invalid_plan_status", businessRuleError.Rule)

	require.NoError(t, svc.DeleteTask(ctx, task.ID, caregiver.ID))
	require.NoError(t, svc.DeleteCarePlan(ctx, plan.ID, caregiver.ID))
}

func TestCareService_ContactCRUD(t *testing.T) {
	env := newTestEnv(t)
	svc := newCareService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	contact, err := svc.CreateContact(ctx, &CreateContactRequest{
		PatientRef:   patient.ID,
		Name:         "Dana Doe",
		Relationship: "parent",
		Phone:        "+1-555-0101",
	}, caregiver.ID)
	require.NoError(t, err)
	// Priority defaults to 1 when omitted
	assert.Equal(t, 1, contact.Priority)

	updated, err := svc.UpdateContact(ctx, contact.ID, &CreateContactRequest{
		PatientRef:   patient.ID,
		Name:         "Dana Doe",
		Relationship: "parent",
		Phone:        "+1-555-0102",
		Priority:     2,
	}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, "+1-555-0102", updated.Phone)
	assert.Equal(t, 2, updated.Priority)

	contacts, err := svc.GetContacts(ctx, patient.ID, caregiver.ID)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)

	require.NoError(t, svc.DeleteContact(ctx, contact.ID, caregiver.ID))
}

func TestCareService_AlertLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := newCareService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	alert, err := svc.RaiseAlert(ctx, &RaiseAlertRequest{
		PatientRef: patient.ID,
		Message:    "Patient unresponsive after seizure",
	}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusActive, alert.Status)
	assert.Equal(t, models.AlertTriggerManual, alert.TriggerKind)

	published := env.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventAlertRaised, published[0].Type)

	acked, err := svc.AcknowledgeAlert(ctx, alert.ID, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusAcknowledged, acked.Status)
	require.NotNil(t, acked.AcknowledgedBy)

	// Acknowledging leaves the active state behind
	_, err = svc.AcknowledgeAlert(ctx, alert.ID, caregiver.ID)
	var businessRuleError *BusinessRuleError
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "alert_not_active", businessRuleError.Rule)

	resolved, err := svc.ResolveAlert(ctx, alert.ID, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, resolved.Status)

	_, err = svc.ResolveAlert(ctx, alert.ID, caregiver.ID)
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "alert_already_resolved", businessRuleError.Rule)

	list, err := svc.ListAlerts(ctx, repositories.AlertFilters{PatientRef: &patient.ID, Limit: 10}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}

func TestCareService_ListAlerts_ScopedToCaregiver(t *testing.T) {
	env := newTestEnv(t)
	svc := newCareService(env)
	ctx := context.Background()

	admin := env.createUser(t, "admin", models.RoleAdmin)
	alice := env.createUser(t, "alice", models.RoleCaregiver)
	bob := env.createUser(t, "bob", models.RoleCaregiver)
	alicePatient := env.createPatient(t, alice.ID)
	bobPatient := env.createPatient(t, bob.ID)

	_, err := svc.RaiseAlert(ctx, &RaiseAlertRequest{
		PatientRef: alicePatient.ID,
		Message:    "fall detected",
	}, alice.ID)
	require.NoError(t, err)

	_, err = svc.RaiseAlert(ctx, &RaiseAlertRequest{
		PatientRef: bobPatient.ID,
		Message:    "missed check-in",
	}, bob.ID)
	require.NoError(t, err)

	// Without a patient filter a caregiver only sees their own patients' alerts
	aliceList, err := svc.ListAlerts(ctx, repositories.AlertFilters{Limit: 10}, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), aliceList.Total)
	require.Len(t, aliceList.Alerts, 1)
	assert.Equal(t, alicePatient.ID, aliceList.Alerts[0].PatientRef)

	bobList, err := svc.ListAlerts(ctx, repositories.AlertFilters{Limit: 10}, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobList.Total)
	require.Len(t, bobList.Alerts, 1)
	assert.Equal(t, bobPatient.ID, bobList.Alerts[0].PatientRef)

	// Admins see everything
	adminList, err := svc.ListAlerts(ctx, repositories.AlertFilters{Limit: 10}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), adminList.Total)

	// A caregiver filtering on another caregiver's patient is denied
	_, err = svc.ListAlerts(ctx, repositories.AlertFilters{PatientRef: &bobPatient.ID, Limit: 10}, alice.ID)
	var permissionError *PermissionError
	assert.ErrorAs(t, err, &permissionError)
}

func TestCareService_SweepStaleAlerts(t *testing.T) {
	env := newTestEnv(t)
	svc := newCareService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	stale := &models.EmergencyAlert{
		PatientRef:  patient.ID,
		TriggerKind: models.AlertTriggerManual,
		Status:      models.AlertStatusActive,
		Message:     "old alert",
		RaisedAt:    time.Now().UTC().Add(-48 * time.Hour),
	}
	require.NoError(t, env.repo.Alert().Create(ctx, nil, stale))

	fresh, err := svc.RaiseAlert(ctx, &RaiseAlertRequest{
		PatientRef: patient.ID,
		Message:    "recent alert",
	}, caregiver.ID)
	require.NoError(t, err)

	count, err := svc.SweepStaleAlerts(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	swept, err := env.repo.Alert().GetByID(ctx, nil, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, swept.Status)

	kept, err := env.repo.Alert().GetByID(ctx, nil, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusActive, kept.Status)
}

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

func newIncidentService(env *testEnv) IncidentService {
	return NewIncidentService(env.repo, env.db, env.logger, env.validator, env.patientService(), env.publisher)
}

func TestIncidentService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := newIncidentService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	incident, err := svc.Create(ctx, &CreateIncidentRequest{
		PatientRef:      patient.ID,
		Type:            models.IncidentTypeSeizure,
		Severity:        models.SeverityHigh,
		SeizureType:     strPtr("tonic-clonic"),
		DurationSeconds: intPtr(95),
	}, caregiver.ID)
	require.NoError(t, err)

	assert.Equal(t, models.IncidentStatusOpen, incident.Status)
	assert.Equal(t, caregiver.ID, incident.ReportedBy)
	assert.False(t, incident.OccurredAt.IsZero())

	// Rolling stats on the patient row are recomputed
	updated, err := env.repo.Patient().GetByID(ctx, nil, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RecentSeizureCount)
	require.NotNil(t, updated.LastIncidentDate)

	published := env.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventIncidentRecorded, published[0].Type)
}

func TestIncidentService_Create_SeizureNeedsTypeOrDuration(t *testing.T) {
	env := newTestEnv(t)
	svc := newIncidentService(env)

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	_, err := svc.Create(context.Background(), &CreateIncidentRequest{
		PatientRef: patient.ID,
		Type:       models.IncidentTypeSeizure,
		Severity:   models.SeverityMedium,
	}, caregiver.ID)

	var validationErrors ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestIncidentService_Create_DeniedForOtherCaregiver(t *testing.T) {
	env := newTestEnv(t)
	svc := newIncidentService(env)

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	other := env.createUser(t, "other", models.RoleCaregiver)
	patient := env.createPatient(t, owner.ID)

	_, err := svc.Create(context.Background(), &CreateIncidentRequest{
		PatientRef: patient.ID,
		Type:       models.IncidentTypeFall,
		Severity:   models.SeverityLow,
	}, other.ID)

	var permissionError *PermissionError
	assert.ErrorAs(t, err, &permissionError)
}

func TestIncidentService_Resolve(t *testing.T) {
	env := newTestEnv(t)
	svc := newIncidentService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	incident, err := svc.Create(ctx, &CreateIncidentRequest{
		PatientRef: patient.ID,
		Type:       models.IncidentTypeFall,
		Severity:   models.SeverityMedium,
	}, caregiver.ID)
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, incident.ID, &ResolveIncidentRequest{
		ResolutionNotes: "Checked on the patient, no injuries",
	}, caregiver.ID)
	require.NoError(t, err)

	assert.Equal(t, models.IncidentStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.RespondedBy)
	assert.Equal(t, caregiver.ID, *resolved.RespondedBy)
	// Response time is derived from elapsed time when not supplied
	require.NotNil(t, resolved.ResponseTimeSeconds)

	// Resolving twice violates the lifecycle
	_, err = svc.Resolve(ctx, incident.ID, &ResolveIncidentRequest{}, caregiver.ID)
	var businessRuleError *BusinessRuleError
	require.ErrorAs(t, err, &businessRuleError)
	assert.Equal(t, "incident_already_resolved", businessRuleError.Rule)
}

func TestIncidentService_List_ScopedToCaregiver(t *testing.T) {
	env := newTestEnv(t)
	svc := newIncidentService(env)
	ctx := context.Background()

	owner := env.createUser(t, "owner", models.RoleCaregiver)
	other := env.createUser(t, "other", models.RoleCaregiver)
	admin := env.createUser(t, "admin", models.RoleAdmin)

	mine := env.createPatient(t, owner.ID)
	theirs := env.createPatient(t, other.ID)

	for _, p := range []*models.PatientProfile{mine, theirs} {
		reporter := owner.ID
		if p.CaregiverID != owner.ID {
			reporter = other.ID
		}
		_, err := svc.Create(ctx, &CreateIncidentRequest{
			PatientRef: p.ID,
			Type:       models.IncidentTypeFall,
			Severity:   models.SeverityLow,
		}, reporter)
		require.NoError(t, err)
	}

	visible, err := svc.List(ctx, repositories.IncidentFilters{Limit: 10}, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), visible.Total)

	all, err := svc.List(ctx, repositories.IncidentFilters{Limit: 10}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
}

func TestIncidentService_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := newIncidentService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	session, err := svc.StartSession(ctx, &StartSessionRequest{
		PatientRef:  patient.ID,
		SeizureType: strPtr("absence"),
	}, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, session.Status)

	// Only one live session per patient
	_, err = svc.StartSession(ctx, &StartSessionRequest{PatientRef: patient.ID}, caregiver.ID)
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)

	active, err := svc.GetActiveSession(ctx, patient.ID, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, active.ID)

	time.Sleep(10 * time.Millisecond)

	ended, err := svc.EndSession(ctx, session.ID, &EndSessionRequest{
		Severity:      strPtr(models.SeverityHigh),
		PeakHeartRate: intPtr(140),
	}, caregiver.ID)
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusCompleted, ended.Status)
	require.NotNil(t, ended.EndedAt)
	require.NotNil(t, ended.IncidentID)

	// The derived incident carries the session's observations
	incident, err := svc.GetByID(ctx, *ended.IncidentID, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentTypeSeizure, incident.Type)
	assert.Equal(t, models.SeverityHigh, incident.Severity)
	require.NotNil(t, incident.HeartRate)
	assert.Equal(t, 140, *incident.HeartRate)

	var types []string
	for _, event := range env.publisher.GetPublishedEvents() {
		types = append(types, event.Type)
	}
	assert.Contains(t, types, events.EventSeizureSessionEnded)

	// Ending twice violates the lifecycle
	_, err = svc.EndSession(ctx, session.ID, &EndSessionRequest{}, caregiver.ID)
	require.Error(t, err)

	// No active session remains
	_, err = svc.GetActiveSession(ctx, patient.ID, caregiver.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sessions, err := svc.GetSessions(ctx, patient.ID, 10, 0, caregiver.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sessions.Total)
}

package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/safestep-care/safestep-service/internal/models"
)

func newDashboardService(env *testEnv) DashboardService {
	return NewDashboardService(env.repo, env.db, env.logger)
}

func TestDashboardService_GetOverview(t *testing.T) {
	env := newTestEnv(t)
	svc := newDashboardService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	incidents := newIncidentService(env)
	_, err := incidents.Create(ctx, &CreateIncidentRequest{
		PatientRef: patient.ID,
		Type:       models.IncidentTypeFall,
		Severity:   models.SeverityMedium,
	}, caregiver.ID)
	require.NoError(t, err)

	overview, err := svc.GetOverview(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), overview.TotalPatients)
	assert.Equal(t, int64(1), overview.TotalCaregivers)
	assert.Equal(t, int64(1), overview.OpenIncidents)
	assert.Equal(t, int64(0), overview.ActiveAlerts)
	require.Len(t, overview.RecentIncidents, 1)
	assert.Equal(t, int64(1), overview.ByType[models.IncidentTypeFall])
	assert.Equal(t, int64(1), overview.BySeverity[models.SeverityMedium])
}

func TestDashboardService_GetCaregiverStats(t *testing.T) {
	env := newTestEnv(t)
	svc := newDashboardService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	other := env.createUser(t, "other", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)
	env.createPatient(t, other.ID)

	incidents := newIncidentService(env)
	_, err := incidents.Create(ctx, &CreateIncidentRequest{
		PatientRef: patient.ID,
		Type:       models.IncidentTypeFall,
		Severity:   models.SeverityLow,
	}, caregiver.ID)
	require.NoError(t, err)

	zones := newZoneService(env)
	_, err = zones.Create(ctx, &CreateZoneRequest{
		PatientRef: patient.ID,
		Name:       "Riverbank",
		Type:       models.ZoneTypeDanger,
		Latitude:   40.0,
		Longitude:  -74.0,
		RadiusM:    200,
	}, caregiver.ID)
	require.NoError(t, err)

	stats, err := svc.GetCaregiverStats(ctx, caregiver.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalPatients)
	assert.Equal(t, 1, stats.OpenIncidents)
	assert.Equal(t, 1, stats.PendingZones)
	assert.Equal(t, 0, stats.ActiveAlerts)
}

func TestDashboardService_ExportIncidents(t *testing.T) {
	env := newTestEnv(t)
	svc := newDashboardService(env)
	ctx := context.Background()

	caregiver := env.createUser(t, "caregiver", models.RoleCaregiver)
	patient := env.createPatient(t, caregiver.ID)

	incidents := newIncidentService(env)
	_, err := incidents.Create(ctx, &CreateIncidentRequest{
		PatientRef:      patient.ID,
		Type:            models.IncidentTypeSeizure,
		Severity:        models.SeverityHigh,
		SeizureType:     strPtr("tonic-clonic"),
		DurationSeconds: intPtr(120),
		Description:     "Seizure during afternoon walk",
	}, caregiver.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	data, err := svc.ExportIncidents(ctx, now.AddDate(0, 0, -7), now.Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, data)

	// The produced workbook must be readable and carry both sheets
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Summary")
	assert.Contains(t, sheets, "Incidents")

	rows, err := f.GetRows("Incidents")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, patient.PatientID, rows[1][1])
	assert.Equal(t, models.IncidentTypeSeizure, rows[1][2])

	total, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "1", total)
}

func TestDashboardService_ExportIncidents_EmptyRange(t *testing.T) {
	env := newTestEnv(t)
	svc := newDashboardService(env)

	now := time.Now().UTC()
	data, err := svc.ExportIncidents(context.Background(), now.AddDate(0, 0, -7), now)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Incidents")
	require.NoError(t, err)
	// Header only
	require.Len(t, rows, 1)
}

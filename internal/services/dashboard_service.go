package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

const trendDays = 14

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

func (s *dashboardService) GetOverview(ctx context.Context) (*DashboardOverview, error) {
	dash := s.repo.Dashboard()
	overview := &DashboardOverview{}

	var err error
	if overview.TotalPatients, err = dash.GetTotalPatients(ctx, s.db); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	if overview.TotalCaregivers, err = dash.GetTotalCaregivers(ctx, s.db); err != nil {
		return nil, fmt.Errorf("failed to count caregivers: %w", err)
	}
	if overview.OpenIncidents, err = dash.GetOpenIncidents(ctx, s.db); err != nil {
		return nil, fmt.Errorf("failed to count open incidents: %w", err)
	}
	if overview.ActiveAlerts, err = dash.GetActiveAlerts(ctx, s.db); err != nil {
		return nil, fmt.Errorf("failed to count active alerts: %w", err)
	}
	if overview.PendingZones, err = dash.GetPendingZones(ctx, s.db); err != nil {
		return nil, fmt.Errorf("failed to count pending zones: %w", err)
	}
	if overview.OpenTickets, err = dash.GetOpenTickets(ctx, s.db); err != nil {
		return nil, fmt.Errorf("failed to count open tickets: %w", err)
	}
	if overview.RiskBreakdown, err = dash.GetRiskBreakdown(ctx, s.db); err != nil {
		return nil, fmt.Errorf("failed to get risk breakdown: %w", err)
	}
	if overview.IncidentTrend, err = dash.GetIncidentTrend(ctx, s.db, trendDays); err != nil {
		return nil, fmt.Errorf("failed to get incident trend: %w", err)
	}
	if overview.ByType, err = dash.GetIncidentsByType(ctx, s.db, 30); err != nil {
		return nil, fmt.Errorf("failed to get incidents by type: %w", err)
	}
	if overview.BySeverity, err = dash.GetIncidentsBySeverity(ctx, s.db, 30); err != nil {
		return nil, fmt.Errorf("failed to get incidents by severity: %w", err)
	}
	if overview.RecentIncidents, err = dash.GetRecentIncidents(ctx, s.db, 10); err != nil {
		return nil, fmt.Errorf("failed to get recent incidents: %w", err)
	}
	if overview.RecentAlerts, err = dash.GetRecentAlerts(ctx, s.db, 10); err != nil {
		return nil, fmt.Errorf("failed to get recent alerts: %w", err)
	}

	return overview, nil
}

func (s *dashboardService) GetCaregiverStats(ctx context.Context, caregiverID uint) (*repositories.CaregiverStats, error) {
	patients, total, err := s.repo.Patient().GetByCaregiver(ctx, s.db, caregiverID, repositories.PatientFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list caregiver patients: %w", err)
	}

	stats := &repositories.CaregiverStats{TotalPatients: int(total)}

	for _, patient := range patients {
		if patient.RiskStatus == models.RiskHigh || patient.RiskStatus == models.RiskCritical {
			stats.HighRiskCount++
		}

		open, err := s.repo.Incident().CountOpenByPatient(ctx, s.db, patient.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count open incidents: %w", err)
		}
		stats.OpenIncidents += int(open)

		alerts, err := s.repo.Alert().GetActiveByPatient(ctx, s.db, patient.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list active alerts: %w", err)
		}
		stats.ActiveAlerts += len(alerts)

		zones, err := s.repo.Zone().GetByPatient(ctx, s.db, patient.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list zones: %w", err)
		}
		for _, zone := range zones {
			if zone.ApprovalStatus == models.ZoneApprovalPending {
				stats.PendingZones++
			}
		}
	}

	finished, err := s.repo.Training().CountCompleted(ctx, s.db, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed modules: %w", err)
	}
	stats.ModulesFinished = int(finished)

	return stats, nil
}

// ExportIncidents builds the incident analytics workbook: a summary sheet
// with aggregate counts and a detail sheet with one row per incident.
func (s *dashboardService) ExportIncidents(ctx context.Context, from, to time.Time) ([]byte, error) {
	s.logger.Info("Exporting incident analytics", "from", from, "to", to)

	incidents, err := s.repo.Dashboard().GetIncidentsForExport(ctx, s.db, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load incidents for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const detailSheet = "Incidents"
	const summarySheet = "Summary"

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, fmt.Errorf("failed to create detail sheet: %w", err)
	}

	if err := s.writeSummarySheet(f, summarySheet, incidents, from, to); err != nil {
		return nil, err
	}
	if err := s.writeDetailSheet(f, detailSheet, incidents); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *dashboardService) writeSummarySheet(f *excelize.File, sheet string, incidents []*models.Incident, from, to time.Time) error {
	byType := make(map[string]int)
	bySeverity := make(map[string]int)
	resolved := 0
	for _, inc := range incidents {
		byType[inc.Type]++
		bySeverity[inc.Severity]++
		if inc.IsResolved() {
			resolved++
		}
	}

	rows := [][]interface{}{
		{"SafeStep Incident Report"},
		{"Period", from.Format("2006-01-02"), to.Format("2006-01-02")},
		{"Generated", time.Now().UTC().Format(time.RFC3339)},
		{},
		{"Total incidents", len(incidents)},
		{"Resolved", resolved},
		{"Open", len(incidents) - resolved},
		{},
		{"By type"},
	}
	for _, t := range []string{models.IncidentTypeSeizure, models.IncidentTypeFall, models.IncidentTypeZoneBreach, models.IncidentTypeMissedMed, models.IncidentTypeManualReport} {
		rows = append(rows, []interface{}{t, byType[t]})
	}
	rows = append(rows, []interface{}{}, []interface{}{"By severity"})
	for _, sev := range []string{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical} {
		rows = append(rows, []interface{}{sev, bySeverity[sev]})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

func (s *dashboardService) writeDetailSheet(f *excelize.File, sheet string, incidents []*models.Incident) error {
	header := []interface{}{
		"ID", "Patient", "Type", "Severity", "Status", "Occurred at",
		"Resolved at", "Duration (s)", "Response time (s)", "Location", "Description",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, inc := range incidents {
		patientCode := ""
		if inc.Patient != nil {
			patientCode = inc.Patient.PatientID
		}

		row := []interface{}{
			inc.ID,
			patientCode,
			inc.Type,
			inc.Severity,
			inc.Status,
			inc.OccurredAt.Format(time.RFC3339),
			formatTimePtr(inc.ResolvedAt),
			formatIntPtr(inc.DurationSeconds),
			formatIntPtr(inc.ResponseTimeSeconds),
			derefString(inc.Location),
			inc.Description,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write incident row: %w", err)
		}
	}
	return nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatIntPtr(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

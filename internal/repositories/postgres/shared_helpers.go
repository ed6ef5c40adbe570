package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyPatientFilters applies common filters to patient queries
func (h *SharedHelpers) ApplyPatientFilters(query *gorm.DB, filters repositories.PatientFilters) *gorm.DB {
	if filters.CaregiverID != nil {
		query = query.Where("caregiver_id = ?", *filters.CaregiverID)
	}
	if filters.RiskStatus != nil {
		query = query.Where("risk_status = ?", *filters.RiskStatus)
	}
	if filters.Search != nil && *filters.Search != "" {
		like := "%" + *filters.Search + "%"
		query = query.Where("name LIKE ? OR patient_id LIKE ?", like, like)
	}
	return query
}

// ApplyIncidentFilters applies common filters to incident queries
func (h *SharedHelpers) ApplyIncidentFilters(query *gorm.DB, filters repositories.IncidentFilters) *gorm.DB {
	if filters.PatientRef != nil {
		query = query.Where("patient_ref = ?", *filters.PatientRef)
	}
	if filters.CaregiverID != nil {
		query = query.Where("patient_ref IN (?)",
			query.Session(&gorm.Session{NewDB: true}).
				Model(&models.PatientProfile{}).
				Select("id").
				Where("caregiver_id = ?", *filters.CaregiverID))
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Severity != nil {
		query = query.Where("severity = ?", *filters.Severity)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("occurred_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("occurred_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":  true,
		"updated_at":  true,
		"id":          true,
		"name":        true,
		"risk_score":  true,
		"occurred_at": true,
		"severity":    true,
		"status":      true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// CountIncidentsByPatient counts all incidents recorded for a patient
func (h *SharedHelpers) CountIncidentsByPatient(ctx context.Context, patientID uint) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("patient_ref = ?", patientID).
		Count(&count).Error
	return count, err
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/safestep-care/safestep-service/internal/models"
	"github.com/safestep-care/safestep-service/internal/repositories"
)

// ===== MEDICATIONS =====

type MedicationPostgreSQL struct {
	db *gorm.DB
}

func NewMedicationPostgreSQL(db *gorm.DB) repositories.MedicationRepository {
	return &MedicationPostgreSQL{db: db}
}

func (m *MedicationPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return m.db
}

func (m *MedicationPostgreSQL) Create(ctx context.Context, tx *gorm.DB, med *models.Medication) error {
	if err := m.getDB(tx).WithContext(ctx).Create(med).Error; err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

func (m *MedicationPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Medication, error) {
	var med models.Medication
	if err := m.getDB(tx).WithContext(ctx).First(&med, id).Error; err != nil {
		return nil, err
	}
	return &med, nil
}

func (m *MedicationPostgreSQL) Update(ctx context.Context, tx *gorm.DB, med *models.Medication) error {
	if err := m.getDB(tx).WithContext(ctx).Save(med).Error; err != nil {
		return fmt.Errorf("failed to update medication: %w", err)
	}
	return nil
}

func (m *MedicationPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := m.getDB(tx).WithContext(ctx).Delete(&models.Medication{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete medication: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (m *MedicationPostgreSQL) GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint, activeOnly bool) ([]*models.Medication, error) {
	var meds []*models.Medication
	query := m.getDB(tx).WithContext(ctx).Where("patient_ref = ?", patientID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("created_at DESC").Find(&meds).Error; err != nil {
		return nil, fmt.Errorf("failed to get patient medications: %w", err)
	}
	return meds, nil
}

func (m *MedicationPostgreSQL) CreateLog(ctx context.Context, tx *gorm.DB, log *models.MedicationLog) error {
	if err := m.getDB(tx).WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create medication log: %w", err)
	}
	return nil
}

func (m *MedicationPostgreSQL) GetLogs(ctx context.Context, tx *gorm.DB, medicationID uint, from, to *time.Time) ([]*models.MedicationLog, error) {
	var logs []*models.MedicationLog
	query := m.getDB(tx).WithContext(ctx).Where("medication_id = ?", medicationID)
	if from != nil {
		query = query.Where("taken_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("taken_at <= ?", *to)
	}
	if err := query.Order("taken_at DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get medication logs: %w", err)
	}
	return logs, nil
}

// AdherenceRate reports taken/total over the window, 1.0 when no logs exist
func (m *MedicationPostgreSQL) AdherenceRate(ctx context.Context, tx *gorm.DB, patientID uint, since time.Time) (float64, error) {
	db := m.getDB(tx).WithContext(ctx)

	var total int64
	err := db.Model(&models.MedicationLog{}).
		Joins("JOIN medications ON medications.id = medication_logs.medication_id").
		Where("medications.patient_ref = ? AND medication_logs.taken_at >= ?", patientID, since).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count medication logs: %w", err)
	}
	if total == 0 {
		return 1.0, nil
	}

	var taken int64
	err = db.Model(&models.MedicationLog{}).
		Joins("JOIN medications ON medications.id = medication_logs.medication_id").
		Where("medications.patient_ref = ? AND medication_logs.taken_at >= ? AND medication_logs.status = ?",
			patientID, since, models.MedLogTaken).
		Count(&taken).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count taken logs: %w", err)
	}

	return float64(taken) / float64(total), nil
}

func (m *MedicationPostgreSQL) CountActiveByPatient(ctx context.Context, tx *gorm.DB, patientID uint) (int64, error) {
	var count int64
	err := m.getDB(tx).WithContext(ctx).
		Model(&models.Medication{}).
		Where("patient_ref = ? AND is_active = ?", patientID, true).
		Count(&count).Error
	return count, err
}

// ===== CARE PLANS =====

type CarePlanPostgreSQL struct {
	db *gorm.DB
}

func NewCarePlanPostgreSQL(db *gorm.DB) repositories.CarePlanRepository {
	return &CarePlanPostgreSQL{db: db}
}

func (c *CarePlanPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

func (c *CarePlanPostgreSQL) Create(ctx context.Context, tx *gorm.DB, plan *models.CarePlan) error {
	if err := c.getDB(tx).WithContext(ctx).Create(plan).Error; err != nil {
		return fmt.Errorf("failed to create care plan: %w", err)
	}
	return nil
}

func (c *CarePlanPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CarePlan, error) {
	var plan models.CarePlan
	err := c.getDB(tx).WithContext(ctx).
		Preload("Tasks").
		First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *CarePlanPostgreSQL) Update(ctx context.Context, tx *gorm.DB, plan *models.CarePlan) error {
	if err := c.getDB(tx).WithContext(ctx).Save(plan).Error; err != nil {
		return fmt.Errorf("failed to update care plan: %w", err)
	}
	return nil
}

func (c *CarePlanPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := c.getDB(tx).WithContext(ctx).Delete(&models.CarePlan{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete care plan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (c *CarePlanPostgreSQL) GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.CarePlan, error) {
	var plans []*models.CarePlan
	err := c.getDB(tx).WithContext(ctx).
		Preload("Tasks").
		Where("patient_ref = ?", patientID).
		Order("created_at DESC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get patient care plans: %w", err)
	}
	return plans, nil
}

func (c *CarePlanPostgreSQL) CreateTask(ctx context.Context, tx *gorm.DB, task *models.CarePlanTask) error {
	if err := c.getDB(tx).WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create care plan task: %w", err)
	}
	return nil
}

func (c *CarePlanPostgreSQL) GetTaskByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CarePlanTask, error) {
	var task models.CarePlanTask
	if err := c.getDB(tx).WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *CarePlanPostgreSQL) UpdateTask(ctx context.Context, tx *gorm.DB, task *models.CarePlanTask) error {
	if err := c.getDB(tx).WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("failed to update care plan task: %w", err)
	}
	return nil
}

func (c *CarePlanPostgreSQL) DeleteTask(ctx context.Context, tx *gorm.DB, id uint) error {
	result := c.getDB(tx).WithContext(ctx).Delete(&models.CarePlanTask{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete care plan task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ===== EMERGENCY CONTACTS =====

type ContactPostgreSQL struct {
	db *gorm.DB
}

func NewContactPostgreSQL(db *gorm.DB) repositories.ContactRepository {
	return &ContactPostgreSQL{db: db}
}

func (c *ContactPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

func (c *ContactPostgreSQL) Create(ctx context.Context, tx *gorm.DB, contact *models.EmergencyContact) error {
	if err := c.getDB(tx).WithContext(ctx).Create(contact).Error; err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (c *ContactPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.EmergencyContact, error) {
	var contact models.EmergencyContact
	if err := c.getDB(tx).WithContext(ctx).First(&contact, id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (c *ContactPostgreSQL) Update(ctx context.Context, tx *gorm.DB, contact *models.EmergencyContact) error {
	if err := c.getDB(tx).WithContext(ctx).Save(contact).Error; err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return nil
}

func (c *ContactPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := c.getDB(tx).WithContext(ctx).Delete(&models.EmergencyContact{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByPatient returns contacts ordered by priority, lowest number first
func (c *ContactPostgreSQL) GetByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.EmergencyContact, error) {
	var contacts []*models.EmergencyContact
	err := c.getDB(tx).WithContext(ctx).
		Where("patient_ref = ?", patientID).
		Order("priority ASC, created_at ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get patient contacts: %w", err)
	}
	return contacts, nil
}

// ===== EMERGENCY ALERTS =====

type AlertPostgreSQL struct {
	db *gorm.DB
}

func NewAlertPostgreSQL(db *gorm.DB) repositories.AlertRepository {
	return &AlertPostgreSQL{db: db}
}

func (a *AlertPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

func (a *AlertPostgreSQL) Create(ctx context.Context, tx *gorm.DB, alert *models.EmergencyAlert) error {
	if err := a.getDB(tx).WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (a *AlertPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.EmergencyAlert, error) {
	var alert models.EmergencyAlert
	err := a.getDB(tx).WithContext(ctx).
		Preload("Patient").
		Preload("Zone").
		First(&alert, id).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (a *AlertPostgreSQL) Update(ctx context.Context, tx *gorm.DB, alert *models.EmergencyAlert) error {
	if err := a.getDB(tx).WithContext(ctx).Save(alert).Error; err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	return nil
}

func (a *AlertPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AlertFilters) ([]*models.EmergencyAlert, int64, error) {
	var alerts []*models.EmergencyAlert
	var total int64

	query := a.getDB(tx).WithContext(ctx).Model(&models.EmergencyAlert{})
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
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Trigger != nil {
		query = query.Where("trigger_kind = ?", *filters.Trigger)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query = query.Order("raised_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Preload("Patient").Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, total, nil
}

func (a *AlertPostgreSQL) GetActiveByPatient(ctx context.Context, tx *gorm.DB, patientID uint) ([]*models.EmergencyAlert, error) {
	var alerts []*models.EmergencyAlert
	err := a.getDB(tx).WithContext(ctx).
		Where("patient_ref = ? AND status = ?", patientID, models.AlertStatusActive).
		Order("raised_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active alerts: %w", err)
	}
	return alerts, nil
}

func (a *AlertPostgreSQL) CountActive(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := a.getDB(tx).WithContext(ctx).
		Model(&models.EmergencyAlert{}).
		Where("status = ?", models.AlertStatusActive).
		Count(&count).Error
	return count, err
}

// ResolveStale closes active alerts raised before the cutoff
func (a *AlertPostgreSQL) ResolveStale(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	now := time.Now()
	result := a.getDB(tx).WithContext(ctx).
		Model(&models.EmergencyAlert{}).
		Where("status = ? AND raised_at < ?", models.AlertStatusActive, cutoff).
		Updates(map[string]interface{}{
			"status":      models.AlertStatusResolved,
			"resolved_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to resolve stale alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

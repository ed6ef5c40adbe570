package models

import (
	"time"

	"gorm.io/gorm"
)

// Zone types.
const (
	ZoneTypeSafe   = "safe"
	ZoneTypeDanger = "danger"
)

// Zone approval statuses. Danger zones require admin approval before they
// take effect; safe zones are approved on creation.
const (
	ZoneApprovalPending  = "pending"
	ZoneApprovalApproved = "approved"
	ZoneApprovalRejected = "rejected"
)

// SafetyZone is a circular geofence attached to a patient. Location checks
// test a GPS fix against all active approved zones for the patient.
type SafetyZone struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	PatientRef uint    `json:"patient_ref" gorm:"not null;index"`
	Name       string  `json:"name" gorm:"size:120;not null" validate:"required,min=2,max=120"`
	Type       string  `json:"type" gorm:"size:20;not null;index" validate:"required,oneof=safe danger"`
	Latitude   float64 `json:"latitude" gorm:"not null" validate:"min=-90,max=90"`
	Longitude  float64 `json:"longitude" gorm:"not null" validate:"min=-180,max=180"`
	RadiusM    float64 `json:"radius_m" gorm:"column:radius_m;not null" validate:"gt=0,max=50000"`

	ApprovalStatus string     `json:"approval_status" gorm:"size:20;not null;default:pending;index"`
	ApprovedBy     *uint      `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	RejectionNote  *string    `json:"rejection_note,omitempty" gorm:"size:500"`

	IsActive    bool   `json:"is_active" gorm:"default:true;index"`
	Description string `json:"description" gorm:"type:text"`
	CaregiverID uint   `json:"caregiver_id" gorm:"not null;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Patient  *PatientProfile `json:"patient,omitempty" gorm:"foreignKey:PatientRef"`
	Creator  *User           `json:"creator,omitempty" gorm:"foreignKey:CaregiverID"`
	Approver *User           `json:"approver,omitempty" gorm:"foreignKey:ApprovedBy"`
}

func (SafetyZone) TableName() string {
	return "safety_zones"
}

// IsEnforced reports whether the zone participates in location checks.
func (z *SafetyZone) IsEnforced() bool {
	return z.IsActive && z.ApprovalStatus == ZoneApprovalApproved
}

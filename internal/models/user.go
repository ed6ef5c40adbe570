package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCaregiver UserRole = "caregiver"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	Username     string   `json:"username" gorm:"uniqueIndex;not null;size:80"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:120"`
	PasswordHash string   `json:"-" gorm:"not null;size:120"`
	FirstName    string   `json:"first_name" gorm:"not null;size:50"`
	LastName     string   `json:"last_name" gorm:"not null;size:50"`
	Role         UserRole `json:"role" gorm:"default:caregiver;size:20;index"`
	IsActive     bool     `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Patients []PatientProfile `json:"patients,omitempty" gorm:"foreignKey:CaregiverID"`
	Zones    []SafetyZone     `json:"zones,omitempty" gorm:"foreignKey:CaregiverID"`
	Progress []TrainingProgress `json:"progress,omitempty" gorm:"foreignKey:UserID"`
	Tickets  []SupportTicket    `json:"tickets,omitempty" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

// FullName is a convenience for templates and exports.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

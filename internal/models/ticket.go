package models

import (
	"time"

	"gorm.io/gorm"
)

// Support ticket statuses.
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusClosed     = "closed"
)

// Support ticket priorities.
const (
	TicketPriorityLow    = "low"
	TicketPriorityNormal = "normal"
	TicketPriorityHigh   = "high"
)

// SupportTicket is a help request filed by a caregiver and handled by an
// administrator.
type SupportTicket struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	UserID   uint   `json:"user_id" gorm:"not null;index"`
	Subject  string `json:"subject" gorm:"size:200;not null" validate:"required,min=3,max=200"`
	Body     string `json:"body" gorm:"type:text" validate:"required,min=5"`
	Status   string `json:"status" gorm:"size:20;not null;default:open;index"`
	Priority string `json:"priority" gorm:"size:20;not null;default:normal" validate:"omitempty,oneof=low normal high"`

	AssignedTo *uint      `json:"assigned_to,omitempty"`
	Response   string     `json:"response" gorm:"type:text"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User     *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Assignee *User `json:"assignee,omitempty" gorm:"foreignKey:AssignedTo"`
}

func (SupportTicket) TableName() string {
	return "support_tickets"
}

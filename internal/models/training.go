package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Training difficulty levels.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// TrainingModule is a caregiver training unit (first aid, device handling,
// seizure response and so on) published by administrators.
type TrainingModule struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	Title           string `json:"title" gorm:"size:200;not null" validate:"required,min=3,max=200"`
	Description     string `json:"description" gorm:"type:text"`
	Category        string `json:"category" gorm:"size:100;index"`
	Difficulty      string `json:"difficulty" gorm:"size:20;default:beginner" validate:"omitempty,oneof=beginner intermediate advanced"`
	DurationMinutes int    `json:"duration_minutes" gorm:"default:0" validate:"min=0"`
	ContentURL      string `json:"content_url" gorm:"size:500"`
	VideoURL        string `json:"video_url" gorm:"size:500"`
	IsPublished     bool   `json:"is_published" gorm:"default:true;index"`
	CreatedBy       uint   `json:"created_by" gorm:"not null"`

	// Quiz question list with options and the correct answer index.
	QuizQuestions datatypes.JSON `json:"quiz_questions,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Progress []TrainingProgress `json:"progress,omitempty" gorm:"foreignKey:ModuleID"`
}

func (TrainingModule) TableName() string {
	return "training_modules"
}

// TrainingProgress tracks a single user's completion percentage for one
// module. One row per user and module; progress never decreases.
type TrainingProgress struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	UserID   uint `json:"user_id" gorm:"not null;uniqueIndex:idx_training_user_module"`
	ModuleID uint `json:"module_id" gorm:"not null;uniqueIndex:idx_training_user_module"`

	Percent     int        `json:"percent" gorm:"not null;default:0" validate:"min=0,max=100"`
	QuizScore   *int       `json:"quiz_score,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User   *User           `json:"-" gorm:"foreignKey:UserID"`
	Module *TrainingModule `json:"module,omitempty" gorm:"foreignKey:ModuleID"`
}

func (TrainingProgress) TableName() string {
	return "training_progress"
}

// IsCompleted reports whether the module has been finished.
func (p *TrainingProgress) IsCompleted() bool {
	return p.Percent >= 100
}

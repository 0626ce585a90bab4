package models

import "time"

type AssignmentStatus string

const (
	AssignmentNotStarted AssignmentStatus = "not_started"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

// Assignment binds one user to one module's required completion. The
// (user_id, module_id) pair is unique so fan-out stays idempotent.
type Assignment struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	UserID   uint `json:"user_id" gorm:"not null;uniqueIndex:idx_user_module"`
	ModuleID uint `json:"module_id" gorm:"not null;uniqueIndex:idx_user_module"`

	Status   AssignmentStatus `json:"status" gorm:"default:not_started;index"`
	Score    *float64         `json:"score"`
	Attempts int              `json:"attempts" gorm:"not null;default:0"`

	// Timing
	AssignedAt  time.Time  `json:"assigned_at" gorm:"not null"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User    User             `json:"-" gorm:"foreignKey:UserID"`
	Module  TrainingModule   `json:"module,omitempty" gorm:"foreignKey:ModuleID"`
	Answers []AssignmentAnswer `json:"answers,omitempty" gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// AssignmentAnswer records the option a user selected for one question,
// snapshotted with its correctness at evaluation time. Editing a module
// later never rewrites these rows.
type AssignmentAnswer struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	AssignmentID uint `json:"assignment_id" gorm:"not null;uniqueIndex:idx_assignment_question"`
	QuestionID   uint `json:"question_id" gorm:"not null;uniqueIndex:idx_assignment_question"`

	SelectedOptionID uint `json:"selected_option_id" gorm:"not null"`
	IsCorrect        bool `json:"is_correct" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assignment     Assignment `json:"-" gorm:"foreignKey:AssignmentID"`
	Question       Question   `json:"-" gorm:"foreignKey:QuestionID"`
	SelectedOption Option     `json:"-" gorm:"foreignKey:SelectedOptionID"`
}

func (AssignmentAnswer) TableName() string {
	return "assignment_answers"
}

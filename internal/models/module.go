package models

import (
	"time"

	"gorm.io/gorm"
)

type ModuleStatus string

const (
	ModuleDraft     ModuleStatus = "draft"
	ModulePublished ModuleStatus = "published"
	ModuleRetired   ModuleStatus = "retired"
)

// TrainingModule is a unit of training content with an ordered question set.
type TrainingModule struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	Title        string  `json:"title" gorm:"uniqueIndex;not null;size:150"`
	Description  string  `json:"description" gorm:"type:text;not null"`
	Instructions string  `json:"instructions" gorm:"type:text;not null"`
	VideoURL     *string `json:"video_url" gorm:"size:300"`

	Status ModuleStatus `json:"status" gorm:"default:draft;index"`
	Active bool         `json:"active" gorm:"default:true;index"`

	CreatedBy uint           `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions   []Question       `json:"questions,omitempty" gorm:"foreignKey:ModuleID"`
	Assignments []Assignment     `json:"-" gorm:"foreignKey:ModuleID"`
	Steps       []OnboardingStep `json:"-" gorm:"foreignKey:ModuleID"`
	Creator     User             `json:"-" gorm:"foreignKey:CreatedBy"`

	// Computed fields (not stored)
	QuestionCount int `json:"question_count" gorm:"-"`
}

func (TrainingModule) TableName() string {
	return "training_modules"
}

// OnboardingPath is an ordered sequence of steps assigned to new starters.
type OnboardingPath struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null;size:100"`

	Steps []OnboardingStep `json:"steps,omitempty" gorm:"foreignKey:PathID;constraint:OnDelete:CASCADE"`
}

func (OnboardingPath) TableName() string {
	return "onboarding_paths"
}

type OnboardingStep struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"not null;size:150"`
	Position int    `json:"position" gorm:"not null;default:0"`

	PathID uint           `json:"path_id" gorm:"not null;index"`
	Path   OnboardingPath `json:"-" gorm:"foreignKey:PathID"`

	ModuleID *uint           `json:"module_id" gorm:"index"`
	Module   *TrainingModule `json:"module,omitempty" gorm:"foreignKey:ModuleID"`
}

func (OnboardingStep) TableName() string {
	return "onboarding_steps"
}

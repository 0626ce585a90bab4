package models

import "time"

// Every question carries exactly OptionsPerQuestion options, exactly one of
// which is marked correct. The authoring transaction enforces both counts.
const (
	OptionsPerQuestion = 4
	CorrectPerQuestion = 1
)

type Question struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	ModuleID uint   `json:"module_id" gorm:"not null;index"`
	Text     string `json:"text" gorm:"not null;size:1000"`
	Position int    `json:"position" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Module  TrainingModule `json:"-" gorm:"foreignKey:ModuleID"`
	Options []Option       `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectOption returns the option flagged correct, or nil when the row set
// is inconsistent (should not happen past authoring validation).
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"not null;size:500"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`

	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
}

func (Option) TableName() string {
	return "options"
}

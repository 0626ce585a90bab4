package models

import (
	"time"

	"gorm.io/datatypes"
)

type ReportType string

const (
	ReportCompletion  ReportType = "completion"
	ReportPerformance ReportType = "performance"
)

// Report stores a generated snapshot so exports do not rerun aggregation.
type Report struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Type        ReportType     `json:"type" gorm:"not null;size:20;index"`
	Description string         `json:"description" gorm:"not null;size:255"`
	Payload     datatypes.JSON `json:"payload" gorm:"type:jsonb"`

	CreatedBy uint      `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (Report) TableName() string {
	return "reports"
}

package models

import "time"

type DocumentCategory string

const (
	DocumentPolicy DocumentCategory = "policy"
	DocumentGuide  DocumentCategory = "guide"
	DocumentForm   DocumentCategory = "form"
)

type Document struct {
	ID       uint             `json:"id" gorm:"primaryKey"`
	Title    string           `json:"title" gorm:"not null;size:150"`
	Category DocumentCategory `json:"category" gorm:"not null;size:20;index"`
	FilePath string           `json:"file_path" gorm:"not null;size:300"`

	UploadedBy uint      `json:"uploaded_by" gorm:"not null;index"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"not null"`

	Uploader User `json:"-" gorm:"foreignKey:UploadedBy"`
}

func (Document) TableName() string {
	return "documents"
}

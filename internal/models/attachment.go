package models

import (
	"time"

	"gorm.io/gorm"
)

// Attachment is file metadata owned by a concept paper. The stored bytes live
// outside the database; deleting a paper marks attachments deleted first and
// physical cleanup runs as a separate best-effort pass.
type Attachment struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ConceptPaperID uint           `gorm:"not null;index" json:"concept_paper_id"`
	UploadedByID   uint           `gorm:"not null" json:"uploaded_by_id"`
	UploadedBy     *User          `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
	FileName       string         `gorm:"size:255;not null" json:"file_name"`
	FilePath       string         `gorm:"size:500;not null" json:"file_path"`
	FileSize       int64          `gorm:"not null" json:"file_size"`
	MimeType       string         `gorm:"size:120" json:"mime_type"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (Attachment) TableName() string {
	return "attachments"
}

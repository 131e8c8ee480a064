package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document is one uploaded file, deduplicated by the SHA-256 of its raw
// bytes. Re-uploads of identical bytes resolve to the existing row.
type Document struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	FileName string `gorm:"column:file_name;not null" json:"file_name"`
	MimeType string `gorm:"column:mime_type;not null;default:''" json:"mime_type"`
	FileSize int64  `gorm:"column:file_size;not null;default:0" json:"file_size"`

	ContentHash string `gorm:"column:content_hash;uniqueIndex;not null" json:"content_hash"`

	ExtractedText string `gorm:"column:extracted_text;type:text;not null;default:''" json:"extracted_text"`

	UploadedAt time.Time `gorm:"column:uploaded_at;not null" json:"uploaded_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

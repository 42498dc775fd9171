package models

import (
	"time"
)

type Attachment struct {
	ID        uint   `gorm:"primaryKey" json:"attachment_id"`
	MessageID uint   `gorm:"not null;index" json:"message_id"`
	FileURL   string `gorm:"size:512;not null" json:"file_url"`
	FileType  string `gorm:"size:100" json:"file_type"`
	FileName  string `gorm:"size:255" json:"file_name"`
	FileSize  int64  `json:"file_size"`

	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

type Message struct {
	ID             uint      `gorm:"primaryKey" json:"message_id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	MessageType    string    `gorm:"size:20;not null;default:'text'" json:"message_type"`
	IsDeleted      bool      `gorm:"default:false" json:"-"`

	CreatedAt  time.Time  `json:"created_at"`
	ModifiedAt *time.Time `json:"modified_at"`

	Sender          User            `gorm:"foreignKey:SenderID" json:"sender"`
	Attachments     []Attachment    `gorm:"foreignKey:MessageID" json:"attachments"`
	MessageStatuses []MessageStatus `gorm:"foreignKey:MessageID" json:"message_statuses"`
}

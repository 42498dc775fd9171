package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// MessageStatus tracks per-recipient delivery state. At most one row exists
// per (message, user); later writes supersede earlier ones.
type MessageStatus struct {
	MessageID uint      `gorm:"primaryKey" json:"message_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`

	Status          string    `gorm:"size:20;not null" json:"status"`
	StatusTimestamp time.Time `json:"status_timestamp"`
}

package models

import (
	"time"
)

const (
	ConversationTypeDirect = "direct"
	ConversationTypeGroup  = "group"
)

type Conversation struct {
	ID       uint    `gorm:"primaryKey" json:"conversation_id"`
	Type     string  `gorm:"size:20;not null;default:'direct'" json:"type"`
	Title    *string `gorm:"size:255" json:"title"`
	IsActive bool    `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID" json:"-"`
}

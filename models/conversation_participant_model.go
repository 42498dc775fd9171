package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationParticipant is one user's membership window in a conversation.
// A row with LeftAt unset is an active membership; rejoining after a leave
// reopens the same (conversation_id, user_id) row with a fresh JoinedAt.
type ConversationParticipant struct {
	ConversationID uint      `gorm:"primaryKey" json:"conversation_id"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`

	JoinedAt   time.Time  `json:"joined_at"`
	LeftAt     *time.Time `json:"left_at"`
	IsAdmin    bool       `gorm:"default:false" json:"is_admin"`
	LastReadAt *time.Time `json:"last_read_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

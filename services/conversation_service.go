package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/c-pro/geche"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smiletime/smiletime-api/apperrors"
	"github.com/smiletime/smiletime-api/models"
)

// membershipTTL bounds how long a cached participant check may lag behind a
// membership change made outside this service instance. Changes made through
// this service invalidate the cache immediately.
const membershipTTL = 30 * time.Second

type ConversationService struct {
	db      *gorm.DB
	members geche.Geche[string, bool]
}

func NewConversationService(ctx context.Context, db *gorm.DB) *ConversationService {
	return &ConversationService{
		db:      db,
		members: geche.NewMapTTLCache[string, bool](ctx, membershipTTL, time.Minute),
	}
}

// ConversationWithLastMessage pairs a conversation with its most recent
// non-deleted message, or nil for an empty conversation.
type ConversationWithLastMessage struct {
	Conversation models.Conversation `json:"conversation"`
	LastMessage  *models.Message     `json:"last_message"`
}

func membershipKey(conversationID uint, userID uuid.UUID) string {
	return fmt.Sprintf("%d:%s", conversationID, userID)
}

// IsParticipant reports whether the user has an active (non-left) membership
// in the conversation. This is the authorization primitive for every
// conversation and message read.
func (s *ConversationService) IsParticipant(conversationID uint, userID uuid.UUID) (bool, error) {
	key := membershipKey(conversationID, userID)
	if cached, err := s.members.Get(key); err == nil {
		return cached, nil
	}

	var count int64
	err := s.db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.StoreFailure("checking conversation membership", err)
	}

	active := count > 0
	s.members.Set(key, active)
	return active, nil
}

// GetConversationsForUser lists the conversations the user actively
// participates in, most recently updated first, each with its last
// non-deleted message as a preview.
func (s *ConversationService) GetConversationsForUser(userID uuid.UUID) ([]ConversationWithLastMessage, error) {
	var conversations []models.Conversation
	err := s.db.
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ? AND cp.left_at IS NULL", userID).
		Order("conversations.updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, apperrors.StoreFailure("listing conversations", err)
	}

	result := make([]ConversationWithLastMessage, 0, len(conversations))
	for _, conversation := range conversations {
		var last models.Message
		err := s.db.
			Where("conversation_id = ? AND is_deleted = ?", conversation.ID, false).
			Order("created_at DESC, id DESC").
			Preload("Sender").
			First(&last).Error
		entry := ConversationWithLastMessage{Conversation: conversation}
		switch {
		case err == nil:
			entry.LastMessage = &last
		case errors.Is(err, gorm.ErrRecordNotFound):
			// empty conversation, no preview
		default:
			return nil, apperrors.StoreFailure("loading last message", err)
		}
		result = append(result, entry)
	}
	return result, nil
}

// GetConversationByID returns the conversation with its participants. It
// fails with NotFound for an absent conversation and Forbidden for a
// requester without an active membership.
func (s *ConversationService) GetConversationByID(conversationID uint, requestingUserID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.
		Preload("Participants").
		Preload("Participants.User").
		First(&conversation, conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("conversation not found")
	}
	if err != nil {
		return nil, apperrors.StoreFailure("loading conversation", err)
	}

	active, err := s.IsParticipant(conversationID, requestingUserID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperrors.Forbidden("user is not a participant of this conversation")
	}

	return &conversation, nil
}

// CreateConversation persists a conversation and its initial participant
// rows atomically. The creator is added as an admin participant if not
// already listed.
func (s *ConversationService) CreateConversation(creatorID uuid.UUID, participantIDs []uuid.UUID, convType string, title *string) (*models.Conversation, error) {
	if len(participantIDs) == 0 {
		return nil, apperrors.InvalidArgument("conversation must have at least one participant")
	}
	if convType == "" {
		convType = models.ConversationTypeDirect
	}
	if convType != models.ConversationTypeDirect && convType != models.ConversationTypeGroup {
		return nil, apperrors.InvalidArgument("conversation type must be direct or group")
	}

	ids := dedupeIDs(append([]uuid.UUID{creatorID}, participantIDs...))

	var count int64
	if err := s.db.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return nil, apperrors.StoreFailure("validating participants", err)
	}
	if count != int64(len(ids)) {
		return nil, apperrors.NotFound("one or more participants do not exist")
	}

	now := time.Now()
	conversation := models.Conversation{
		Type:     convType,
		Title:    title,
		IsActive: true,
	}
	for _, id := range ids {
		conversation.Participants = append(conversation.Participants, models.ConversationParticipant{
			UserID:   id,
			JoinedAt: now,
			IsAdmin:  id == creatorID,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&conversation).Error
	})
	if err != nil {
		return nil, apperrors.StoreFailure("creating conversation", err)
	}

	for _, id := range ids {
		s.members.Set(membershipKey(conversation.ID, id), true)
	}
	return &conversation, nil
}

// ListConversationPartners returns every user sharing at least one
// conversation with userID, deduplicated and excluding userID itself.
func (s *ConversationService) ListConversationPartners(userID uuid.UUID) ([]models.User, error) {
	var partners []models.User
	err := s.db.Model(&models.User{}).
		Distinct("users.*").
		Joins("JOIN conversation_participants cp ON cp.user_id = users.id").
		Joins("JOIN conversation_participants me ON me.conversation_id = cp.conversation_id AND me.user_id = ?", userID).
		Where("users.id <> ?", userID).
		Find(&partners).Error
	if err != nil {
		return nil, apperrors.StoreFailure("listing conversation partners", err)
	}
	return partners, nil
}

// LeaveConversation closes the user's membership window by setting LeftAt.
// The cached membership is dropped so authorization checks see the leave
// immediately.
func (s *ConversationService) LeaveConversation(conversationID uint, userID uuid.UUID) error {
	res := s.db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Update("left_at", time.Now())
	if res.Error != nil {
		return apperrors.StoreFailure("leaving conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("active membership not found")
	}
	_ = s.members.Del(membershipKey(conversationID, userID))
	return nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

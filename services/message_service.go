package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smiletime/smiletime-api/apperrors"
	"github.com/smiletime/smiletime-api/models"
)

const MessagePageSize = 50

type MessageService struct {
	db            *gorm.DB
	conversations *ConversationService
}

func NewMessageService(db *gorm.DB, conversations *ConversationService) *MessageService {
	return &MessageService{db: db, conversations: conversations}
}

type PagedMessages struct {
	Items       []models.Message `json:"items"`
	CurrentPage int              `json:"current_page"`
	PageSize    int              `json:"page_size"`
	TotalItems  int64            `json:"total_items"`
	TotalPages  int              `json:"total_pages"`
}

type CreateMessageInput struct {
	ConversationID uint
	SenderID       uuid.UUID
	Content        string
	MessageType    string
	Attachments    []models.Attachment
}

// ListMessages returns one page of a conversation's non-deleted messages,
// newest first, with the message id as tie-break so two messages created in
// the same instant keep a stable order across pages. Pages are 1-indexed;
// page values below 1 are clamped to 1.
//
// Pagination is read committed, not linearizable: a message inserted while a
// client walks the pages may show up on a later page or be missed by the
// in-flight read.
func (s *MessageService) ListMessages(conversationID uint, userID uuid.UUID, page int) (*PagedMessages, error) {
	active, err := s.conversations.IsParticipant(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperrors.Forbidden("user is not a participant of this conversation")
	}

	if page < 1 {
		page = 1
	}

	var total int64
	err = s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Count(&total).Error
	if err != nil {
		return nil, apperrors.StoreFailure("counting messages", err)
	}

	var items []models.Message
	err = s.db.
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Order("created_at DESC, id DESC").
		Limit(MessagePageSize).
		Offset((page - 1) * MessagePageSize).
		Preload("Sender").
		Preload("Attachments").
		Preload("MessageStatuses").
		Find(&items).Error
	if err != nil {
		return nil, apperrors.StoreFailure("listing messages", err)
	}

	totalPages := int((total + MessagePageSize - 1) / MessagePageSize)
	return &PagedMessages{
		Items:       items,
		CurrentPage: page,
		PageSize:    MessagePageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
	}, nil
}

// ListMessagesBySender returns the user's own non-deleted messages across
// all conversations, oldest first.
func (s *MessageService) ListMessagesBySender(userID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.
		Where("sender_id = ? AND is_deleted = ?", userID, false).
		Order("created_at ASC, id ASC").
		Preload("Sender").
		Preload("Attachments").
		Preload("MessageStatuses").
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.StoreFailure("listing messages by sender", err)
	}
	return messages, nil
}

// CreateMessage persists a message with its attachments and an initial
// "sent" status row per recipient, all in one transaction. The sender must
// be an active participant of the conversation.
func (s *MessageService) CreateMessage(input CreateMessageInput) (*models.Message, error) {
	if input.ConversationID == 0 {
		return nil, apperrors.InvalidArgument("conversation id is required")
	}
	if input.Content == "" {
		return nil, apperrors.InvalidArgument("message content is required")
	}
	if input.MessageType == "" {
		return nil, apperrors.InvalidArgument("message type is required")
	}

	var conversation models.Conversation
	err := s.db.First(&conversation, input.ConversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("conversation not found")
	}
	if err != nil {
		return nil, apperrors.StoreFailure("loading conversation", err)
	}

	active, err := s.conversations.IsParticipant(input.ConversationID, input.SenderID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperrors.Forbidden("sender is not a participant of this conversation")
	}

	message := models.Message{
		ConversationID: input.ConversationID,
		SenderID:       input.SenderID,
		Content:        input.Content,
		MessageType:    input.MessageType,
		Attachments:    input.Attachments,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		var recipientIDs []uuid.UUID
		err := tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id <> ? AND left_at IS NULL", input.ConversationID, input.SenderID).
			Pluck("user_id", &recipientIDs).Error
		if err != nil {
			return err
		}

		if len(recipientIDs) > 0 {
			now := time.Now()
			statuses := make([]models.MessageStatus, 0, len(recipientIDs))
			for _, recipientID := range recipientIDs {
				statuses = append(statuses, models.MessageStatus{
					MessageID:       message.ID,
					UserID:          recipientID,
					Status:          models.MessageStatusSent,
					StatusTimestamp: now,
				})
			}
			if err := tx.Create(&statuses).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Conversation{}).
			Where("id = ?", input.ConversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, apperrors.StoreFailure("creating message", err)
	}

	if err := s.db.Preload("Sender").Preload("Attachments").Preload("MessageStatuses").
		First(&message, message.ID).Error; err != nil {
		return nil, apperrors.StoreFailure("reloading message", err)
	}
	return &message, nil
}

// DeleteMessage soft-deletes the sender's own message. The row is retained;
// every read path filters on the flag.
func (s *MessageService) DeleteMessage(messageID uint, userID uuid.UUID) error {
	var message models.Message
	err := s.db.First(&message, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("message not found")
	}
	if err != nil {
		return apperrors.StoreFailure("loading message", err)
	}
	if message.SenderID != userID {
		return apperrors.Forbidden("only the sender may delete a message")
	}

	now := time.Now()
	err = s.db.Model(&message).Updates(map[string]interface{}{
		"is_deleted":  true,
		"modified_at": now,
	}).Error
	if err != nil {
		return apperrors.StoreFailure("deleting message", err)
	}
	return nil
}

// MarkConversationRead records the reader's LastReadAt and supersedes the
// status rows of every unread message addressed to them with "read".
func (s *MessageService) MarkConversationRead(conversationID uint, userID uuid.UUID) error {
	active, err := s.conversations.IsParticipant(conversationID, userID)
	if err != nil {
		return err
	}
	if !active {
		return apperrors.Forbidden("user is not a participant of this conversation")
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Update("last_read_at", now).Error
		if err != nil {
			return err
		}

		var messageIDs []uint
		err = tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_deleted = ?", conversationID, userID, false).
			Pluck("id", &messageIDs).Error
		if err != nil {
			return err
		}
		if len(messageIDs) == 0 {
			return nil
		}

		statuses := make([]models.MessageStatus, 0, len(messageIDs))
		for _, messageID := range messageIDs {
			statuses = append(statuses, models.MessageStatus{
				MessageID:       messageID,
				UserID:          userID,
				Status:          models.MessageStatusRead,
				StatusTimestamp: now,
			})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "status_timestamp"}),
		}).Create(&statuses).Error
	})
	if err != nil {
		return apperrors.StoreFailure("marking conversation read", err)
	}
	return nil
}

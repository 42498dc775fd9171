package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/smiletime/smiletime-api/apperrors"
	"github.com/smiletime/smiletime-api/middleware"
	"github.com/smiletime/smiletime-api/models"
	"github.com/smiletime/smiletime-api/services"
)

func conversationIDParam(c *fiber.Ctx) (uint, error) {
	raw := c.Params("conversationId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.InvalidArgument("conversation id must be a positive integer")
	}
	return uint(id), nil
}

func GetUserConversations(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}

	conversations, err := conversationService.GetConversationsForUser(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conversations)
}

func GetConversationByID(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	conversationID, err := conversationIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	conversation, err := conversationService.GetConversationByID(conversationID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conversation)
}

func GetConversationPartners(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}

	partners, err := conversationService.ListConversationPartners(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(partners)
}

type CreateConversationRequest struct {
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1,dive,uuid"`
	Type           string   `json:"type" validate:"omitempty,oneof=direct group"`
	Title          *string  `json:"title"`
}

func CreateConversation(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.InvalidArgument("cannot parse JSON"))
	}
	if err := validate.Struct(req); err != nil {
		return respondError(c, apperrors.InvalidArgument(err.Error()))
	}

	participantIDs := make([]uuid.UUID, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return respondError(c, apperrors.InvalidArgument("invalid participant id"))
		}
		participantIDs = append(participantIDs, id)
	}

	conversation, err := conversationService.CreateConversation(userID, participantIDs, req.Type, req.Title)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conversation)
}

func LeaveConversation(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	conversationID, err := conversationIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := conversationService.LeaveConversation(conversationID, userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "left"})
}

func MarkConversationRead(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	conversationID, err := conversationIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := messageService.MarkConversationRead(conversationID, userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "read"})
}

func GetConversationMessages(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	conversationID, err := conversationIDParam(c)
	if err != nil {
		return respondError(c, err)
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))

	messages, err := messageService.ListMessages(conversationID, userID, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

type AttachmentRequest struct {
	FileURL  string `json:"file_url" validate:"required,url"`
	FileType string `json:"file_type"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

type CreateMessageRequest struct {
	ConversationID uint                `json:"conversation_id" validate:"required"`
	Content        string              `json:"content" validate:"required"`
	MessageType    string              `json:"message_type" validate:"required,oneof=text image file"`
	Attachments    []AttachmentRequest `json:"attachments" validate:"dive"`
}

func CreateMessage(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.InvalidArgument("cannot parse JSON"))
	}
	if err := validate.Struct(req); err != nil {
		return respondError(c, apperrors.InvalidArgument(err.Error()))
	}

	attachments := make([]models.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, models.Attachment{
			FileURL:  a.FileURL,
			FileType: a.FileType,
			FileName: a.FileName,
			FileSize: a.FileSize,
		})
	}

	message, err := messageService.CreateMessage(services.CreateMessageInput{
		ConversationID: req.ConversationID,
		SenderID:       userID,
		Content:        req.Content,
		MessageType:    req.MessageType,
		Attachments:    attachments,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

func GetMyMessages(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}

	messages, err := messageService.ListMessagesBySender(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

func DeleteMessage(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	raw := c.Params("messageId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return respondError(c, apperrors.InvalidArgument("message id must be a positive integer"))
	}

	if err := messageService.DeleteMessage(uint(id), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

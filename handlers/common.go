package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/smiletime/smiletime-api/apperrors"
	"github.com/smiletime/smiletime-api/services"
	"github.com/smiletime/smiletime-api/websocket"
)

var validate = validator.New()

var (
	conversationService *services.ConversationService
	messageService      *services.MessageService
	hub                 *websocket.Hub
)

// InitMessaging wires the handler package to the shared hub and stores.
// Called once from main before routes are registered.
func InitMessaging(ctx context.Context, db *gorm.DB, h *websocket.Hub) {
	conversationService = services.NewConversationService(ctx, db)
	messageService = services.NewMessageService(db, conversationService)
	hub = h
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindForbidden:
		return fiber.StatusForbidden
	case apperrors.KindInvalidArgument:
		return fiber.StatusBadRequest
	case apperrors.KindUnauthenticated:
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return c.Status(statusForKind(appErr.Kind)).JSON(fiber.Map{
			"kind":  appErr.Kind.String(),
			"error": appErr.Message,
		})
	}
	log.Printf("Unhandled error: %v | Path: %s", err, c.Path())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

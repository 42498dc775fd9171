package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smiletime/smiletime-api/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// one shared in-memory database per test, named after the test so
	// parallel packages don't collide
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.MessageStatus{},
		&models.Attachment{},
	))
	return db
}

func newTestServices(t *testing.T) (*gorm.DB, *ConversationService, *MessageService) {
	t.Helper()
	db := newTestDB(t)
	conversations := NewConversationService(context.Background(), db)
	messages := NewMessageService(db, conversations)
	return db, conversations, messages
}

func seedUser(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()
	user := models.User{
		UserName: name,
		Email:    name + "@example.com",
		Password: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

func seedConversation(t *testing.T, db *gorm.DB, svc *ConversationService, creator uuid.UUID, others ...uuid.UUID) *models.Conversation {
	t.Helper()
	conversation, err := svc.CreateConversation(creator, others, models.ConversationTypeGroup, nil)
	require.NoError(t, err)
	return conversation
}

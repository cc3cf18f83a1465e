package chats

import (
	"github.com/ahqrt/chatter-backend/internal/database"
	"github.com/ahqrt/chatter-backend/internal/models"
	"github.com/ahqrt/chatter-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// CollectionName is the Mongo collection holding chats.
const CollectionName = "chats"

type ChatRepository = database.Repository[models.Chat]

func NewMongoChatRepository(col *mongo.Collection) *database.MongoRepository[models.Chat] {
	return database.NewMongoRepository[models.Chat](col, logger.New("ChatsRepository"))
}

func NewMemoryChatRepository() *database.MemoryRepository[models.Chat] {
	return database.NewMemoryRepository[models.Chat](CollectionName, logger.New("ChatsRepository"))
}

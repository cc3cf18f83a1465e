package models

import (
	"time"

	"github.com/ahqrt/chatter-backend/internal/database"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat is a conversation between users. Messages are embedded so a new
// message is a single $push on the chat document.
type Chat struct {
	database.AbstractDocument `bson:",inline"`
	UserID                    string    `bson:"userId" json:"userId"` // creator
	IsPrivate                 bool      `bson:"isPrivate" json:"isPrivate"`
	UserIDs                   []string  `bson:"userIds" json:"userIds"`
	Name                      string    `bson:"name,omitempty" json:"name,omitempty"`
	Messages                  []Message `bson:"messages" json:"messages"`
	CreatedAt                 time.Time `bson:"createdAt" json:"createdAt"`
}

// Message is one entry of Chat.Messages.
type Message struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	UserID    string             `bson:"userId" json:"userId"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

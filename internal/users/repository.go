package users

import (
	"context"

	"github.com/ahqrt/chatter-backend/internal/database"
	"github.com/ahqrt/chatter-backend/internal/models"
	"github.com/ahqrt/chatter-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the Mongo collection holding users.
const CollectionName = "users"

// UserRepository defines persistence operations for users
type UserRepository = database.Repository[models.User]

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *database.MongoRepository[models.User] {
	return database.NewMongoRepository[models.User](col, logger.New("UsersRepository"))
}

// NewMemoryUserRepository is used when MongoDB is not configured.
func NewMemoryUserRepository() *database.MemoryRepository[models.User] {
	return database.NewMemoryRepository[models.User](CollectionName, logger.New("UsersRepository"))
}

// EnsureIndexes creates the unique index on sub that UpsertFromClaims relies on.
func EnsureIndexes(ctx context.Context, col *mongo.Collection) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "sub", Value: 1}}, Options: options.Index().SetUnique(true)}
	_, err := col.Indexes().CreateOne(ctx, idx)
	return err
}

package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/ahqrt/chatter-backend/internal/database"
	"github.com/ahqrt/chatter-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "sessions"

const defaultSessionTTL = 7 * 24 * time.Hour

// Repository provides session persistence operations
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByRefresh(ctx context.Context, refresh string) (*Session, error)
	DeleteByRefresh(ctx context.Context, refresh string) error
	// ConsumeRefresh atomically removes the session and returns it, or nil
	// when no session holds refresh.
	ConsumeRefresh(ctx context.Context, refresh string) (*Session, error)
}

// DocumentRepository implements Repository on top of a generic document
// repository, so the same code serves MongoDB and the in-memory store.
type DocumentRepository struct {
	docs database.Repository[Session]
}

func NewDocumentRepository(docs database.Repository[Session]) *DocumentRepository {
	return &DocumentRepository{docs: docs}
}

func NewMongoRepository(col *mongo.Collection) *DocumentRepository {
	return NewDocumentRepository(database.NewMongoRepository[Session](col, logger.New("SessionsRepository")))
}

func NewMemoryRepository() *DocumentRepository {
	return NewDocumentRepository(database.NewMemoryRepository[Session](CollectionName, logger.New("SessionsRepository")))
}

// EnsureIndexes makes refresh tokens unique and lets MongoDB expire
// sessions once expiresAt has passed.
func EnsureIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "refreshToken", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	return err
}

func (r *DocumentRepository) Create(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = now.Add(defaultSessionTTL)
	}
	created, err := r.docs.Create(ctx, *s)
	if err != nil {
		return err
	}
	s.ID = created.ID
	return nil
}

func (r *DocumentRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	s, err := r.docs.FindOne(ctx, bson.M{"refreshToken": refresh})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *DocumentRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	_, err := r.docs.FindOneAndDelete(ctx, bson.M{"refreshToken": refresh})
	return err
}

func (r *DocumentRepository) ConsumeRefresh(ctx context.Context, refresh string) (*Session, error) {
	return r.docs.FindOneAndDelete(ctx, bson.M{"refreshToken": refresh})
}

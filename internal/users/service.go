package users

import (
	"context"
	"errors"
	"time"

	"github.com/ahqrt/chatter-backend/internal/database"
	"github.com/ahqrt/chatter-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a user using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if sub == "" {
		return nil, nil
	}
	now := time.Now().UTC()
	u, err := s.update(ctx, sub, email, name, now)
	if !errors.Is(err, database.ErrNotFound) {
		return u, err
	}
	u, err = s.repo.Create(ctx, models.User{
		Sub:       sub,
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if mongo.IsDuplicateKeyError(err) {
		// lost a race with a concurrent first login; the row exists now
		return s.update(ctx, sub, email, name, now)
	}
	return u, err
}

func (s *Service) update(ctx context.Context, sub, email, name string, now time.Time) (*models.User, error) {
	return s.repo.FindOneAndUpdate(ctx, bson.M{"sub": sub}, bson.M{
		"email":     email,
		"name":      name,
		"updatedAt": now,
	})
}

// GetBySub returns nil, nil when no user has the given subject.
func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	u, err := s.repo.FindOne(ctx, bson.M{"sub": sub})
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

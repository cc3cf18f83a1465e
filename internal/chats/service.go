package chats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahqrt/chatter-backend/internal/database"
	"github.com/ahqrt/chatter-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound aliases the repository error so callers need only this package.
	ErrNotFound = database.ErrNotFound
)

// Service holds the chat use cases on top of the generic repository.
type Service struct {
	repo ChatRepository
}

func NewService(r ChatRepository) *Service { return &Service{repo: r} }

// Create starts a chat owned by userID. The owner is always a member.
func (s *Service) Create(ctx context.Context, userID, name string, isPrivate bool, userIDs []string) (*models.Chat, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	members := []string{userID}
	seen := map[string]bool{userID: true}
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	return s.repo.Create(ctx, models.Chat{
		UserID:    userID,
		IsPrivate: isPrivate,
		UserIDs:   members,
		Name:      strings.TrimSpace(name),
		Messages:  []models.Message{},
		CreatedAt: time.Now().UTC(),
	})
}

// FindForUser lists the chats userID belongs to.
func (s *Service) FindForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	return s.repo.FindMany(ctx, bson.M{"userIds": userID})
}

func (s *Service) FindOne(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	return s.repo.FindOne(ctx, bson.M{"_id": id})
}

func (s *Service) Rename(ctx context.Context, id primitive.ObjectID, name string) (*models.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return s.repo.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"name": name})
}

// Delete removes the chat and returns it. Unlike the repository, a missing
// chat is reported as ErrNotFound.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	c, err := s.repo.FindOneAndDelete(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// AddMessage appends a message to a chat the sender belongs to.
func (s *Service) AddMessage(ctx context.Context, chatID primitive.ObjectID, userID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	msg := models.Message{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.repo.FindOneAndUpdate(ctx,
		bson.M{"_id": chatID, "userIds": userID},
		bson.M{"$push": bson.M{"messages": msg}},
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Messages returns the messages of a chat in the order they were sent.
func (s *Service) Messages(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error) {
	c, err := s.repo.FindOne(ctx, bson.M{"_id": chatID})
	if err != nil {
		return nil, err
	}
	if c.Messages == nil {
		return []models.Message{}, nil
	}
	return c.Messages, nil
}

package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ahqrt/chatter-backend/internal/config"
	"github.com/ahqrt/chatter-backend/internal/models"
	"github.com/ahqrt/chatter-backend/internal/tokens"
)

// ErrInvalidRefresh is returned when a refresh token is unknown or expired.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// TokenPair is what a client receives after login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// UserLookup resolves the user behind a session.
type UserLookup interface {
	GetBySub(ctx context.Context, sub string) (*models.User, error)
}

// Service wraps repository operations with business logic
type Service struct {
	repo      Repository
	blacklist Blacklist
}

func NewService(r Repository) *Service { return &Service{repo: r} }

// WithBlacklist enables access token revocation on logout.
func (s *Service) WithBlacklist(b Blacklist) *Service {
	s.blacklist = b
	return s
}

// CreateSession stores a new refresh session and returns the refresh token
func (s *Service) CreateSession(ctx context.Context, sub string, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	r := hex.EncodeToString(b)
	now := time.Now().UTC()
	sess := &Session{
		RefreshToken: r,
		Sub:          sub,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return r, nil
}

// ValidateRefresh returns the session if refresh token is valid and not expired
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Expired(time.Now().UTC()) {
		// cleanup expired session
		_ = s.repo.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}

// IssueTokens signs an access token for u and opens a refresh session.
func (s *Service) IssueTokens(ctx context.Context, cfg *config.Config, u *models.User) (*TokenPair, error) {
	access, err := tokens.GenerateAccessToken(cfg, u, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	refresh, err := s.CreateSession(ctx, u.Sub, cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(cfg.JWT.AccessTokenTTL / time.Second),
	}, nil
}

// Refresh rotates a refresh token. The old session is consumed before
// anything else, so a token can be exchanged at most once.
func (s *Service) Refresh(ctx context.Context, cfg *config.Config, users UserLookup, refresh string) (*TokenPair, error) {
	sess, err := s.repo.ConsumeRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Expired(time.Now().UTC()) {
		return nil, ErrInvalidRefresh
	}
	u, err := users.GetBySub(ctx, sess.Sub)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidRefresh
	}
	return s.IssueTokens(ctx, cfg, u)
}

// Logout drops the refresh session and, when a blacklist is configured,
// revokes accessToken for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, cfg *config.Config, refresh, accessToken string) error {
	if s.blacklist != nil && accessToken != "" {
		claims, err := tokens.ParseAccessToken(cfg, accessToken)
		if err == nil && claims.ExpiresAt != nil {
			if err := s.blacklist.Add(ctx, accessToken, time.Until(claims.ExpiresAt.Time)); err != nil {
				return fmt.Errorf("blacklist access token: %w", err)
			}
		}
	}
	return s.repo.DeleteByRefresh(ctx, refresh)
}

// IsRevoked reports whether accessToken was blacklisted by Logout.
func (s *Service) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	if s.blacklist == nil {
		return false, nil
	}
	return s.blacklist.Contains(ctx, accessToken)
}

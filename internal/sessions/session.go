package sessions

import (
	"time"

	"github.com/ahqrt/chatter-backend/internal/database"
)

// Session is a persistent refresh session.
type Session struct {
	database.AbstractDocument `bson:",inline"`
	RefreshToken              string    `bson:"refreshToken" json:"refreshToken"`
	Sub                       string    `bson:"sub" json:"sub"`
	ExpiresAt                 time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt                 time.Time `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

package models

import (
	"time"

	"github.com/ahqrt/chatter-backend/internal/database"
)

// User represents an application user (mapped from OIDC claims)
type User struct {
	database.AbstractDocument `bson:",inline"`
	Sub                       string    `bson:"sub" json:"sub"` // OIDC subject
	Email                     string    `bson:"email" json:"email"`
	Name                      string    `bson:"name" json:"name"`
	CreatedAt                 time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt                 time.Time `bson:"updatedAt" json:"updatedAt"`
}

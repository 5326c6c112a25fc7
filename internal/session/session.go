package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is a persisted refresh-token record. Only a SHA-256 of the
// token is stored; the plaintext exists solely in the client's cookie
// or secure storage.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	Device    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionTokens is the pair handed to clients on sign-in and refresh.
type SessionTokens struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

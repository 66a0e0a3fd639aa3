package parkwatch

import (
	"context"
	"time"
)

// DefaultSessionDuration matches the lifetime of the session cookie.
const DefaultSessionDuration = 24 * time.Hour

// Session is an opaque bearer token bound to a user.
type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`

	// User is populated by FindSessionByToken.
	User *User `json:"user,omitempty"`
}

// IsExpired reports whether the session is past its expiry at t.
func (s *Session) IsExpired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// SessionService issues, verifies and revokes session tokens.
type SessionService interface {
	// CreateSession issues a new token for userID valid for duration.
	CreateSession(ctx context.Context, userID int64, duration time.Duration) (*Session, error)

	// FindSessionByToken verifies token and returns the session joined with
	// its user. Unknown and expired tokens are EUNAUTHORIZED.
	FindSessionByToken(ctx context.Context, token string) (*Session, error)

	// DeleteSession revokes a single token. Unknown tokens are not an error.
	DeleteSession(ctx context.Context, token string) error

	// DeleteUserSessions revokes every token held by userID.
	DeleteUserSessions(ctx context.Context, userID int64) error

	// DeleteExpiredSessions purges stale rows and returns how many went.
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

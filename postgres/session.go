package postgres

import (
	"context"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/auth"
)

var _ parkwatch.SessionService = (*SessionService)(nil)

// SessionService implements parkwatch.SessionService using PostgreSQL.
type SessionService struct {
	db *DB
}

func (s *SessionService) CreateSession(ctx context.Context, userID int64, duration time.Duration) (*parkwatch.Session, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, parkwatch.Internal("Failed to generate session token", err)
	}

	now := s.db.now()
	session := &parkwatch.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(duration),
		CreatedAt: now,
	}

	if _, err := s.db.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		session.Token, session.UserID, session.ExpiresAt, session.CreatedAt,
	); err != nil {
		if isForeignKeyViolation(err) {
			return nil, parkwatch.NotFound("User not found")
		}
		return nil, parkwatch.Internal("Failed to create session", err)
	}
	return session, nil
}

func (s *SessionService) FindSessionByToken(ctx context.Context, token string) (*parkwatch.Session, error) {
	if token == "" {
		return nil, parkwatch.Unauthorized("Session not found or expired")
	}

	session := &parkwatch.Session{Token: token, User: &parkwatch.User{}}
	err := s.db.db.QueryRowContext(ctx, `
		SELECT s.user_id, s.expires_at, s.created_at,
			u.id, u.name, u.email, u.is_admin, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > $2`,
		token, s.db.now(),
	).Scan(
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.User.ID,
		&session.User.Name,
		&session.User.Email,
		&session.User.IsAdmin,
		&session.User.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, parkwatch.Unauthorized("Session not found or expired")
		}
		return nil, parkwatch.Internal("Failed to fetch session", err)
	}
	return session, nil
}

func (s *SessionService) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return parkwatch.Internal("Failed to delete session", err)
	}
	return nil
}

func (s *SessionService) DeleteUserSessions(ctx context.Context, userID int64) error {
	if _, err := s.db.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return parkwatch.Internal("Failed to delete user sessions", err)
	}
	return nil
}

func (s *SessionService) DeleteExpiredSessions(ctx context.Context) (int, error) {
	result, err := s.db.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.db.now())
	if err != nil {
		return 0, parkwatch.Internal("Failed to delete expired sessions", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

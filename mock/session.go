package mock

import (
	"context"
	"time"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.SessionService = (*SessionService)(nil)

type SessionService struct {
	CreateSessionFn         func(ctx context.Context, userID int64, duration time.Duration) (*parkwatch.Session, error)
	FindSessionByTokenFn    func(ctx context.Context, token string) (*parkwatch.Session, error)
	DeleteSessionFn         func(ctx context.Context, token string) error
	DeleteUserSessionsFn    func(ctx context.Context, userID int64) error
	DeleteExpiredSessionsFn func(ctx context.Context) (int, error)
}

func (s *SessionService) CreateSession(ctx context.Context, userID int64, duration time.Duration) (*parkwatch.Session, error) {
	if s.CreateSessionFn != nil {
		return s.CreateSessionFn(ctx, userID, duration)
	}
	now := time.Now()
	return &parkwatch.Session{Token: "mock-token", UserID: userID, CreatedAt: now, ExpiresAt: now.Add(duration)}, nil
}

func (s *SessionService) FindSessionByToken(ctx context.Context, token string) (*parkwatch.Session, error) {
	if s.FindSessionByTokenFn != nil {
		return s.FindSessionByTokenFn(ctx, token)
	}
	return nil, parkwatch.Unauthorized("Session not found or expired")
}

func (s *SessionService) DeleteSession(ctx context.Context, token string) error {
	if s.DeleteSessionFn != nil {
		return s.DeleteSessionFn(ctx, token)
	}
	return nil
}

func (s *SessionService) DeleteUserSessions(ctx context.Context, userID int64) error {
	if s.DeleteUserSessionsFn != nil {
		return s.DeleteUserSessionsFn(ctx, userID)
	}
	return nil
}

func (s *SessionService) DeleteExpiredSessions(ctx context.Context) (int, error) {
	if s.DeleteExpiredSessionsFn != nil {
		return s.DeleteExpiredSessionsFn(ctx)
	}
	return 0, nil
}

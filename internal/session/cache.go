// Package session caches verified sessions in memory in front of a
// parkwatch.SessionService.
package session

import (
	"context"
	"time"

	"github.com/dukerupert/parkwatch"
	"github.com/patrickmn/go-cache"
)

// DefaultCacheTTL bounds how long a revoked or demoted session can survive
// in another process's cache.
const DefaultCacheTTL = time.Minute

var _ parkwatch.SessionService = (*CachedSessionService)(nil)

// CachedSessionService memoizes FindSessionByToken. Revocations made
// through it evict the affected entries immediately.
type CachedSessionService struct {
	parkwatch.SessionService

	cache *cache.Cache
	Now   func() time.Time
}

func NewCachedSessionService(s parkwatch.SessionService, ttl time.Duration) *CachedSessionService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSessionService{
		SessionService: s,
		cache:          cache.New(ttl, 2*ttl),
		Now:            time.Now,
	}
}

func (s *CachedSessionService) FindSessionByToken(ctx context.Context, token string) (*parkwatch.Session, error) {
	if v, ok := s.cache.Get(token); ok {
		sess := v.(*parkwatch.Session)
		if !sess.IsExpired(s.Now()) {
			return copySession(sess), nil
		}
		s.cache.Delete(token)
		return nil, parkwatch.Unauthorized("Session expired")
	}

	sess, err := s.SessionService.FindSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(token, copySession(sess))
	return sess, nil
}

func (s *CachedSessionService) DeleteSession(ctx context.Context, token string) error {
	s.cache.Delete(token)
	return s.SessionService.DeleteSession(ctx, token)
}

func (s *CachedSessionService) DeleteUserSessions(ctx context.Context, userID int64) error {
	s.InvalidateUser(userID)
	return s.SessionService.DeleteUserSessions(ctx, userID)
}

// InvalidateUser evicts every cached session of userID, so a changed role
// or a deleted account is seen on the next request.
func (s *CachedSessionService) InvalidateUser(userID int64) {
	for token, item := range s.cache.Items() {
		if sess, ok := item.Object.(*parkwatch.Session); ok && sess.UserID == userID {
			s.cache.Delete(token)
		}
	}
}

func (s *CachedSessionService) Len() int {
	return s.cache.ItemCount()
}

func copySession(s *parkwatch.Session) *parkwatch.Session {
	out := *s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return &out
}

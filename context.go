package parkwatch

import "context"

type contextKey int

const (
	userContextKey contextKey = iota + 1
	sessionContextKey
	requestIDContextKey
)

// NewContextWithUser returns a copy of ctx carrying the acting user.
func NewContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the acting user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

// UserIDFromContext returns the acting user's id, or 0.
func UserIDFromContext(ctx context.Context) int64 {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	return 0
}

// IsAdminContext reports whether the acting user holds the admin flag.
func IsAdminContext(ctx context.Context) bool {
	user := UserFromContext(ctx)
	return user != nil && user.IsAdmin
}

func NewContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}

func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

package parkwatch

import (
	"context"
	"time"
)

// User is an officer or administrator who can sign in to the dashboard.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"created_at"`
}

// UserService manages dashboard accounts.
type UserService interface {
	// FindUserByID returns ENOTFOUND if the user does not exist.
	FindUserByID(ctx context.Context, id int64) (*User, error)

	// FindUserByEmail returns ENOTFOUND if no user has that email.
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	// FindUsers returns users ordered by name.
	FindUsers(ctx context.Context, filter UserFilter) ([]*User, error)

	// CreateUser hashes password and stores the user, setting user.ID.
	// Returns EINVALID "Email already registered" when the email is taken.
	// When the context carries an actor a user_created action is recorded.
	CreateUser(ctx context.Context, user *User, password string) error

	// UpdateUser applies upd and returns the updated user.
	// Returns ENOTFOUND if the user does not exist and EINVALID when the
	// new email belongs to someone else.
	UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*User, error)

	// DeleteUser removes the user and their sessions. The acting user in ctx
	// cannot delete themselves (EINVALID).
	DeleteUser(ctx context.Context, id int64) error

	// VerifyPassword returns the user when the credentials match and
	// EUNAUTHORIZED otherwise.
	VerifyPassword(ctx context.Context, email, password string) (*User, error)
}

// UserFilter narrows FindUsers. Nil fields are ignored.
type UserFilter struct {
	IsAdmin *bool
}

// UserUpdate holds the fields an admin may change. Nil means unchanged.
type UserUpdate struct {
	Name     *string
	Email    *string
	IsAdmin  *bool
	Password *string
}

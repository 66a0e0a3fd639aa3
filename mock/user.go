// Package mock provides function-field implementations of the parkwatch
// service interfaces for tests.
package mock

import (
	"context"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.UserService = (*UserService)(nil)

type UserService struct {
	FindUserByIDFn    func(ctx context.Context, id int64) (*parkwatch.User, error)
	FindUserByEmailFn func(ctx context.Context, email string) (*parkwatch.User, error)
	FindUsersFn       func(ctx context.Context, filter parkwatch.UserFilter) ([]*parkwatch.User, error)
	CreateUserFn      func(ctx context.Context, user *parkwatch.User, password string) error
	UpdateUserFn      func(ctx context.Context, id int64, upd parkwatch.UserUpdate) (*parkwatch.User, error)
	DeleteUserFn      func(ctx context.Context, id int64) error
	VerifyPasswordFn  func(ctx context.Context, email, password string) (*parkwatch.User, error)
}

func (s *UserService) FindUserByID(ctx context.Context, id int64) (*parkwatch.User, error) {
	if s.FindUserByIDFn != nil {
		return s.FindUserByIDFn(ctx, id)
	}
	return nil, parkwatch.NotFound("User not found")
}

func (s *UserService) FindUserByEmail(ctx context.Context, email string) (*parkwatch.User, error) {
	if s.FindUserByEmailFn != nil {
		return s.FindUserByEmailFn(ctx, email)
	}
	return nil, parkwatch.NotFound("User not found")
}

func (s *UserService) FindUsers(ctx context.Context, filter parkwatch.UserFilter) ([]*parkwatch.User, error) {
	if s.FindUsersFn != nil {
		return s.FindUsersFn(ctx, filter)
	}
	return []*parkwatch.User{}, nil
}

func (s *UserService) CreateUser(ctx context.Context, user *parkwatch.User, password string) error {
	if s.CreateUserFn != nil {
		return s.CreateUserFn(ctx, user, password)
	}
	user.ID = 1
	return nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, upd parkwatch.UserUpdate) (*parkwatch.User, error) {
	if s.UpdateUserFn != nil {
		return s.UpdateUserFn(ctx, id, upd)
	}
	return nil, parkwatch.NotFound("User not found")
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if s.DeleteUserFn != nil {
		return s.DeleteUserFn(ctx, id)
	}
	return nil
}

func (s *UserService) VerifyPassword(ctx context.Context, email, password string) (*parkwatch.User, error) {
	if s.VerifyPasswordFn != nil {
		return s.VerifyPasswordFn(ctx, email, password)
	}
	return nil, parkwatch.Unauthorized("Invalid email or password")
}

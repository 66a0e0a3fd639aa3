package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/auth"
)

var _ parkwatch.UserService = (*UserService)(nil)

// UserService implements parkwatch.UserService using PostgreSQL.
type UserService struct {
	db *DB
}

const userColumns = `id, name, email, is_admin, created_at`

func scanUser(row scanner) (*parkwatch.User, error) {
	var u parkwatch.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) FindUserByID(ctx context.Context, id int64) (*parkwatch.User, error) {
	user, err := scanUser(s.db.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, parkwatch.NotFound("User not found")
		}
		return nil, parkwatch.Internal("Failed to fetch user", err)
	}
	return user, nil
}

func (s *UserService) FindUserByEmail(ctx context.Context, email string) (*parkwatch.User, error) {
	user, err := scanUser(s.db.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, normalizeEmail(email)))
	if err != nil {
		if isNoRows(err) {
			return nil, parkwatch.NotFound("User not found")
		}
		return nil, parkwatch.Internal("Failed to fetch user", err)
	}
	return user, nil
}

func (s *UserService) FindUsers(ctx context.Context, filter parkwatch.UserFilter) ([]*parkwatch.User, error) {
	var p placeholders
	query := `SELECT ` + userColumns + ` FROM users`
	if filter.IsAdmin != nil {
		query += ` WHERE is_admin = ` + p.add(*filter.IsAdmin)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.db.QueryContext(ctx, query, p.args...)
	if err != nil {
		return nil, parkwatch.Internal("Failed to list users", err)
	}
	defer rows.Close()

	users := []*parkwatch.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, parkwatch.Internal("Failed to read user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, parkwatch.Internal("Failed to read users", err)
	}
	return users, nil
}

func (s *UserService) CreateUser(ctx context.Context, user *parkwatch.User, password string) error {
	user.Name = strings.TrimSpace(user.Name)
	user.Email = normalizeEmail(user.Email)
	if user.Name == "" || user.Email == "" || password == "" {
		return parkwatch.Invalid("Name, email and password are required")
	}
	if len(password) < auth.MinPasswordLength {
		return parkwatch.Invalid("Password must be at least %d characters", auth.MinPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return parkwatch.Internal("Failed to hash password", err)
	}

	actorID := parkwatch.UserIDFromContext(ctx)
	user.CreatedAt = s.db.now()

	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		if taken, err := emailTaken(ctx, tx, user.Email, 0); err != nil {
			return err
		} else if taken {
			return parkwatch.Invalid("Email already registered")
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (name, email, password_hash, is_admin, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			user.Name, user.Email, hash, user.IsAdmin, user.CreatedAt,
		).Scan(&user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return parkwatch.Invalid("Email already registered")
			}
			return parkwatch.Internal("Failed to create user", err)
		}

		if actorID == 0 {
			return nil
		}
		return s.db.recordAction(ctx, tx, &parkwatch.UserAction{
			ActorID:    actorID,
			ActionType: parkwatch.ActionUserCreated,
			Details: parkwatch.MarshalDetails(map[string]any{
				"user_id":  user.ID,
				"email":    user.Email,
				"is_admin": user.IsAdmin,
			}),
		})
	})
	if err != nil {
		user.ID = 0
		return err
	}

	s.db.logger.Info("user created", slog.Int64("user_id", user.ID), slog.Bool("is_admin", user.IsAdmin))
	return nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, upd parkwatch.UserUpdate) (*parkwatch.User, error) {
	var p placeholders
	var sets, changed []string

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, parkwatch.Invalid("Name cannot be empty")
		}
		sets, changed = append(sets, "name = "+p.add(name)), append(changed, "name")
	}
	var email string
	if upd.Email != nil {
		if email = normalizeEmail(*upd.Email); email == "" {
			return nil, parkwatch.Invalid("Email cannot be empty")
		}
		sets, changed = append(sets, "email = "+p.add(email)), append(changed, "email")
	}
	if upd.IsAdmin != nil {
		sets, changed = append(sets, "is_admin = "+p.add(*upd.IsAdmin)), append(changed, "is_admin")
	}
	if upd.Password != nil {
		if len(*upd.Password) < auth.MinPasswordLength {
			return nil, parkwatch.Invalid("Password must be at least %d characters", auth.MinPasswordLength)
		}
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return nil, parkwatch.Internal("Failed to hash password", err)
		}
		sets, changed = append(sets, "password_hash = "+p.add(hash)), append(changed, "password")
	}
	if len(sets) == 0 {
		return s.FindUserByID(ctx, id)
	}

	actorID := parkwatch.UserIDFromContext(ctx)
	var user *parkwatch.User
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		if upd.Email != nil {
			if taken, err := emailTaken(ctx, tx, email, id); err != nil {
				return err
			} else if taken {
				return parkwatch.Invalid("Email already registered")
			}
		}

		query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = " + p.add(id) + " RETURNING " + userColumns

		var err error
		user, err = scanUser(tx.QueryRowContext(ctx, query, p.args...))
		if err != nil {
			if isNoRows(err) {
				return parkwatch.NotFound("User not found")
			}
			if isUniqueViolation(err) {
				return parkwatch.Invalid("Email already registered")
			}
			return parkwatch.Internal("Failed to update user", err)
		}

		if actorID == 0 {
			return nil
		}
		return s.db.recordAction(ctx, tx, &parkwatch.UserAction{
			ActorID:    actorID,
			ActionType: parkwatch.ActionUserUpdated,
			Details:    parkwatch.MarshalDetails(map[string]any{"user_id": id, "fields": changed}),
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	actorID := parkwatch.UserIDFromContext(ctx)
	if actorID == id {
		return parkwatch.Invalid("You cannot delete your own account")
	}

	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		var email string
		err := tx.QueryRowContext(ctx, `DELETE FROM users WHERE id = $1 RETURNING email`, id).Scan(&email)
		if err != nil {
			if isNoRows(err) {
				return parkwatch.NotFound("User not found")
			}
			return parkwatch.Internal("Failed to delete user", err)
		}

		if actorID == 0 {
			return nil
		}
		return s.db.recordAction(ctx, tx, &parkwatch.UserAction{
			ActorID:    actorID,
			ActionType: parkwatch.ActionUserDeleted,
			Details:    parkwatch.MarshalDetails(map[string]any{"user_id": id, "email": email}),
		})
	})
	if err != nil {
		return err
	}

	s.db.logger.Info("user deleted", slog.Int64("user_id", id), slog.Int64("actor_id", actorID))
	return nil
}

func (s *UserService) VerifyPassword(ctx context.Context, email, password string) (*parkwatch.User, error) {
	var u parkwatch.User
	var hash string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE LOWER(email) = LOWER($1)`,
		normalizeEmail(email),
	).Scan(&u.ID, &u.Name, &u.Email, &u.IsAdmin, &u.CreatedAt, &hash)
	if err != nil {
		if isNoRows(err) {
			return nil, parkwatch.Unauthorized("Invalid email or password")
		}
		return nil, parkwatch.Internal("Failed to fetch user", err)
	}

	if err := auth.VerifyPassword(password, hash); err != nil {
		return nil, parkwatch.Unauthorized("Invalid email or password")
	}
	return &u, nil
}

// emailTaken is the explicit uniqueness pre-check; the index on
// LOWER(email) backs it up against concurrent writers.
func emailTaken(ctx context.Context, q querier, email string, exceptID int64) (bool, error) {
	var taken bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2)`,
		email, exceptID,
	).Scan(&taken)
	if err != nil {
		return false, parkwatch.Internal("Failed to check email", err)
	}
	return taken, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

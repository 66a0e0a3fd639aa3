package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	auth.Cost = bcrypt.MinCost
}

func TestUserService_CreateUser(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("ana@primaria.ro", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Ana Pop", "ana@primaria.ro", sqlmock.AnyArg(), false, testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectCommit()

	user := &parkwatch.User{Name: " Ana Pop ", Email: "Ana@Primaria.ro"}
	require.NoError(t, db.UserService.CreateUser(context.Background(), user, "s3cret-pass"))
	assert.Equal(t, int64(4), user.ID)
	assert.Equal(t, "ana@primaria.ro", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_CreateUser_RecordsActor(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`INSERT INTO users`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery(`INSERT INTO user_actions`).
		WithArgs(int64(1), nil, parkwatch.ActionUserCreated, jsonFields{"user_id": 5.0, "is_admin": true}, testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	user := &parkwatch.User{Name: "Ion", Email: "ion@primaria.ro", IsAdmin: true}
	require.NoError(t, db.UserService.CreateUser(actorContext(1, true), user, "s3cret-pass"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_CreateUser_DuplicateEmail(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	user := &parkwatch.User{Name: "Ana", Email: "ana@primaria.ro"}
	err := db.UserService.CreateUser(context.Background(), user, "s3cret-pass")
	assert.Equal(t, parkwatch.EINVALID, parkwatch.ErrorCode(err))
	assert.Equal(t, "Email already registered", parkwatch.ErrorMessage(err))
	assert.Zero(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_CreateUser_MissingFields(t *testing.T) {
	db, mock := newTestDB(t)

	err := db.UserService.CreateUser(context.Background(), &parkwatch.User{Email: "a@b.ro"}, "s3cret-pass")
	assert.Equal(t, parkwatch.EINVALID, parkwatch.ErrorCode(err))

	err = db.UserService.CreateUser(context.Background(), &parkwatch.User{Name: "A", Email: "a@b.ro"}, "short")
	assert.Equal(t, parkwatch.EINVALID, parkwatch.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateUser(t *testing.T) {
	db, mock := newTestDB(t)

	name := "Ana Popescu"
	email := "ana.popescu@primaria.ro"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(email, int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET name = $1, email = $2 WHERE id = $3`)).
		WithArgs(name, email, int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "is_admin", "created_at"}).
			AddRow(int64(4), name, email, false, testNow))
	mock.ExpectQuery(`INSERT INTO user_actions`).
		WithArgs(int64(1), nil, parkwatch.ActionUserUpdated, sqlmock.AnyArg(), testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectCommit()

	user, err := db.UserService.UpdateUser(actorContext(1, true), 4, parkwatch.UserUpdate{Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, name, user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_UpdateUser_NotFound(t *testing.T) {
	db, mock := newTestDB(t)

	admin := true
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE users SET is_admin`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "is_admin", "created_at"}))
	mock.ExpectRollback()

	_, err := db.UserService.UpdateUser(actorContext(1, true), 40, parkwatch.UserUpdate{IsAdmin: &admin})
	assert.Equal(t, parkwatch.ENOTFOUND, parkwatch.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_DeleteUser_Self(t *testing.T) {
	db, mock := newTestDB(t)

	err := db.UserService.DeleteUser(actorContext(7, true), 7)
	assert.Equal(t, parkwatch.EINVALID, parkwatch.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_DeleteUser(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1 RETURNING email`)).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ion@primaria.ro"))
	mock.ExpectQuery(`INSERT INTO user_actions`).
		WithArgs(int64(7), nil, parkwatch.ActionUserDeleted, jsonFields{"email": "ion@primaria.ro"}, testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	require.NoError(t, db.UserService.DeleteUser(actorContext(7, true), 8))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_VerifyPassword(t *testing.T) {
	db, mock := newTestDB(t)

	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)

	columns := []string{"id", "name", "email", "is_admin", "created_at", "password_hash"}
	mock.ExpectQuery(`FROM users WHERE LOWER`).
		WithArgs("ana@primaria.ro").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(4), "Ana", "ana@primaria.ro", true, testNow, hash))
	mock.ExpectQuery(`FROM users WHERE LOWER`).
		WithArgs("ana@primaria.ro").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(4), "Ana", "ana@primaria.ro", true, testNow, hash))
	mock.ExpectQuery(`FROM users WHERE LOWER`).
		WithArgs("nobody@primaria.ro").
		WillReturnRows(sqlmock.NewRows(columns))

	user, err := db.UserService.VerifyPassword(context.Background(), "ANA@primaria.ro", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	_, err = db.UserService.VerifyPassword(context.Background(), "ana@primaria.ro", "wrong")
	assert.Equal(t, parkwatch.EUNAUTHORIZED, parkwatch.ErrorCode(err))

	_, err = db.UserService.VerifyPassword(context.Background(), "nobody@primaria.ro", "s3cret-pass")
	assert.Equal(t, parkwatch.EUNAUTHORIZED, parkwatch.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dukerupert/parkwatch"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := NewDB(sqlDB, slog.New(slog.NewTextHandler(io.Discard, nil)))
	db.Now = func() time.Time { return testNow }
	return db, mock
}

func actorContext(id int64, admin bool) context.Context {
	return parkwatch.NewContextWithUser(context.Background(), &parkwatch.User{ID: id, Name: "Officer", IsAdmin: admin})
}

// jsonFields matches a JSON argument containing at least the given fields.
type jsonFields map[string]any

func (m jsonFields) Match(v driver.Value) bool {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return false
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(s), &got); err != nil {
		return false
	}
	for k, want := range m {
		if got[k] != want {
			return false
		}
	}
	return true
}

var incidentColumnNames = []string{
	"id", "address", "latitude", "longitude", "district", "datetime",
	"ai_description", "car_number", "fine_id", "status", "admin_notes",
	"resolved_at", "resolved_by", "created_at", "name", "value",
}

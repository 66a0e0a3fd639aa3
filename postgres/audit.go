package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.AuditService = (*AuditService)(nil)

// AuditService implements parkwatch.AuditService using PostgreSQL.
type AuditService struct {
	db *DB
}

func (s *AuditService) RecordAction(ctx context.Context, action *parkwatch.UserAction) error {
	if action.ActorID == 0 || action.ActionType == "" {
		return parkwatch.Invalid("Actor and action type are required")
	}
	if len(action.Details) > 0 && !json.Valid(action.Details) {
		return parkwatch.Invalid("Details must be valid JSON")
	}
	return s.db.recordAction(ctx, s.db.db, action)
}

// recordAction appends action through q, which is the caller's transaction
// when the action must commit together with a primary write.
func (d *DB) recordAction(ctx context.Context, q querier, action *parkwatch.UserAction) error {
	action.CreatedAt = d.now()

	var details any
	if len(action.Details) > 0 {
		details = string(action.Details)
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO user_actions (actor_id, incident_id, action_type, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		action.ActorID, action.IncidentID, action.ActionType, details, action.CreatedAt,
	).Scan(&action.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return parkwatch.NotFound("Incident not found")
		}
		return parkwatch.Internal("Failed to record action", err)
	}

	d.logger.Debug("action recorded",
		slog.Int64("action_id", action.ID),
		slog.Int64("actor_id", action.ActorID),
		slog.String("action_type", action.ActionType))
	return nil
}

func (s *AuditService) FindUserHistory(ctx context.Context) ([]*parkwatch.UserHistoryEntry, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, MAX(ua.created_at) AS last_access
		FROM users u
		LEFT JOIN user_actions ua ON ua.actor_id = u.id
		WHERE u.is_admin = FALSE
		GROUP BY u.id, u.name, u.email
		ORDER BY MAX(ua.created_at) DESC NULLS LAST, u.id DESC`)
	if err != nil {
		return nil, parkwatch.Internal("Failed to fetch user history", err)
	}
	defer rows.Close()

	entries := []*parkwatch.UserHistoryEntry{}
	for rows.Next() {
		var e parkwatch.UserHistoryEntry
		var lastAccess sql.NullTime
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &lastAccess); err != nil {
			return nil, parkwatch.Internal("Failed to read user history", err)
		}
		e.LastAccess = timePtr(lastAccess)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, parkwatch.Internal("Failed to read user history", err)
	}
	return entries, nil
}

func (s *AuditService) FindUserActivity(ctx context.Context, userID int64) ([]*parkwatch.UserAction, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT ua.id, ua.actor_id, ua.incident_id, ua.action_type, ua.details, ua.created_at,
			i.address, i.car_number, i.status
		FROM user_actions ua
		LEFT JOIN incidents i ON i.id = ua.incident_id
		WHERE ua.actor_id = $1
		ORDER BY ua.created_at DESC, ua.id DESC`, userID)
	if err != nil {
		return nil, parkwatch.Internal("Failed to fetch user activity", err)
	}
	defer rows.Close()

	actions := []*parkwatch.UserAction{}
	for rows.Next() {
		var a parkwatch.UserAction
		var incidentID sql.NullInt64
		var details []byte
		var address, carNumber, status sql.NullString

		if err := rows.Scan(&a.ID, &a.ActorID, &incidentID, &a.ActionType, &details, &a.CreatedAt,
			&address, &carNumber, &status); err != nil {
			return nil, parkwatch.Internal("Failed to read user activity", err)
		}

		a.IncidentID = int64Ptr(incidentID)
		if len(details) > 0 {
			a.Details = json.RawMessage(details)
		}
		a.IncidentAddress = stringPtr(address)
		a.CarNumber = stringPtr(carNumber)
		if status.Valid {
			if st, err := parkwatch.ParseIncidentStatus(status.String); err == nil {
				a.IncidentStatus = &st
			}
		}
		actions = append(actions, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, parkwatch.Internal("Failed to read user activity", err)
	}
	return actions, nil
}

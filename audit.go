package parkwatch

import (
	"context"
	"encoding/json"
	"time"
)

// Action types written to the audit log.
const (
	ActionIncidentUpdated  = "incident_updated"
	ActionIncidentResolved = "incident_resolved"
	ActionIncidentFined    = "incident_fined"
	ActionIncidentRejected = "incident_rejected"
	ActionIncidentReopened = "incident_reopened"
	ActionIncidentDeleted  = "incident_deleted"
	ActionUserCreated      = "user_created"
	ActionUserUpdated      = "user_updated"
	ActionUserDeleted      = "user_deleted"
	ActionNote             = "note"
)

// UserAction is one append-only audit record.
type UserAction struct {
	ID         int64           `json:"id"`
	ActorID    int64           `json:"actor_id"`
	IncidentID *int64          `json:"incident_id"`
	ActionType string          `json:"action_type"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  time.Time       `json:"created_at"`

	// Joined from incidents by FindUserActivity.
	IncidentAddress *string         `json:"incident_address,omitempty"`
	CarNumber       *string         `json:"car_number,omitempty"`
	IncidentStatus  *IncidentStatus `json:"incident_status,omitempty"`
}

// UserHistoryEntry is a non-admin user with their latest audit timestamp.
type UserHistoryEntry struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	LastAccess *time.Time `json:"last_access"`
}

// AuditService reads and appends the audit trail. Nothing updates or
// deletes audit rows.
type AuditService interface {
	// RecordAction appends action, setting its ID and CreatedAt.
	RecordAction(ctx context.Context, action *UserAction) error

	// FindUserHistory lists non-admin users, most recently active first.
	// Users without actions come last, newest account first.
	FindUserHistory(ctx context.Context) ([]*UserHistoryEntry, error)

	// FindUserActivity lists every action by userID, newest first.
	FindUserActivity(ctx context.Context, userID int64) ([]*UserAction, error)
}

// TransitionAction names the audit action for a status change from one
// status to another. Every pair maps to a distinct record so reopenings and
// revised decisions stay visible.
func TransitionAction(from, to IncidentStatus) string {
	switch to {
	case StatusResolved:
		return ActionIncidentResolved
	case StatusResolvedAndFined:
		return ActionIncidentFined
	case StatusRejected:
		return ActionIncidentRejected
	}
	if from.IsDecision() {
		return ActionIncidentReopened
	}
	return ActionIncidentUpdated
}

// TransitionDetails is the details payload of a status change action.
type TransitionDetails struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Revision   bool    `json:"revision"`
	FineID     *int64  `json:"fine_id,omitempty"`
	CarNumber  *string `json:"car_number,omitempty"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

// NewTransitionDetails describes upd applied over an incident in state from.
// Revision is set when one decision replaces another.
func NewTransitionDetails(from IncidentStatus, upd IncidentStatusUpdate) TransitionDetails {
	return TransitionDetails{
		From:       from.String(),
		To:         upd.Status.String(),
		Revision:   from.IsDecision() && upd.Status.IsDecision(),
		FineID:     upd.FineID,
		CarNumber:  upd.CarNumber,
		AdminNotes: upd.AdminNotes,
	}
}

// MarshalDetails encodes v for UserAction.Details. A nil v yields JSON null.
func MarshalDetails(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

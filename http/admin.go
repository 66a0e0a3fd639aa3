package http

import (
	"encoding/json"
	"log/slog"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/queue"
	"github.com/dukerupert/parkwatch/internal/validation"
	"github.com/labstack/echo/v4"
)

type recordActionRequest struct {
	IncidentID *int64          `json:"incident_id" validate:"omitempty,gt=0"`
	ActionType string          `json:"action_type" validate:"required,max=64"`
	Details    json.RawMessage `json:"details"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email"`
	IsAdmin  *bool   `json:"isAdmin"`
	Password *string `json:"password" validate:"omitempty,min=1"`
}

type backfillResponse struct {
	JobID string `json:"job_id"`
}

// userInvalidator is implemented by session services that cache sessions
// and must drop a user's entries when the user changes.
type userInvalidator interface {
	InvalidateUser(userID int64)
}

func (s *Server) invalidateUserSessions(userID int64) {
	if inv, ok := s.sessionService.(userInvalidator); ok {
		inv.InvalidateUser(userID)
	}
}

func (s *Server) handleUserHistory(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	history, err := s.auditService.FindUserHistory(ctx)
	if err != nil {
		return err
	}
	return RespondOK(c, list(history))
}

func (s *Server) handleUserActivity(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	actions, err := s.auditService.FindUserActivity(ctx, id)
	if err != nil {
		return err
	}
	return RespondOK(c, list(actions))
}

// handleRecordAction stores a manual audit entry. The actor is always the
// session user.
func (s *Server) handleRecordAction(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	var req recordActionRequest
	if err := bind(c, &req); err != nil {
		return validation.WithMessage(err, "Action type is required")
	}

	action := &parkwatch.UserAction{
		ActorID:    user.ID,
		IncidentID: req.IncidentID,
		ActionType: req.ActionType,
		Details:    req.Details,
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := s.auditService.RecordAction(ctx, action); err != nil {
		return err
	}
	return RespondCreated(c, "Action recorded successfully", action)
}

func (s *Server) handleListUsers(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	users, err := s.userService.FindUsers(ctx, parkwatch.UserFilter{})
	if err != nil {
		return err
	}
	return RespondOK(c, list(users))
}

func (s *Server) handleGetUser(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := s.userService.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	return RespondOK(c, user)
}

func (s *Server) handleUpdateUser(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Name != nil {
		name := validation.SanitizeInput(*req.Name)
		req.Name = &name
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := s.userService.UpdateUser(ctx, id, parkwatch.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		IsAdmin:  req.IsAdmin,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	s.invalidateUserSessions(id)

	s.log(c).Info("user updated", slog.Int64("user_id", id))
	return RespondMessage(c, "User updated successfully", user)
}

func (s *Server) handleDeleteUser(c echo.Context) error {
	id, err := requireIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := s.userService.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.invalidateUserSessions(id)

	s.log(c).Info("user deleted", slog.Int64("user_id", id))
	return RespondMessage(c, "User deleted successfully", nil)
}

func (s *Server) handleDistrictBackfill(c echo.Context) error {
	if s.queue == nil {
		return parkwatch.Internal("job queue not configured", nil)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	job, err := queue.EnqueueDistrictBackfill(ctx, s.queue)
	if err != nil {
		return err
	}

	s.log(c).Info("district backfill enqueued", slog.String("job_id", job.ID.String()))
	return RespondCreated(c, "District backfill started", backfillResponse{JobID: job.ID.String()})
}

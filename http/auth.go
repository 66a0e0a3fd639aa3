package http

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/validation"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	IsAdmin  bool   `json:"isAdmin"`
}

type adminPayload struct {
	Admin *parkwatch.User `json:"admin"`
}

type registeredUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// checkResponse carries the extra authenticated flag next to the envelope.
type checkResponse struct {
	Success       bool          `json:"success"`
	Authenticated bool          `json:"authenticated"`
	Data          *adminPayload `json:"data,omitempty"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return validation.WithMessage(err, "Email and password are required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	user, err := s.userService.VerifyPassword(ctx, req.Email, req.Password)
	if err != nil {
		if parkwatch.IsErrorCode(err, parkwatch.EUNAUTHORIZED) {
			s.log(c).Warn("failed login attempt", slog.String("ip", c.RealIP()))
		}
		return err
	}

	sess, err := s.sessionService.CreateSession(ctx, user.ID, s.SessionDuration)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, sess)

	s.log(c).Info("user logged in", slog.Int64("user_id", user.ID))
	return RespondMessage(c, "Login successful", adminPayload{Admin: user})
}

func (s *Server) handleLogout(c echo.Context) error {
	if sess := parkwatch.SessionFromContext(c.Request().Context()); sess != nil {
		ctx, cancel := withTimeout(c)
		defer cancel()

		if err := s.sessionService.DeleteSession(ctx, sess.Token); err != nil && !parkwatch.IsErrorCode(err, parkwatch.ENOTFOUND) {
			return err
		}
		s.log(c).Info("user logged out", slog.Int64("user_id", sess.UserID))
	}

	s.clearSessionCookie(c)
	return RespondMessage(c, "Logout successful", nil)
}

func (s *Server) handleCheckAuth(c echo.Context) error {
	user := parkwatch.UserFromContext(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusOK, checkResponse{Success: true, Authenticated: false})
	}
	return c.JSON(http.StatusOK, checkResponse{
		Success:       true,
		Authenticated: true,
		Data:          &adminPayload{Admin: user},
	})
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return validation.WithMessage(err, "Name, email and password are required")
	}

	// Only an admin may mint another admin.
	caller := parkwatch.UserFromContext(c.Request().Context())
	isAdmin := req.IsAdmin && caller != nil && caller.IsAdmin

	user := &parkwatch.User{
		Name:    validation.SanitizeInput(req.Name),
		Email:   req.Email,
		IsAdmin: isAdmin,
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if _, err := s.userService.FindUserByEmail(ctx, req.Email); err == nil {
		return parkwatch.Invalid("Email already registered")
	} else if !parkwatch.IsErrorCode(err, parkwatch.ENOTFOUND) {
		return err
	}

	if err := s.userService.CreateUser(ctx, user, req.Password); err != nil {
		return err
	}

	logger := s.log(c)
	logger.Info("user registered", slog.Int64("user_id", user.ID), slog.Bool("is_admin", user.IsAdmin))

	if s.emailService != nil {
		if err := s.emailService.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
			logger.Warn("failed to send welcome email",
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return RespondCreated(c, "User registered successfully", registeredUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	})
}

func (s *Server) setSessionCookie(c echo.Context, sess *parkwatch.Session) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SessionSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
		MaxAge:   int(s.SessionDuration.Seconds()),
	})
}

func (s *Server) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SessionSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

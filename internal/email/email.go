// Package email sends account notifications through Postmark, or logs them
// when no provider is configured.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/parkwatch"
	"github.com/keighl/postmark"
)

// NewEmailService returns the service selected by cfg.Provider.
func NewEmailService(logger *slog.Logger, cfg parkwatch.EmailConfig) parkwatch.EmailService {
	switch cfg.Provider {
	case "postmark":
		return NewPostmarkService(logger, cfg, postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken))
	default:
		return NewLogService(logger, cfg)
	}
}

type welcomeMessage struct {
	Subject  string
	TextBody string
	HTMLBody string
}

func newWelcomeMessage(cfg parkwatch.EmailConfig, name string) welcomeMessage {
	return welcomeMessage{
		Subject: "Your parkwatch account is ready",
		TextBody: fmt.Sprintf("Hello %s,\n\nAn enforcement account has been created for you. Sign in at %s to review reported incidents.\n",
			name, cfg.DashboardURL),
		HTMLBody: fmt.Sprintf(`
			<h2>Hello %s,</h2>
			<p>An enforcement account has been created for you.</p>
			<p><a href="%s">Sign in to the dashboard</a> to review reported incidents.</p>
		`, name, cfg.DashboardURL),
	}
}

// LogService writes emails to the log instead of sending them.
type LogService struct {
	logger *slog.Logger
	config parkwatch.EmailConfig
}

func NewLogService(logger *slog.Logger, cfg parkwatch.EmailConfig) *LogService {
	return &LogService{logger: logger, config: cfg}
}

func (s *LogService) SendWelcomeEmail(ctx context.Context, to, name string) error {
	msg := newWelcomeMessage(s.config, name)
	s.logger.Info("email not sent, no provider configured",
		slog.String("to", to),
		slog.String("subject", msg.Subject),
		slog.String("dashboard_url", s.config.DashboardURL),
	)
	return nil
}

// Sender is the part of the Postmark client PostmarkService uses.
type Sender interface {
	SendEmail(email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkService sends emails through Postmark.
type PostmarkService struct {
	client Sender
	logger *slog.Logger
	config parkwatch.EmailConfig
}

func NewPostmarkService(logger *slog.Logger, cfg parkwatch.EmailConfig, client Sender) *PostmarkService {
	return &PostmarkService{client: client, logger: logger, config: cfg}
}

func (s *PostmarkService) SendWelcomeEmail(ctx context.Context, to, name string) error {
	msg := newWelcomeMessage(s.config, name)

	resp, err := s.client.SendEmail(postmark.Email{
		From:       s.config.FromAddress,
		To:         to,
		Subject:    msg.Subject,
		TextBody:   msg.TextBody,
		HtmlBody:   msg.HTMLBody,
		Tag:        "welcome",
		TrackOpens: true,
	})
	if err == nil && resp.ErrorCode != 0 {
		err = fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)
	}
	if err != nil {
		s.logger.Error("failed to send welcome email via Postmark",
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("send welcome email: %w", err)
	}

	s.logger.Info("welcome email sent via Postmark",
		slog.String("to", to),
		slog.String("message_id", resp.MessageID),
	)
	return nil
}

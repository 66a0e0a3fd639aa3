package parkwatch

import "context"

// EmailService sends account notifications.
type EmailService interface {
	// SendWelcomeEmail greets a newly registered officer.
	SendWelcomeEmail(ctx context.Context, to, name string) error
}

// EmailConfig configures the EmailService.
type EmailConfig struct {
	Provider string // "postmark" or "log"

	FromAddress  string
	DashboardURL string

	PostmarkServerToken  string
	PostmarkAccountToken string
}

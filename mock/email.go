package mock

import (
	"context"

	"github.com/dukerupert/parkwatch"
)

var _ parkwatch.EmailService = (*EmailService)(nil)

type EmailService struct {
	SendWelcomeEmailFn func(ctx context.Context, to, name string) error
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, to, name string) error {
	if s.SendWelcomeEmailFn != nil {
		return s.SendWelcomeEmailFn(ctx, to, name)
	}
	return nil
}

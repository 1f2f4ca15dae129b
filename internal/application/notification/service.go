// Package notification turns queued tasks into emails.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-api-auth/internal/domain"
)

type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type Service interface {
	Handle(ctx context.Context, t domain.Task) error
}

type service struct {
	mailer Mailer
}

func NewService(mailer Mailer) Service {
	return &service{mailer: mailer}
}

// Handle sends the email for t. Unknown kinds wrap domain.ErrValidation so
// the consumer can drop them instead of retrying.
func (s *service) Handle(ctx context.Context, t domain.Task) error {
	subject, body, err := render(t)
	if err != nil {
		return err
	}
	if err := s.mailer.SendEmail(ctx, t.Email, subject, body); err != nil {
		return fmt.Errorf("send %s: %w", t.Kind, err)
	}
	slog.Info("notification sent", "task_id", t.ID, "kind", t.Kind)
	return nil
}

func render(t domain.Task) (subject, body string, err error) {
	if t.Email == "" {
		return "", "", fmt.Errorf("task %s has no recipient: %w", t.ID, domain.ErrValidation)
	}
	switch t.Kind {
	case domain.TaskSendVerificationCode:
		if t.Code == 0 {
			return "", "", fmt.Errorf("task %s has no code: %w", t.ID, domain.ErrValidation)
		}
		return "Your verification code",
			fmt.Sprintf("Your verification code is %d.\r\n\r\nIt expires soon; if you did not ask for it, ignore this email.", t.Code),
			nil
	case domain.TaskSendWelcomeEmail:
		return "Welcome",
			fmt.Sprintf("Your account %s is ready. Sign in with the password you chose at signup.", t.Email),
			nil
	default:
		return "", "", fmt.Errorf("unknown task kind %q: %w", t.Kind, domain.ErrValidation)
	}
}

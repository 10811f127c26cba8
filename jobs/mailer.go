package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// Mailer hands account emails to the task queue. It satisfies the user
// service's mailer dependency without blocking requests on SMTP.
type Mailer struct {
	client *asynq.Client
}

// NewMailer constructs a Mailer over an asynq client.
func NewMailer(client *asynq.Client) *Mailer {
	return &Mailer{client: client}
}

// SendVerification enqueues a verification email.
func (m *Mailer) SendVerification(ctx context.Context, email, token string) error {
	task, err := NewVerificationMailTask(MailPayload{To: email, Token: token})
	if err != nil {
		return err
	}
	if _, err := m.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("jobs: enqueue verification mail: %w", err)
	}
	return nil
}

// SendPasswordReset enqueues a password reset email.
func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string) error {
	task, err := NewPasswordResetMailTask(MailPayload{To: email, Token: token})
	if err != nil {
		return err
	}
	if _, err := m.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("jobs: enqueue reset mail: %w", err)
	}
	return nil
}

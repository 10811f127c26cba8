// Package jobs defines the background tasks used for account lifecycle
// email delivery, processed by the asynq worker.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeVerificationMail delivers an email verification link.
	TaskTypeVerificationMail = "mail:verification"
	// TaskTypePasswordResetMail delivers a password reset link.
	TaskTypePasswordResetMail = "mail:password_reset"
)

// MailPayload carries the recipient and the raw single-use token; the
// worker renders the link from its configured base URL.
type MailPayload struct {
	To    string `json:"to"`
	Token string `json:"token"`
}

// NewVerificationMailTask constructs the verification email task.
func NewVerificationMailTask(payload MailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal verification mail: %w", err)
	}
	return asynq.NewTask(TaskTypeVerificationMail, data, asynq.Queue(QueueDefault)), nil
}

// NewPasswordResetMailTask constructs the password reset email task.
func NewPasswordResetMailTask(payload MailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jobs: marshal reset mail: %w", err)
	}
	return asynq.NewTask(TaskTypePasswordResetMail, data, asynq.Queue(QueueDefault)), nil
}

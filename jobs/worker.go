package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"net/url"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	jobmetrics "github.com/inkpress/inkpress/internal/jobs"
)

// SMTPConfig locates the outbound mail relay.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// Worker runs the asynq server that delivers account emails.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	SMTP      SMTPConfig
	// BaseURL is the public address links are built against.
	BaseURL string
	// Registerer receives the job collectors; nil uses the default registry.
	Registerer prometheus.Registerer
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) *Worker {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})

	sender := &mailSender{
		smtp:    cfg.SMTP,
		baseURL: cfg.BaseURL,
		logger:  cfg.Logger,
		metrics: jobmetrics.NewMetrics(cfg.Registerer),
	}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeVerificationMail, sender.handleVerificationMail)
	mux.HandleFunc(TaskTypePasswordResetMail, sender.handlePasswordResetMail)

	return &Worker{server: srv, mux: mux, logger: cfg.Logger}
}

// Run starts the worker and blocks until shutdown.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

type mailSender struct {
	smtp    SMTPConfig
	baseURL string
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

func (s *mailSender) handleVerificationMail(ctx context.Context, t *asynq.Task) error {
	tracker := s.metrics.Track(TaskTypeVerificationMail)
	var payload MailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	link := s.baseURL + "/auth/verify?token=" + url.QueryEscape(payload.Token)
	return tracker.End(s.send(payload.To, "Verify your email address",
		"Welcome! Confirm your email address by visiting:\r\n\r\n"+link+"\r\n\r\nThe link expires in 24 hours."))
}

func (s *mailSender) handlePasswordResetMail(ctx context.Context, t *asynq.Task) error {
	tracker := s.metrics.Track(TaskTypePasswordResetMail)
	var payload MailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(payload.Token)
	return tracker.End(s.send(payload.To, "Reset your password",
		"A password reset was requested for your account. Visit:\r\n\r\n"+link+"\r\n\r\nThe link expires in 1 hour. If you did not request this, ignore this email."))
}

func (s *mailSender) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.smtp.Host, s.smtp.Port)
	msg := []byte("From: " + s.smtp.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body + "\r\n")

	if err := smtp.SendMail(addr, nil, s.smtp.From, []string{to}, msg); err != nil {
		s.logger.Warn("send mail", slog.String("to", to), slog.Any("error", err))
		return err
	}
	return nil
}

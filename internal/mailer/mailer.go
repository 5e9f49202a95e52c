// Package mailer sends the account emails through a configurable provider.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 10 * time.Second

// Provider names accepted by New.
const (
	ProviderSMTP     = "smtp"
	ProviderResend   = "resend"
	ProviderSendGrid = "sendgrid"
	ProviderLog      = "log"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a rendered email.
type Message struct {
	From     string
	FromName string
	To       string
	Subject  string
	HTML     string
}

// Sender delivers a rendered message. Implementations must honor ctx.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DeliveryError reports that the provider did not accept a message.
type DeliveryError struct {
	Provider string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver email via %s: %v", e.Provider, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Delivery marks the error as a mail delivery failure.
func (e *DeliveryError) Delivery() bool { return true }

// IsDelivery reports whether err is, or wraps, a *DeliveryError.
func IsDelivery(err error) bool {
	var d *DeliveryError
	return errors.As(err, &d)
}

// Config selects and configures the provider.
type Config struct {
	Provider string
	From     string
	FromName string
	Timeout  time.Duration
	SMTP     SMTPConfig
	APIKey   string
	// BaseURL overrides the provider API endpoint.
	BaseURL string
}

// Mailer renders the account emails and hands them to a Sender.
type Mailer struct {
	sender   Sender
	provider string
	from     string
	fromName string
	timeout  time.Duration
	logger   *slog.Logger
}

// New builds a Mailer for cfg.Provider.
func New(cfg Config, logger *slog.Logger) (*Mailer, error) {
	var sender Sender
	switch cfg.Provider {
	case ProviderSMTP:
		sender = NewSMTPSender(cfg.SMTP)
	case ProviderResend:
		if cfg.APIKey == "" {
			return nil, errors.New("mailer: resend requires an API key")
		}
		sender = NewResendSender(cfg.APIKey, cfg.BaseURL)
	case ProviderSendGrid:
		if cfg.APIKey == "" {
			return nil, errors.New("mailer: sendgrid requires an API key")
		}
		sender = NewSendGridSender(cfg.APIKey, cfg.BaseURL)
	case ProviderLog, "":
		sender = NewLogSender(logger)
	default:
		return nil, fmt.Errorf("mailer: unknown provider %q", cfg.Provider)
	}
	return NewWithSender(sender, cfg, logger), nil
}

// NewWithSender builds a Mailer around an existing Sender.
func NewWithSender(sender Sender, cfg Config, logger *slog.Logger) *Mailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderLog
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{
		sender:   sender,
		provider: cfg.Provider,
		from:     cfg.From,
		fromName: cfg.FromName,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// SendPasswordReset sends the reset link, which expires after validFor.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, link string, validFor time.Duration) error {
	return m.send(ctx, to, "Reset your BlissLearn password", "password_reset", templateData{Name: name, Link: link, ValidFor: humanDuration(validFor)})
}

// SendPasswordChanged confirms a completed reset.
func (m *Mailer) SendPasswordChanged(ctx context.Context, to, name string) error {
	return m.send(ctx, to, "Your BlissLearn password was changed", "password_changed", templateData{Name: name})
}

// SendVerification sends the email verification link, which expires after
// validFor.
func (m *Mailer) SendVerification(ctx context.Context, to, name, link string, validFor time.Duration) error {
	return m.send(ctx, to, "Verify your email address", "verification", templateData{Name: name, Link: link, ValidFor: humanDuration(validFor)})
}

// humanDuration renders d in whole hours when it is a multiple of an hour,
// otherwise in whole minutes.
func humanDuration(d time.Duration) string {
	unit, n := "minute", int(d/time.Minute)
	if d >= time.Hour && d%time.Hour == 0 {
		unit, n = "hour", int(d/time.Hour)
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

type templateData struct {
	Name     string
	Link     string
	ValidFor string
}

func (m *Mailer) send(ctx context.Context, to, subject, tmpl string, data templateData) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := m.sender.Send(ctx, Message{
		From:     m.from,
		FromName: m.fromName,
		To:       to,
		Subject:  subject,
		HTML:     body.String(),
	})
	if err != nil {
		return &DeliveryError{Provider: m.provider, Err: err}
	}
	m.logger.Debug("email sent", "provider", m.provider, "template", tmpl, "duration", time.Since(start))
	return nil
}

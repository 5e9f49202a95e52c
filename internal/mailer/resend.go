package mailer

import (
	"context"
	"net/url"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a Resend sender. baseURL may be empty.
func NewResendSender(apiKey, baseURL string) *ResendSender {
	client := resend.NewClient(apiKey)
	if baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			client.BaseURL = u
		}
	}
	return &ResendSender{client: client}
}

// Send implements Sender.
func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	from := msg.From
	if msg.FromName != "" {
		from = msg.FromName + " <" + msg.From + ">"
	}
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	return err
}

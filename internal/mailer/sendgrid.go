package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridHost = "https://api.sendgrid.com"

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	apiKey string
	host   string
}

// NewSendGridSender creates a SendGrid sender. host may be empty.
func NewSendGridSender(apiKey, host string) *SendGridSender {
	if host == "" {
		host = sendGridHost
	}
	return &SendGridSender{apiKey: apiKey, host: host}
}

// Send implements Sender.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewSingleEmail(
		mail.NewEmail(msg.FromName, msg.From),
		msg.Subject,
		mail.NewEmail("", msg.To),
		"",
		msg.HTML,
	)

	req := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

const mailgunSendTimeout = 30 * time.Second

var _ Sender = &MailgunSender{}

type MailgunSender struct {
	mg mailgun.Mailgun
}

func NewMailgunSender(domain string, apiKey string) *MailgunSender {
	return &MailgunSender{
		mg: mailgun.NewMailgun(domain, apiKey),
	}
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, mailgunSendTimeout)
	defer cancel()

	m := mailgun.NewMessage(msg.FromAddress, msg.Subject, msg.TextBody, msg.ToAddress)
	if msg.HTMLBody != "" {
		m.SetHTML(msg.HTMLBody)
	}
	if msg.ReplyTo != "" {
		m.SetReplyTo(msg.ReplyTo)
	}
	for _, tag := range msg.Tags {
		if err := m.AddTag(tag); err != nil {
			return fmt.Errorf("failed to tag mailgun message: %w", err)
		}
	}

	_, _, err := s.mg.Send(ctx, m)
	if err != nil {
		return fmt.Errorf("mailgun send failed: %w", err)
	}

	return nil
}

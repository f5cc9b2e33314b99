package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const sesSendTimeout = 30 * time.Second

var _ Sender = &SESSender{}

type SESSender struct {
	client *sesv2.Client
}

func NewSESSender(client *sesv2.Client) *SESSender {
	return &SESSender{
		client: client,
	}
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, sesSendTimeout)
	defer cancel()

	var replyTo []string
	if msg.ReplyTo != "" {
		replyTo = []string{msg.ReplyTo}
	}

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.FromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.ToAddress},
		},
		ReplyToAddresses: replyTo,
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data: aws.String(msg.Subject),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data: aws.String(msg.HTMLBody),
					},
					Text: &types.Content{
						Data: aws.String(msg.TextBody),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}

	return nil
}

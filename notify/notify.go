// Package notify sends transactional email. One Sender interface, one
// backend selected by configuration; delivery is attempted once and failure
// is the caller's to log, never to retry or roll back for.
package notify

import "context"

type Message struct {
	FromAddress string
	ToAddress   string
	ReplyTo     string
	Subject     string
	HTMLBody    string
	TextBody    string
	// Tags are passed to backends that support delivery tagging.
	Tags []string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Package notify delivers email notifications through a durable outbox.
//
// Callers enqueue through a Notifier; a Worker drains the outbox and hands
// each message to a Sender (SMTP or log).
package notify

import (
	"context"
	"errors"
)

// Notifier accepts a message for eventual delivery.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Sender performs the actual delivery of a single message.
type Sender interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// Sentinel errors for notify operations.
var (
	ErrMessageNotFound = errors.New("outbox message not found")
	ErrEmptyRecipient  = errors.New("recipient is required")
)

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/anonsched/scheduler/internal/metrics"
	"github.com/anonsched/scheduler/internal/model"
)

// Outbox is a Notifier that persists messages for the Worker to deliver.
type Outbox struct {
	store   Store
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewOutbox creates an outbox-backed Notifier.
func NewOutbox(store Store, logger *slog.Logger, recorder metrics.Recorder) *Outbox {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Outbox{
		store:   store,
		logger:  logger.With("component", "notify.outbox"),
		metrics: recorder,
		now:     time.Now,
	}
}

// Send enqueues a message for immediate delivery.
func (o *Outbox) Send(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrEmptyRecipient
	}

	now := o.now().UTC()
	msg := &model.OutboxMessage{
		ID:            ulid.Make().String(),
		Recipient:     to,
		Subject:       subject,
		Body:          body,
		Status:        model.OutboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}

	if err := o.store.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}

	o.metrics.IncNotification(metrics.NotificationEnqueued)
	o.logger.Debug("email enqueued", "message_id", msg.ID, "recipient", to)
	return nil
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonsched/scheduler/internal/metrics"
	"github.com/anonsched/scheduler/internal/model"
)

const (
	// DefaultBatchSize is the number of messages to process per poll.
	DefaultBatchSize = 25
	// DefaultPollInterval is the time between polling for due messages.
	DefaultPollInterval = 2 * time.Second
	// DefaultMetricsInterval is how often to update queue depth metrics.
	DefaultMetricsInterval = 10 * time.Second
)

// Worker drains the email outbox.
type Worker struct {
	store           Store
	sender          Sender
	logger          *slog.Logger
	metrics         metrics.Recorder
	batchSize       int
	pollInterval    time.Duration
	maxAttempts     int
	metricsInterval time.Duration
	lastMetrics     time.Time
	now             func() time.Time
	started         bool
}

// NewWorker creates a new outbox delivery worker.
func NewWorker(store Store, sender Sender, logger *slog.Logger, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		store:           store,
		sender:          sender,
		logger:          logger.With("component", "notify.worker"),
		metrics:         recorder,
		batchSize:       DefaultBatchSize,
		pollInterval:    DefaultPollInterval,
		maxAttempts:     DefaultMaxAttempts,
		metricsInterval: DefaultMetricsInterval,
		now:             time.Now,
	}
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.started {
		return errors.New("worker already started")
	}
	w.started = true

	w.logger.Info("email worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopping")
			return nil
		case <-ticker.C:
			if _, err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
			}
		}
	}
}

// processOnce claims and delivers a batch of due messages.
// It returns the number of messages claimed.
func (w *Worker) processOnce(ctx context.Context) (int, error) {
	w.maybeUpdateQueueDepth(ctx)

	msgs, err := w.store.ClaimDue(ctx, w.now().UTC(), w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due messages: %w", err)
	}

	sent := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if err := w.sender.Deliver(ctx, msg.Recipient, msg.Subject, msg.Body); err != nil {
			if markErr := w.handleDeliveryError(ctx, msg, err); markErr != nil {
				w.logger.Warn("failed to record delivery error",
					"message_id", msg.ID,
					"error", markErr,
				)
			}
			continue
		}
		w.metrics.IncNotification(metrics.NotificationSent)
		w.logger.Info("email delivered", "message_id", msg.ID, "recipient", msg.Recipient)
		sent = append(sent, msg.ID)
	}

	if err := w.store.MarkSent(ctx, sent, w.now().UTC()); err != nil {
		return len(msgs), err
	}
	return len(msgs), nil
}

// handleDeliveryError reschedules or fails a message after an attempt.
func (w *Worker) handleDeliveryError(ctx context.Context, msg *model.OutboxMessage, deliveryErr error) error {
	attempt := msg.Attempts + 1
	exhausted := IsExhausted(attempt, w.maxAttempts)

	w.logger.Warn("email delivery failed",
		"message_id", msg.ID,
		"recipient", msg.Recipient,
		"attempt", attempt,
		"exhausted", exhausted,
		"error", deliveryErr,
	)

	if exhausted {
		w.metrics.IncNotification(metrics.NotificationFailed)
		return w.store.MarkFailed(ctx, msg.ID, deliveryErr.Error())
	}

	w.metrics.IncNotification(metrics.NotificationRetry)
	return w.store.MarkRetry(ctx, msg.ID, deliveryErr.Error(), NextRetryAt(w.now().UTC(), msg.Attempts))
}

// maybeUpdateQueueDepth periodically updates queue depth metric.
func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	depth, err := w.store.QueueDepth(ctx)
	if err != nil {
		w.logger.Warn("failed to get queue depth", "error", err)
		return
	}
	w.metrics.SetOutboxQueueDepth(depth)
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// SetPollInterval overrides the default poll interval.
func (w *Worker) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		w.pollInterval = interval
	}
}

// SetMaxAttempts overrides the default attempt limit.
func (w *Worker) SetMaxAttempts(n int) {
	if n > 0 {
		w.maxAttempts = n
	}
}

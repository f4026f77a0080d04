package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/anonsched/scheduler/internal/model"
)

// claimLease hides claimed rows from other workers while they are in flight.
const claimLease = 5 * time.Minute

const maxErrorLength = 500

// Store is the persistence contract the Outbox and Worker rely on.
type Store interface {
	Enqueue(ctx context.Context, msg *model.OutboxMessage) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.OutboxMessage, error)
	MarkSent(ctx context.Context, ids []string, at time.Time) error
	MarkRetry(ctx context.Context, id, errMsg string, nextAttemptAt time.Time) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	QueueDepth(ctx context.Context) (int64, error)
}

// Repository handles email outbox persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new outbox repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue inserts a pending message.
func (r *Repository) Enqueue(ctx context.Context, msg *model.OutboxMessage) error {
	query := `
		INSERT INTO email_outbox (
			id, recipient, subject, body, status, attempts,
			next_attempt_at, last_error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, '', $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.Recipient,
		msg.Subject,
		msg.Body,
		string(msg.Status),
		msg.Attempts,
		msg.NextAttemptAt,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// ClaimDue leases up to limit due messages. Concurrent workers skip rows
// another worker has locked, and the lease pushes next_attempt_at forward
// so a crashed worker's rows become due again later.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.OutboxMessage, error) {
	query := `
		UPDATE email_outbox
		SET next_attempt_at = $2
		WHERE id IN (
			SELECT id FROM email_outbox
			WHERE status = 'pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient, subject, body, status, attempts,
			next_attempt_at, last_error, created_at, sent_at
	`

	rows, err := r.db.QueryContext(ctx, query, now, now.Add(claimLease), limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox messages: %w", err)
	}
	defer rows.Close()

	var msgs []*model.OutboxMessage
	for rows.Next() {
		var msg model.OutboxMessage
		var status string
		var sentAt sql.NullTime
		if err := rows.Scan(
			&msg.ID,
			&msg.Recipient,
			&msg.Subject,
			&msg.Body,
			&status,
			&msg.Attempts,
			&msg.NextAttemptAt,
			&msg.LastError,
			&msg.CreatedAt,
			&sentAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		msg.Status = model.OutboxStatus(status)
		if sentAt.Valid {
			msg.SentAt = &sentAt.Time
		}
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox messages: %w", err)
	}
	return msgs, nil
}

// MarkSent marks a batch of messages as delivered.
func (r *Repository) MarkSent(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE email_outbox
		SET status = 'sent', attempts = attempts + 1, sent_at = $2, last_error = ''
		WHERE id = ANY($1)
	`

	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids), at); err != nil {
		return fmt.Errorf("mark outbox sent: %w", err)
	}
	return nil
}

// MarkRetry records a failed attempt and schedules the next one.
func (r *Repository) MarkRetry(ctx context.Context, id, errMsg string, nextAttemptAt time.Time) error {
	query := `
		UPDATE email_outbox
		SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3
		WHERE id = $1 AND status = 'pending'
	`
	return r.exec(ctx, "mark outbox retry", query, id, truncateError(errMsg), nextAttemptAt)
}

// MarkFailed records the final failed attempt.
func (r *Repository) MarkFailed(ctx context.Context, id, errMsg string) error {
	query := `
		UPDATE email_outbox
		SET status = 'failed', attempts = attempts + 1, last_error = $2
		WHERE id = $1 AND status = 'pending'
	`
	return r.exec(ctx, "mark outbox failed", query, id, truncateError(errMsg))
}

// QueueDepth returns the number of pending messages.
func (r *Repository) QueueDepth(ctx context.Context) (int64, error) {
	var depth int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_outbox WHERE status = 'pending'`).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("count pending outbox: %w", err)
	}
	return depth, nil
}

// Get retrieves a message by id.
func (r *Repository) Get(ctx context.Context, id string) (*model.OutboxMessage, error) {
	query := `
		SELECT id, recipient, subject, body, status, attempts,
			next_attempt_at, last_error, created_at, sent_at
		FROM email_outbox
		WHERE id = $1
	`

	var msg model.OutboxMessage
	var status string
	var sentAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.Recipient,
		&msg.Subject,
		&msg.Body,
		&status,
		&msg.Attempts,
		&msg.NextAttemptAt,
		&msg.LastError,
		&msg.CreatedAt,
		&sentAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get outbox message: %w", err)
	}
	msg.Status = model.OutboxStatus(status)
	if sentAt.Valid {
		msg.SentAt = &sentAt.Time
	}
	return &msg, nil
}

func (r *Repository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func truncateError(msg string) string {
	if len(msg) > maxErrorLength {
		return msg[:maxErrorLength]
	}
	return msg
}

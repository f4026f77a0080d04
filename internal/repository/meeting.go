package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anonsched/scheduler/internal/model"
)

// Common errors for meeting repository operations.
var (
	ErrMeetingNotFound = errors.New("meeting not found")
	// ErrMeetingVersionConflict means the stored aggregate changed since it was read.
	ErrMeetingVersionConflict = errors.New("meeting was modified concurrently")
)

const meetingColumns = `
	id, title, creator_id, attendee_ids, meeting_link, proposed_times, approvals,
	messages, confirmed_time, calendar_event_id, version, created_at, updated_at
`

// CreateMeeting inserts a new meeting at version 1.
func (r *Repository) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	query := `
		INSERT INTO meetings (id, title, creator_id, attendee_ids, meeting_link, proposed_times,
			approvals, messages, confirmed_time, calendar_event_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		m.ID,
		m.Title,
		m.CreatorID,
		nonNil(m.AttendeeIDs),
		m.MeetingLink,
		nonNil(m.ProposedTimes),
		nonNil(m.Approvals),
		nonNil(m.Messages),
		m.ConfirmedTime,
		m.CalendarEventID,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	m.Version = 1
	return nil
}

// GetMeeting loads the full meeting aggregate.
func (r *Repository) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`

	m, err := scanMeeting(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	return m, nil
}

// ListMeetingsForUser returns meetings the user created or attends, most recently updated first.
func (r *Repository) ListMeetingsForUser(ctx context.Context, userID string) ([]*model.Meeting, error) {
	query := `
		SELECT ` + meetingColumns + `
		FROM meetings
		WHERE creator_id = $1 OR $1 = ANY(attendee_ids)
		ORDER BY updated_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	meetings := make([]*model.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}

	return meetings, nil
}

// UpdateMeeting writes the aggregate if the stored version still equals m.Version.
// On success m.Version and m.UpdatedAt reflect the new row.
// Returns ErrMeetingVersionConflict if another writer got there first.
func (r *Repository) UpdateMeeting(ctx context.Context, m *model.Meeting) error {
	query := `
		UPDATE meetings
		SET title = $3,
			attendee_ids = $4,
			meeting_link = $5,
			proposed_times = $6,
			approvals = $7,
			messages = $8,
			confirmed_time = $9,
			calendar_event_id = $10,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		m.ID,
		m.Version,
		m.Title,
		nonNil(m.AttendeeIDs),
		m.MeetingLink,
		nonNil(m.ProposedTimes),
		nonNil(m.Approvals),
		nonNil(m.Messages),
		m.ConfirmedTime,
		m.CalendarEventID,
	).Scan(&m.Version, &m.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetMeeting(ctx, m.ID); errors.Is(getErr, ErrMeetingNotFound) {
				return ErrMeetingNotFound
			}
			return ErrMeetingVersionConflict
		}
		return fmt.Errorf("failed to update meeting: %w", err)
	}

	return nil
}

func scanMeeting(row pgx.Row) (*model.Meeting, error) {
	var m model.Meeting

	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.CreatorID,
		&m.AttendeeIDs,
		&m.MeetingLink,
		&m.ProposedTimes,
		&m.Approvals,
		&m.Messages,
		&m.ConfirmedTime,
		&m.CalendarEventID,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if m.ConfirmedTime != nil {
		t := m.ConfirmedTime.UTC()
		m.ConfirmedTime = &t
	}
	return &m, nil
}

// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels shared by recorders.
const (
	ProposalAccepted = "accepted"
	ProposalConflict = "conflict"

	NotificationEnqueued = "enqueued"
	NotificationSent     = "sent"
	NotificationRetry    = "retry"
	NotificationFailed   = "failed"

	CalendarCreate = "create"
	CalendarPatch  = "patch"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Meeting lifecycle
	IncMeetingCreated()
	IncProposal(outcome string) // ProposalAccepted or ProposalConflict
	IncApproval()
	IncConfirmation()
	IncMove()
	IncVersionConflict()

	// Side effects
	IncNotification(status string)
	IncCalendarSync(op, status string)
	SetOutboxQueueDepth(depth int64)

	// HTTP
	ObserveHTTPRequest(route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	MeetingsCreated   uint64
	ProposalsAccepted uint64
	ProposalsConflict uint64
	Approvals         uint64
	Confirmations     uint64
	Moves             uint64
	VersionConflicts  uint64
	OutboxQueueDepth  int64
	HTTPRequests      uint64

	// Keyed by status label.
	Notifications map[string]uint64
	// Keyed by "op/status".
	CalendarSyncs map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	meetingsCreated   uint64
	proposalsAccepted uint64
	proposalsConflict uint64
	approvals         uint64
	confirmations     uint64
	moves             uint64
	versionConflicts  uint64
	outboxQueueDepth  int64
	httpRequests      uint64

	mu            sync.Mutex
	notifications map[string]uint64
	calendarSyncs map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		notifications: make(map[string]uint64),
		calendarSyncs: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	notifications := make(map[string]uint64, len(m.notifications))
	for k, v := range m.notifications {
		notifications[k] = v
	}
	calendarSyncs := make(map[string]uint64, len(m.calendarSyncs))
	for k, v := range m.calendarSyncs {
		calendarSyncs[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		MeetingsCreated:   atomic.LoadUint64(&m.meetingsCreated),
		ProposalsAccepted: atomic.LoadUint64(&m.proposalsAccepted),
		ProposalsConflict: atomic.LoadUint64(&m.proposalsConflict),
		Approvals:         atomic.LoadUint64(&m.approvals),
		Confirmations:     atomic.LoadUint64(&m.confirmations),
		Moves:             atomic.LoadUint64(&m.moves),
		VersionConflicts:  atomic.LoadUint64(&m.versionConflicts),
		OutboxQueueDepth:  atomic.LoadInt64(&m.outboxQueueDepth),
		HTTPRequests:      atomic.LoadUint64(&m.httpRequests),
		Notifications:     notifications,
		CalendarSyncs:     calendarSyncs,
	}
}

// IncMeetingCreated increments the meeting created counter.
func (m *InMemoryRecorder) IncMeetingCreated() {
	atomic.AddUint64(&m.meetingsCreated, 1)
}

// IncProposal increments the proposal counter for outcome.
func (m *InMemoryRecorder) IncProposal(outcome string) {
	if outcome == ProposalConflict {
		atomic.AddUint64(&m.proposalsConflict, 1)
		return
	}
	atomic.AddUint64(&m.proposalsAccepted, 1)
}

// IncApproval increments the approval counter.
func (m *InMemoryRecorder) IncApproval() {
	atomic.AddUint64(&m.approvals, 1)
}

// IncConfirmation increments the confirmation counter.
func (m *InMemoryRecorder) IncConfirmation() {
	atomic.AddUint64(&m.confirmations, 1)
}

// IncMove increments the move counter.
func (m *InMemoryRecorder) IncMove() {
	atomic.AddUint64(&m.moves, 1)
}

// IncVersionConflict increments the optimistic lock retry counter.
func (m *InMemoryRecorder) IncVersionConflict() {
	atomic.AddUint64(&m.versionConflicts, 1)
}

// IncNotification increments the notification counter for status.
func (m *InMemoryRecorder) IncNotification(status string) {
	m.mu.Lock()
	m.notifications[status]++
	m.mu.Unlock()
}

// IncCalendarSync increments the calendar sync counter for op and status.
func (m *InMemoryRecorder) IncCalendarSync(op, status string) {
	m.mu.Lock()
	m.calendarSyncs[op+"/"+status]++
	m.mu.Unlock()
}

// SetOutboxQueueDepth records the pending outbox depth.
func (m *InMemoryRecorder) SetOutboxQueueDepth(depth int64) {
	atomic.StoreInt64(&m.outboxQueueDepth, depth)
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

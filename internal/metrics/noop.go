package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncMeetingCreated()                {}
func (n *NoopRecorder) IncProposal(outcome string)        {}
func (n *NoopRecorder) IncApproval()                      {}
func (n *NoopRecorder) IncConfirmation()                  {}
func (n *NoopRecorder) IncMove()                          {}
func (n *NoopRecorder) IncVersionConflict()               {}
func (n *NoopRecorder) IncNotification(status string)     {}
func (n *NoopRecorder) IncCalendarSync(op, status string) {}
func (n *NoopRecorder) SetOutboxQueueDepth(depth int64)   {}

func (n *NoopRecorder) ObserveHTTPRequest(route string, status int, duration time.Duration) {}

package handler

import (
	"fmt"
	"net/http"

	"github.com/anonsched/scheduler/internal/metrics"
)

// MetricsHandler exposes metrics. A recorder that serves its own exposition
// (Prometheus) is delegated to; a Snapshotter is rendered as text.
type MetricsHandler struct {
	exposer     http.Handler
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler for recorder.
func NewMetricsHandler(recorder metrics.Recorder) *MetricsHandler {
	h := &MetricsHandler{}
	if p, ok := recorder.(interface{ Handler() http.Handler }); ok {
		h.exposer = p.Handler()
	}
	if s, ok := recorder.(metrics.Snapshotter); ok {
		h.snapshotter = s
	}
	return h
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exposer != nil {
		h.exposer.ServeHTTP(w, r)
		return
	}
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "scheduler_meetings_created_total %d\n", snap.MeetingsCreated)
	writeMetric(w, "scheduler_proposals_total{outcome=\"%s\"} %d\n", metrics.ProposalAccepted, snap.ProposalsAccepted)
	writeMetric(w, "scheduler_proposals_total{outcome=\"%s\"} %d\n", metrics.ProposalConflict, snap.ProposalsConflict)
	writeMetric(w, "scheduler_approvals_total %d\n", snap.Approvals)
	writeMetric(w, "scheduler_confirmations_total %d\n", snap.Confirmations)
	writeMetric(w, "scheduler_moves_total %d\n", snap.Moves)
	writeMetric(w, "scheduler_version_conflicts_total %d\n", snap.VersionConflicts)
	writeMetric(w, "scheduler_email_outbox_pending %d\n", snap.OutboxQueueDepth)
	writeMetric(w, "scheduler_http_requests_total %d\n", snap.HTTPRequests)

	for _, status := range []string{metrics.NotificationEnqueued, metrics.NotificationSent, metrics.NotificationRetry, metrics.NotificationFailed} {
		writeMetric(w, "scheduler_notifications_total{status=\"%s\"} %d\n", status, snap.Notifications[status])
	}
	for _, op := range []string{metrics.CalendarCreate, metrics.CalendarPatch} {
		for _, status := range []string{metrics.StatusSuccess, metrics.StatusFailure} {
			writeMetric(w, "scheduler_calendar_sync_total{op=\"%s\",status=\"%s\"} %d\n", op, status, snap.CalendarSyncs[op+"/"+status])
		}
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

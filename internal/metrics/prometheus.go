package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scheduler"

// PrometheusRecorder exports metrics on a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	meetingsCreated  prometheus.Counter
	proposals        *prometheus.CounterVec
	approvals        prometheus.Counter
	confirmations    prometheus.Counter
	moves            prometheus.Counter
	versionConflicts prometheus.Counter
	notifications    *prometheus.CounterVec
	calendarSyncs    *prometheus.CounterVec
	outboxDepth      prometheus.Gauge
	httpDuration     *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with Go and process collectors registered.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &PrometheusRecorder{
		registry: reg,
		meetingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_created_total",
			Help:      "Meetings created.",
		}),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_total",
			Help:      "Time proposals by outcome.",
		}, []string{"outcome"}),
		approvals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approvals_total",
			Help:      "Recorded approvals.",
		}),
		confirmations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Meetings that reached unanimous approval.",
		}),
		moves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Confirmed meetings moved by their creator.",
		}),
		versionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflicts_total",
			Help:      "Optimistic concurrency retries on meeting writes.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Email notifications by status.",
		}, []string{"status"}),
		calendarSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_sync_total",
			Help:      "External calendar calls by operation and status.",
		}, []string{"op", "status"}),
		outboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "email_outbox_pending",
			Help:      "Pending rows in the email outbox.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		p.meetingsCreated,
		p.proposals,
		p.approvals,
		p.confirmations,
		p.moves,
		p.versionConflicts,
		p.notifications,
		p.calendarSyncs,
		p.outboxDepth,
		p.httpDuration,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncMeetingCreated() { p.meetingsCreated.Inc() }

func (p *PrometheusRecorder) IncProposal(outcome string) {
	p.proposals.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncApproval()        { p.approvals.Inc() }
func (p *PrometheusRecorder) IncConfirmation()    { p.confirmations.Inc() }
func (p *PrometheusRecorder) IncMove()            { p.moves.Inc() }
func (p *PrometheusRecorder) IncVersionConflict() { p.versionConflicts.Inc() }

func (p *PrometheusRecorder) IncNotification(status string) {
	p.notifications.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncCalendarSync(op, status string) {
	p.calendarSyncs.WithLabelValues(op, status).Inc()
}

func (p *PrometheusRecorder) SetOutboxQueueDepth(depth int64) {
	p.outboxDepth.Set(float64(depth))
}

func (p *PrometheusRecorder) ObserveHTTPRequest(route string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(duration.Seconds())
}

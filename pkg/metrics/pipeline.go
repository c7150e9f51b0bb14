package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Webhook pipeline outcomes.
const (
	OutcomeRecorded  = "recorded"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeCapped    = "capped"
	OutcomeFailed    = "failed"
)

// PipelineMetrics tracks the documentation-event ingestion pipeline from
// webhook receipt through reward distribution.
type PipelineMetrics struct {
	eventsReceived *prometheus.CounterVec
	duplicates     prometheus.Counter
	distributions  *prometheus.CounterVec
	rewardTotal    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	eventsReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attest_webhook_events_total",
		Help: "Webhook deliveries received, by event kind and outcome.",
	}, []string{"kind", "outcome"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attest_webhook_duplicates_total",
		Help: "Duplicate webhook deliveries absorbed.",
	})
	distributions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attest_reward_distributions_total",
		Help: "Reward distributions completed, by recipient kind.",
	}, []string{"recipient_kind"})
	rewardTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attest_reward_amount_total",
		Help: "Total reward amount credited, by recipient kind.",
	}, []string{"recipient_kind"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attest_webhook_duration_seconds",
		Help:    "End-to-end webhook handling duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	reg.MustRegister(eventsReceived, duplicates, distributions, rewardTotal, duration)
	return &PipelineMetrics{
		eventsReceived: eventsReceived,
		duplicates:     duplicates,
		distributions:  distributions,
		rewardTotal:    rewardTotal,
		duration:       duration,
	}
}

// IncReceived counts one webhook delivery for the given kind and outcome.
func (p *PipelineMetrics) IncReceived(kind, outcome string) {
	if p == nil || p.eventsReceived == nil {
		return
	}
	p.eventsReceived.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncDuplicate counts one absorbed duplicate delivery.
func (p *PipelineMetrics) IncDuplicate() {
	if p == nil || p.duplicates == nil {
		return
	}
	p.duplicates.Inc()
}

// ObserveDistribution records one ledger credit for a recipient kind.
func (p *PipelineMetrics) ObserveDistribution(recipientKind string, amount float64) {
	if p == nil || p.distributions == nil {
		return
	}
	label := normalizeLabel(recipientKind)
	p.distributions.WithLabelValues(label).Inc()
	p.rewardTotal.WithLabelValues(label).Add(amount)
}

// ObserveHandleDuration records the end-to-end webhook handling time.
func (p *PipelineMetrics) ObserveHandleDuration(kind string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

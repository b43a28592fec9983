package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch outcome labels.
const (
	OutcomeSent                = "sent"
	OutcomeNormalizationFailed = "normalization_failed"
	OutcomeSendRejected        = "send_rejected"
	OutcomeSkippedBlank        = "skipped_blank"
)

// DispatchMetrics exposes counters/histograms for dispatch and callback flows.
type DispatchMetrics struct {
	outcomeTotal  *prometheus.CounterVec
	callbackTotal *prometheus.CounterVec
	sendLatency   *prometheus.HistogramVec
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		outcomeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wabulk",
			Subsystem: "dispatch",
			Name:      "item_outcome_total",
			Help:      "Batch item outcomes by bucket",
		}, []string{"outcome"}),
		callbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wabulk",
			Subsystem: "callback",
			Name:      "status_event_total",
			Help:      "Inbound provider status callbacks",
		}, []string{"status", "resolved"}),
		sendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wabulk",
			Subsystem: "dispatch",
			Name:      "send_latency_seconds",
			Help:      "Latency of provider send calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomeTotal, m.callbackTotal, m.sendLatency)
	return m
}

func (m *DispatchMetrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomeTotal.WithLabelValues(outcome).Inc()
}

func (m *DispatchMetrics) ObserveCallback(status string, resolved bool) {
	if m == nil {
		return
	}
	label := "false"
	if resolved {
		label = "true"
	}
	m.callbackTotal.WithLabelValues(status, label).Inc()
}

func (m *DispatchMetrics) ObserveSendLatency(result string, seconds float64) {
	if m == nil {
		return
	}
	m.sendLatency.WithLabelValues(result).Observe(seconds)
}

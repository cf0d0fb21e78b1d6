package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/signals"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

var tracer = otel.Tracer("signal-audit.orchestrator")

var (
	passTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_evaluation_passes_total",
		Help: "Evaluation passes by trigger",
	}, []string{"trigger"})

	passDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audit_evaluation_pass_duration_seconds",
		Help:    "Duration of an evaluation pass including persistence",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"trigger"})

	eventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_appended_total",
		Help: "Events appended to the log by source",
	}, []string{"source"})

	decisionGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "audit_decisions",
		Help: "Decisions by status after the last pass",
	}, []string{"status"})

	signalGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "audit_signals",
		Help: "Signals by status after the last pass",
	}, []string{"status"})

	storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_store_errors_total",
		Help: "Store failures by operation",
	}, []string{"op"})
)

func observeSnapshot(snap state.Snapshot) {
	st := decisions.Tally(snap.Decisions)
	decisionGauge.WithLabelValues(string(decisions.StatusBlind)).Set(float64(st.Blind))
	decisionGauge.WithLabelValues(string(decisions.StatusPartial)).Set(float64(st.Partial))
	decisionGauge.WithLabelValues(string(decisions.StatusClear)).Set(float64(st.Clear))

	counts := map[signals.Status]int{signals.StatusPresent: 0, signals.StatusAbsent: 0, signals.StatusWeak: 0}
	for _, s := range snap.Signals {
		counts[s.CurrentStatus]++
	}
	for status, n := range counts {
		signalGauge.WithLabelValues(string(status)).Set(float64(n))
	}
}

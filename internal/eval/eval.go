package eval

import (
	"fmt"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/signals"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

// #region eval-harness
// EvalHarness checks that a stored snapshot is consistent with its own
// event log. It never modifies the snapshot.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run verifies snap. Drift means a stored status differs from what a fresh
// evaluation of the same events would produce.
func (h *EvalHarness) Run(snap state.Snapshot) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	check := func(name string, value float64, pass, blocking bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: pass})
		if !pass && blocking {
			failReasons = append(failReasons, reason)
		}
	}

	// 1. Signal drift
	drift := signalDrift(snap)
	check("signal_drift", float64(len(drift)), len(drift) == 0, true,
		fmt.Sprintf("%d signals drifted (first %s)", len(drift), first(drift)))

	// 2. Decision drift, against the stored signal statuses
	ddrift := decisionDrift(snap)
	check("decision_drift", float64(len(ddrift)), len(ddrift) == 0, true,
		fmt.Sprintf("%d decisions drifted (first %s)", len(ddrift), first(ddrift)))

	// 3. Event log bound
	limit := h.config.EventCap
	if limit <= 0 {
		limit = DefaultEvalConfig().EventCap
	}
	n := len(snap.Events)
	check("event_count", float64(n), n <= limit, true,
		fmt.Sprintf("event log holds %d events, cap %d", n, limit))

	// 4. Dangling references: informational unless strict
	sigRefs, flowRefs := danglingRefs(snap)
	check("dangling_signal_refs", float64(sigRefs), sigRefs == 0, h.config.StrictReferences,
		fmt.Sprintf("%d required signal ids do not resolve", sigRefs))
	check("dangling_flow_refs", float64(flowRefs), flowRefs == 0, h.config.StrictReferences,
		fmt.Sprintf("%d affected flow ids do not resolve", flowRefs))

	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// Verify runs the default harness with the given event cap.
func Verify(snap state.Snapshot, eventCap int) EvalResult {
	cfg := DefaultEvalConfig()
	if eventCap > 0 {
		cfg.EventCap = eventCap
	}
	return NewEvalHarness(cfg).Run(snap)
}

// #endregion eval-harness

// #region helpers
func signalDrift(snap state.Snapshot) []string {
	var out []string
	for _, s := range snap.Signals {
		if signals.Evaluate(s, snap.Events) != s.CurrentStatus {
			out = append(out, s.ID)
		}
	}
	return out
}

func decisionDrift(snap state.Snapshot) []string {
	var out []string
	for _, d := range snap.Decisions {
		if decisions.Classify(d, snap.Signals) != d.Status {
			out = append(out, d.ID)
		}
	}
	return out
}

func danglingRefs(snap state.Snapshot) (sigRefs, flowRefs int) {
	sigIDs := make(map[string]struct{}, len(snap.Signals))
	for _, s := range snap.Signals {
		sigIDs[s.ID] = struct{}{}
	}
	flowIDs := make(map[string]struct{}, len(snap.Flows))
	for _, f := range snap.Flows {
		flowIDs[f.ID] = struct{}{}
	}
	for _, d := range snap.Decisions {
		for _, id := range d.RequiredSignalIDs {
			if _, ok := sigIDs[id]; !ok {
				sigRefs++
			}
		}
		for _, id := range d.AffectedFlowIDs {
			if _, ok := flowIDs[id]; !ok {
				flowRefs++
			}
		}
	}
	return sigRefs, flowRefs
}

func first(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return ids[0]
}

// #endregion helpers

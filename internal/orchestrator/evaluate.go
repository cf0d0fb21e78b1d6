package orchestrator

import (
	"time"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/signals"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

// Evaluate re-derives every signal from the event log, then every decision
// from the fresh signals. Decisions never see stale signal statuses. snap is
// not modified.
func Evaluate(snap state.Snapshot, now time.Time) state.Snapshot {
	out := snap.Clone()
	out.Signals = signals.EvaluateAll(out.Signals, out.Events)
	out.Decisions = decisions.ClassifyAll(out.Decisions, out.Signals, now)
	return out
}

// View builds the read model for snap.
func View(snap state.Snapshot) SystemView {
	v := SystemView{
		Decisions:    decisions.Enrich(snap.Decisions, snap.Signals, snap.Flows),
		Signals:      snap.Clone().Signals,
		Stats:        decisions.Tally(snap.Decisions),
		RecentEvents: snap.Events.Recent(RecentEventCount),
	}
	if v.Signals == nil {
		v.Signals = []signals.Signal{}
	}
	if snap.LastScan != nil {
		ls := *snap.LastScan
		v.LastScan = &ls
	}
	return v
}

// Package replay runs recorded event batches through the evaluation pipeline
// in memory and compares the outcome with expected statuses.
package replay

import (
	"fmt"
	"sort"
	"time"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/eval"
	"github.com/danielpatrickdp/signal-audit/internal/events"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
	"github.com/danielpatrickdp/signal-audit/internal/signals"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

// #region types
// Step is one batch of events and the statuses expected after it.
type Step struct {
	Label             string
	Events            []events.Event
	ExpectedSignals   map[string]signals.Status
	ExpectedDecisions map[string]decisions.Status
}

// ReplayConfig bundles the event cap and verification config for a run.
type ReplayConfig struct {
	EventCap   int
	EvalConfig eval.EvalConfig
	Now        time.Time
}

// DefaultReplayConfig returns the defaults used by the daemon.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		EventCap:   events.DefaultCap,
		EvalConfig: eval.DefaultEvalConfig(),
		Now:        time.Unix(0, 0).UTC(),
	}
}

// Mismatch is one expected status that was not met.
type Mismatch struct {
	Kind     string // "signal" | "decision"
	ID       string
	Expected string
	Actual   string // "missing" when the id is not in the snapshot
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s %s: expected %s, got %s", m.Kind, m.ID, m.Expected, m.Actual)
}

// ReplayResult captures the outcome of one step.
type ReplayResult struct {
	Label      string
	Stats      decisions.Stats
	EventCount int
	Mismatches []Mismatch
	EvalResult eval.EvalResult
}

// Passed reports whether every expectation held and the snapshot verified.
func (r ReplayResult) Passed() bool {
	return len(r.Mismatches) == 0 && r.EvalResult.Passed
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps int
	Passed     int
	Failed     int
	FinalState state.Snapshot
}

// #endregion types

// #region replay
// Replay applies each step in order: append the batch, evaluate, verify,
// compare. It never touches a store.
func Replay(start state.Snapshot, steps []Step, config ReplayConfig) ([]ReplayResult, ReplaySummary) {
	current := orchestrator.Evaluate(start, config.Now)
	harness := eval.NewEvalHarness(config.EvalConfig)
	results := make([]ReplayResult, 0, len(steps))
	summary := ReplaySummary{TotalSteps: len(steps)}

	for _, st := range steps {
		current.Events = current.Events.Append(config.EventCap, st.Events...)
		current = orchestrator.Evaluate(current, config.Now)

		res := ReplayResult{
			Label:      st.Label,
			Stats:      decisions.Tally(current.Decisions),
			EventCount: len(current.Events),
			Mismatches: compare(current, st),
			EvalResult: harness.Run(current),
		}
		if res.Passed() {
			summary.Passed++
		} else {
			summary.Failed++
		}
		results = append(results, res)
	}

	summary.FinalState = current
	return results, summary
}

// RunFixture seeds from the fixture's catalog and replays every step.
func RunFixture(f *Fixture) ([]ReplayResult, ReplaySummary, error) {
	cat, err := f.LoadCatalog()
	if err != nil {
		return nil, ReplaySummary{}, err
	}
	cfg := f.ToReplayConfig()
	steps := make([]Step, len(f.Steps))
	for i := range f.Steps {
		steps[i] = f.Steps[i].ToStep(cfg.Now.UnixMilli() + int64(i))
	}
	results, summary := Replay(cat.Seed(cfg.Now), steps, cfg)
	return results, summary, nil
}

// #endregion replay

// #region compare
func compare(snap state.Snapshot, st Step) []Mismatch {
	var out []Mismatch

	sigStatus := make(map[string]signals.Status, len(snap.Signals))
	for _, s := range snap.Signals {
		sigStatus[s.ID] = s.CurrentStatus
	}
	for _, id := range sortedKeys(st.ExpectedSignals) {
		want := st.ExpectedSignals[id]
		got, ok := sigStatus[id]
		switch {
		case !ok:
			out = append(out, Mismatch{Kind: "signal", ID: id, Expected: string(want), Actual: "missing"})
		case got != want:
			out = append(out, Mismatch{Kind: "signal", ID: id, Expected: string(want), Actual: string(got)})
		}
	}

	decStatus := make(map[string]decisions.Status, len(snap.Decisions))
	for _, d := range snap.Decisions {
		decStatus[d.ID] = d.Status
	}
	for _, id := range sortedKeys(st.ExpectedDecisions) {
		want := st.ExpectedDecisions[id]
		got, ok := decStatus[id]
		switch {
		case !ok:
			out = append(out, Mismatch{Kind: "decision", ID: id, Expected: string(want), Actual: "missing"})
		case got != want:
			out = append(out, Mismatch{Kind: "decision", ID: id, Expected: string(want), Actual: string(got)})
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion compare

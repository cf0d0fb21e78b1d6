package decisions

import (
	"testing"
	"time"

	"github.com/danielpatrickdp/signal-audit/internal/signals"
)

// #region helpers

func sig(id string, st signals.Status) signals.Signal {
	return signals.Signal{ID: id, CurrentStatus: st}
}

func dec(ids ...string) Decision {
	return Decision{ID: "d", Name: "d", RequiredSignalIDs: ids}
}

// #endregion helpers

// #region classify-tests

func TestClassify_Aggregation(t *testing.T) {
	cases := []struct {
		name string
		s1   signals.Status
		s2   signals.Status
		want Status
	}{
		{"present+absent", signals.StatusPresent, signals.StatusAbsent, StatusPartial},
		{"present+present", signals.StatusPresent, signals.StatusPresent, StatusClear},
		{"absent+absent", signals.StatusAbsent, signals.StatusAbsent, StatusBlind},
		{"weak+weak", signals.StatusWeak, signals.StatusWeak, StatusBlind},
		{"present+weak", signals.StatusPresent, signals.StatusWeak, StatusPartial},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sigs := []signals.Signal{sig("S1", c.s1), sig("S2", c.s2)}
			if got := Classify(dec("S1", "S2"), sigs); got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestClassify_NoRequiredSignalsIsBlind(t *testing.T) {
	sigs := []signals.Signal{sig("S1", signals.StatusPresent)}
	if got := Classify(dec(), sigs); got != StatusBlind {
		t.Errorf("expected blind, got %s", got)
	}
}

func TestClassify_UnresolvableIDsDropOut(t *testing.T) {
	sigs := []signals.Signal{sig("S1", signals.StatusPresent)}

	if got := Classify(dec("missing"), sigs); got != StatusBlind {
		t.Errorf("expected blind for unresolvable ids, got %s", got)
	}
	// The missing id does not block clear once S1 resolves.
	if got := Classify(dec("S1", "missing"), sigs); got != StatusClear {
		t.Errorf("expected clear, got %s", got)
	}
}

func TestApply_StampsLastUpdated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := dec("S1")
	d.Status = StatusClear
	out := Apply(d, nil, now)
	if out.Status != StatusBlind {
		t.Errorf("expected blind, got %s", out.Status)
	}
	if !out.LastUpdated.Equal(now) {
		t.Errorf("expected LastUpdated %v, got %v", now, out.LastUpdated)
	}
	if d.Status != StatusClear {
		t.Error("input decision was mutated")
	}
}

func TestClassifyAll(t *testing.T) {
	sigs := []signals.Signal{sig("a", signals.StatusPresent), sig("b", signals.StatusAbsent)}
	out := ClassifyAll([]Decision{dec("a"), dec("a", "b"), dec("b")}, sigs, time.Now())
	want := []Status{StatusClear, StatusPartial, StatusBlind}
	for i, d := range out {
		if d.Status != want[i] {
			t.Errorf("decision %d: got %s, want %s", i, d.Status, want[i])
		}
	}
}

// #endregion classify-tests

// #region view-tests

func TestTally(t *testing.T) {
	st := Tally([]Decision{
		{Status: StatusBlind}, {Status: StatusBlind}, {Status: StatusPartial}, {Status: StatusClear},
	})
	if st != (Stats{Blind: 2, Partial: 1, Clear: 1, Total: 4}) {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestEnrich(t *testing.T) {
	sigs := []signals.Signal{sig("a", signals.StatusPresent), sig("b", signals.StatusAbsent)}
	flows := []Flow{{ID: "flow_x", Name: "X", Objective: ObjectiveConvert}}
	d := dec("b", "a", "zzz")
	d.AffectedFlowIDs = []string{"flow_x", "flow_missing"}

	views := Enrich([]Decision{d, dec()}, sigs, flows)
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if len(views[0].RequiredSignals) != 2 || views[0].RequiredSignals[0].ID != "a" {
		t.Errorf("unexpected required signals: %+v", views[0].RequiredSignals)
	}
	if len(views[0].AffectedFlows) != 1 || views[0].AffectedFlows[0].ID != "flow_x" {
		t.Errorf("unexpected flows: %+v", views[0].AffectedFlows)
	}
	if views[1].RequiredSignals == nil || views[1].AffectedFlows == nil {
		t.Error("expected empty, non-nil slices for display")
	}
}

// #endregion view-tests

package decisions

import (
	"time"

	"github.com/danielpatrickdp/signal-audit/internal/signals"
)

// #region classify

// Classify derives a decision's status from the signals it requires.
// Ids that do not resolve drop out; a decision with nothing resolved is blind.
// Weak signals count as absent.
func Classify(dec Decision, sigs []signals.Signal) Status {
	required := Resolve(dec.RequiredSignalIDs, sigs)
	if len(required) == 0 {
		return StatusBlind
	}

	present := 0
	for _, s := range required {
		if s.CurrentStatus == signals.StatusPresent {
			present++
		}
	}

	switch {
	case present == len(required):
		return StatusClear
	case present > 0:
		return StatusPartial
	default:
		return StatusBlind
	}
}

// Apply returns a copy of dec with Status re-derived and LastUpdated set to now.
func Apply(dec Decision, sigs []signals.Signal, now time.Time) Decision {
	out := dec.Clone()
	out.Status = Classify(dec, sigs)
	out.LastUpdated = now
	return out
}

// ClassifyAll applies every decision against the same signal set.
func ClassifyAll(decs []Decision, sigs []signals.Signal, now time.Time) []Decision {
	out := make([]Decision, len(decs))
	for i, d := range decs {
		out[i] = Apply(d, sigs, now)
	}
	return out
}

// #endregion classify

// #region resolve

// Resolve returns the signals whose id appears in ids, in catalog order.
// Duplicate ids resolve once.
func Resolve(ids []string, sigs []signals.Signal) []signals.Signal {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []signals.Signal
	for _, s := range sigs {
		if _, ok := want[s.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// #endregion resolve

// #region stats

// Tally counts decisions per status.
func Tally(decs []Decision) Stats {
	st := Stats{Total: len(decs)}
	for _, d := range decs {
		switch d.Status {
		case StatusBlind:
			st.Blind++
		case StatusPartial:
			st.Partial++
		case StatusClear:
			st.Clear++
		}
	}
	return st
}

// #endregion stats

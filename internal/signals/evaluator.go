package signals

import "github.com/danielpatrickdp/signal-audit/internal/events"

// #region evaluate

// Evaluate computes a signal's status from the event log. All rules must hold
// for the signal to be present; a signal without rules is always absent.
func Evaluate(sig Signal, log events.Log) Status {
	if len(sig.Rules) == 0 {
		return StatusAbsent
	}
	for _, rule := range sig.Rules {
		if !RuleSatisfied(rule, log) {
			return StatusAbsent
		}
	}
	return StatusPresent
}

// Apply returns a copy of sig with CurrentStatus re-derived from log.
func Apply(sig Signal, log events.Log) Signal {
	out := sig.Clone()
	out.CurrentStatus = Evaluate(sig, log)
	return out
}

// EvaluateAll applies every signal against the same log.
func EvaluateAll(sigs []Signal, log events.Log) []Signal {
	out := make([]Signal, len(sigs))
	for i, s := range sigs {
		out[i] = Apply(s, log)
	}
	return out
}

// #endregion evaluate

// #region rule

// RuleSatisfied tests one rule. No matching events, an unknown condition or an
// unknown kind all yield false.
func RuleSatisfied(rule Rule, log events.Log) bool {
	matching := log.Matching(rule.Event)
	if len(matching) == 0 {
		return false
	}

	var observed float64
	switch rule.EffectiveKind() {
	case KindCount:
		observed = float64(len(matching))
	case KindLatestValue:
		observed = matching[len(matching)-1].Value
	default:
		return false
	}
	return compare(rule.Condition, observed, rule.Value)
}

func compare(cond Condition, observed, threshold float64) bool {
	switch cond {
	case ConditionGreater:
		return observed > threshold
	case ConditionLess:
		return observed < threshold
	case ConditionEqual:
		return observed == threshold
	default:
		return false
	}
}

// #endregion rule

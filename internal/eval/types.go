package eval

import "github.com/danielpatrickdp/signal-audit/internal/events"

// #region eval-config
// EvalConfig holds thresholds for snapshot verification.
type EvalConfig struct {
	EventCap         int  // reject if the event log is longer than this
	StrictReferences bool // reject dangling signal or flow references
}

// DefaultEvalConfig returns the defaults used at daemon start.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{EventCap: events.DefaultCap}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single verification check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of snapshot verification.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result

package signals

// #region status

// Status is the derived state of a signal.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	// StatusWeak is reserved for graded-confidence evaluation. Evaluate never
	// produces it; classifiers treat it as absent.
	StatusWeak Status = "weak"
)

// #endregion status

// #region signal-type

// Type groups signals by the business condition they evidence.
type Type string

const (
	TypeIntent      Type = "intent"
	TypeFriction    Type = "friction"
	TypeActivation  Type = "activation"
	TypeAbandonment Type = "abandonment"
	TypeValue       Type = "value"
)

// #endregion signal-type

// #region rule

// Condition is the comparison operator of a rule.
type Condition string

const (
	ConditionGreater Condition = ">"
	ConditionLess    Condition = "<"
	ConditionEqual   Condition = "="
)

// Kind selects which quantity a rule compares.
type Kind string

const (
	// KindInferred keeps the legacy magnitude heuristic: Value < CountThreshold
	// is a count rule, anything else compares the latest value.
	KindInferred    Kind = ""
	KindCount       Kind = "count"
	KindLatestValue Kind = "latest_value"
)

// CountThreshold is the magnitude below which an inferred rule counts events.
const CountThreshold = 10

// Rule is a predicate over the events whose name equals Event.
type Rule struct {
	Event     string    `json:"event" yaml:"event" validate:"required"`
	Condition Condition `json:"condition" yaml:"condition" validate:"oneof=> < ="`
	Value     float64   `json:"value" yaml:"value"`
	Timeframe int       `json:"timeframe,omitempty" yaml:"timeframe,omitempty" validate:"gte=0"` // minutes, reserved
	Kind      Kind      `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=count latest_value"`
}

// EffectiveKind resolves KindInferred through the magnitude heuristic.
func (r Rule) EffectiveKind() Kind {
	if r.Kind != KindInferred {
		return r.Kind
	}
	if r.Value < CountThreshold {
		return KindCount
	}
	return KindLatestValue
}

// #endregion rule

// #region signal

// Signal is a named indicator derived from the event log. CurrentStatus is
// overwritten on every evaluation pass.
type Signal struct {
	ID            string `json:"id" yaml:"id" validate:"required"`
	Name          string `json:"name" yaml:"name" validate:"required"`
	Type          Type   `json:"type" yaml:"type" validate:"oneof=intent friction activation abandonment value"`
	Description   string `json:"description" yaml:"description"`
	Rules         []Rule `json:"rules" yaml:"rules" validate:"dive"`
	CurrentStatus Status `json:"currentStatus" yaml:"-"`
}

// Clone returns a copy that does not share the rules slice.
func (s Signal) Clone() Signal {
	out := s
	if s.Rules != nil {
		out.Rules = make([]Rule, len(s.Rules))
		copy(out.Rules, s.Rules)
	}
	return out
}

// #endregion signal

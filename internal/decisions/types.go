package decisions

import "time"

// #region status

// Status is the readiness classification of a decision.
type Status string

const (
	StatusBlind   Status = "blind"
	StatusPartial Status = "partial"
	StatusClear   Status = "clear"
)

// #endregion status

// #region category

// Category groups decisions by business area.
type Category string

const (
	CategoryPricing    Category = "pricing"
	CategoryConversion Category = "conversion"
	CategoryActivation Category = "activation"
	CategoryRetention  Category = "retention"
	CategoryScaling    Category = "scaling"
)

// #endregion category

// #region decision

// Decision is a business choice whose confidence depends on a set of signals.
// Status is derived on every evaluation pass.
type Decision struct {
	ID                string    `json:"id" yaml:"id" validate:"required"`
	Name              string    `json:"name" yaml:"name" validate:"required"`
	Description       string    `json:"description" yaml:"description"`
	Category          Category  `json:"category" yaml:"category" validate:"oneof=pricing conversion activation retention scaling"`
	Status            Status    `json:"status" yaml:"-"`
	RequiredSignalIDs []string  `json:"requiredSignalIds" yaml:"requiredSignalIds" validate:"dive,required"`
	AffectedFlowIDs   []string  `json:"affectedFlowIds" yaml:"affectedFlowIds" validate:"dive,required"`
	LastUpdated       time.Time `json:"lastUpdated" yaml:"-"`
}

// Clone returns a copy that shares no slices with d.
func (d Decision) Clone() Decision {
	out := d
	out.RequiredSignalIDs = cloneStrings(d.RequiredSignalIDs)
	out.AffectedFlowIDs = cloneStrings(d.AffectedFlowIDs)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// #endregion decision

// #region flow

// Objective is the funnel stage a flow serves.
type Objective string

const (
	ObjectiveCapture Objective = "capture"
	ObjectiveQualify Objective = "qualify"
	ObjectiveConvert Objective = "convert"
	ObjectiveRetain  Objective = "retain"
)

// Flow is static reference data used to group decisions for display.
type Flow struct {
	ID        string    `json:"id" yaml:"id" validate:"required"`
	Name      string    `json:"name" yaml:"name" validate:"required"`
	Objective Objective `json:"objective" yaml:"objective" validate:"oneof=capture qualify convert retain"`
}

// #endregion flow

// #region stats

// Stats tallies decisions by status.
type Stats struct {
	Blind   int `json:"blind"`
	Partial int `json:"partial"`
	Clear   int `json:"clear"`
	Total   int `json:"total"`
}

// #endregion stats

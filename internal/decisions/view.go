package decisions

import (
	"time"

	"github.com/danielpatrickdp/signal-audit/internal/signals"
)

// View is a decision with its signal and flow references resolved for display.
type View struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Category        Category         `json:"category"`
	Status          Status           `json:"status"`
	RequiredSignals []signals.Signal `json:"requiredSignals"`
	AffectedFlows   []Flow           `json:"affectedFlows"`
	LastUpdated     time.Time        `json:"lastUpdated"`
}

// Enrich builds display views. Unknown ids are skipped.
func Enrich(decs []Decision, sigs []signals.Signal, flows []Flow) []View {
	flowByID := make(map[string]Flow, len(flows))
	for _, f := range flows {
		flowByID[f.ID] = f
	}

	out := make([]View, 0, len(decs))
	for _, d := range decs {
		v := View{
			ID:              d.ID,
			Name:            d.Name,
			Description:     d.Description,
			Category:        d.Category,
			Status:          d.Status,
			RequiredSignals: Resolve(d.RequiredSignalIDs, sigs),
			AffectedFlows:   []Flow{},
			LastUpdated:     d.LastUpdated,
		}
		if v.RequiredSignals == nil {
			v.RequiredSignals = []signals.Signal{}
		}
		for _, id := range d.AffectedFlowIDs {
			if f, ok := flowByID[id]; ok {
				v.AffectedFlows = append(v.AffectedFlows, f)
			}
		}
		out = append(out, v)
	}
	return out
}

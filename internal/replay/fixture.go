package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/signal-audit/internal/catalog"
	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/events"
	"github.com/danielpatrickdp/signal-audit/internal/signals"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string        `json:"description"`
	Catalog     string        `json:"catalog,omitempty"` // YAML path, relative to the fixture; empty = default
	EventCap    int           `json:"event_cap,omitempty"`
	Steps       []FixtureStep `json:"steps"`
}

// FixtureStep is one batch of events followed by one evaluation pass.
type FixtureStep struct {
	Label             string                      `json:"label"`
	Events            []FixtureEvent              `json:"events"`
	ExpectedSignals   map[string]signals.Status   `json:"expected_signals,omitempty"`
	ExpectedDecisions map[string]decisions.Status `json:"expected_decisions,omitempty"`
}

// FixtureEvent is an event without a timestamp; replay assigns one.
type FixtureEvent struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file. A relative catalog path
// is resolved against the fixture's directory.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Catalog != "" && !filepath.IsAbs(f.Catalog) {
		f.Catalog = filepath.Join(filepath.Dir(path), f.Catalog)
	}
	return &f, nil
}

// LoadCatalog returns the catalog the fixture runs against.
func (f *Fixture) LoadCatalog() (catalog.Catalog, error) {
	return catalog.Load(f.Catalog)
}

// ToStep converts a FixtureStep to a domain Step. Events are stamped with
// ts so that every event of a batch shares one timestamp.
func (fs *FixtureStep) ToStep(ts int64) Step {
	evs := make([]events.Event, len(fs.Events))
	for i, e := range fs.Events {
		evs[i] = events.Event{Name: e.Name, Timestamp: ts, Value: e.Value}
	}
	return Step{
		Label:             fs.Label,
		Events:            evs,
		ExpectedSignals:   fs.ExpectedSignals,
		ExpectedDecisions: fs.ExpectedDecisions,
	}
}

// ToReplayConfig builds the run configuration.
func (f *Fixture) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if f.EventCap > 0 {
		cfg.EventCap = f.EventCap
		cfg.EvalConfig.EventCap = f.EventCap
	}
	return cfg
}

// #endregion fixture-loader

// Package catalog holds the configured signals, decisions and flows that seed
// a fresh snapshot.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/events"
	"github.com/danielpatrickdp/signal-audit/internal/signals"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrDuplicateID is returned by Validate when two entries share an id.
var ErrDuplicateID = errors.New("catalog: duplicate id")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Catalog is the static configuration of the engine.
type Catalog struct {
	Signals   []signals.Signal     `yaml:"signals" validate:"dive"`
	Decisions []decisions.Decision `yaml:"decisions" validate:"dive"`
	Flows     []decisions.Flow     `yaml:"flows" validate:"dive"`
}

// Default returns the embedded catalog. It panics if the embedded file is
// malformed, which is a build defect.
func Default() Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default: %v", err))
	}
	return c
}

// Load reads and validates a YAML catalog. An empty path returns Default.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks field constraints and id uniqueness. References to unknown
// signals or flows are allowed; classification drops them.
func (c Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate catalog: %w", err)
	}
	if err := unique("signal", len(c.Signals), func(i int) string { return c.Signals[i].ID }); err != nil {
		return err
	}
	if err := unique("decision", len(c.Decisions), func(i int) string { return c.Decisions[i].ID }); err != nil {
		return err
	}
	return unique("flow", len(c.Flows), func(i int) string { return c.Flows[i].ID })
}

func unique(kind string, n int, id func(int) string) error {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		if _, ok := seen[id(i)]; ok {
			return fmt.Errorf("%w: %s %q", ErrDuplicateID, kind, id(i))
		}
		seen[id(i)] = struct{}{}
	}
	return nil
}

// ValidateDecision checks a single decision against the same field rules.
func ValidateDecision(d decisions.Decision) error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("validate decision: %w", err)
	}
	return nil
}

// Seed builds the first-run snapshot: every signal absent, every decision
// blind, an empty event log.
func (c Catalog) Seed(now time.Time) state.Snapshot {
	snap := state.Snapshot{
		Signals:   make([]signals.Signal, len(c.Signals)),
		Decisions: make([]decisions.Decision, len(c.Decisions)),
		Flows:     make([]decisions.Flow, len(c.Flows)),
		Events:    events.Log{},
	}
	for i, s := range c.Signals {
		s = s.Clone()
		s.CurrentStatus = signals.StatusAbsent
		snap.Signals[i] = s
	}
	for i, d := range c.Decisions {
		d = d.Clone()
		d.Status = decisions.StatusBlind
		d.LastUpdated = now
		snap.Decisions[i] = d
	}
	copy(snap.Flows, c.Flows)
	return snap
}

package state

import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/events"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/signals"
)

// ErrNoSnapshot is returned by Load when nothing has been stored yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// #region snapshot

// Snapshot is the full source and derived state of the system. It is the unit
// of persistence and is rewritten as a whole on every evaluation pass.
type Snapshot struct {
	Decisions []decisions.Decision `json:"decisions"`
	Signals   []signals.Signal     `json:"signals"`
	Flows     []decisions.Flow     `json:"flows"`
	Events    events.Log           `json:"events"`
	LastScan  *scan.Result         `json:"lastScan,omitempty"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Events: s.Events.Clone()}
	if s.Decisions != nil {
		out.Decisions = make([]decisions.Decision, len(s.Decisions))
		for i, d := range s.Decisions {
			out.Decisions[i] = d.Clone()
		}
	}
	if s.Signals != nil {
		out.Signals = make([]signals.Signal, len(s.Signals))
		for i, sig := range s.Signals {
			out.Signals[i] = sig.Clone()
		}
	}
	if s.Flows != nil {
		out.Flows = make([]decisions.Flow, len(s.Flows))
		copy(out.Flows, s.Flows)
	}
	if s.LastScan != nil {
		ls := *s.LastScan
		out.LastScan = &ls
	}
	return out
}

// #endregion snapshot

// #region store

// Store reads and writes the active snapshot. Implementations must be safe for
// concurrent use; callers serialize read-modify-write themselves.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Backend is a Store holding resources that must be released.
type Backend interface {
	Store
	Close() error
}

// #endregion store

// #region version

// Version is one committed snapshot in a versioned store.
type Version struct {
	VersionID string
	ParentID  string
	Snapshot  Snapshot
	Stats     decisions.Stats
	CreatedAt time.Time
}

// #endregion version

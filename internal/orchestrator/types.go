package orchestrator

// #region imports
import (
	"context"
	"errors"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/events"
	"github.com/danielpatrickdp/signal-audit/internal/logging"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/signals"
)

// #endregion

// #region errors

var (
	// ErrEventNameRequired rejects a tracked event without a name.
	ErrEventNameRequired = errors.New("event name required")
	// ErrPersist wraps a store failure. The evaluated snapshot returned
	// alongside it is valid and held in memory.
	ErrPersist = errors.New("persist snapshot")
	// ErrInvalidDecision wraps a field validation failure on CreateDecision.
	ErrInvalidDecision = errors.New("invalid decision")
	// ErrScanFailed wraps a fetch failure. No events are appended.
	ErrScanFailed = errors.New("scan failed")
	// ErrNoFetcher is returned by Scan when no fetcher is configured and no
	// document was supplied.
	ErrNoFetcher = errors.New("no scan fetcher configured")
)

// #endregion

// #region trigger

// Trigger names the operation that caused an evaluation pass.
type Trigger string

const (
	TriggerBootstrap Trigger = "bootstrap"
	TriggerEvaluate  Trigger = "evaluate"
	TriggerTrack     Trigger = "track"
	TriggerScan      Trigger = "scan"
	TriggerDecision  Trigger = "decision"
	TriggerReset     Trigger = "reset"
)

// #endregion

// #region interfaces

// PassRecorder receives one entry per committed evaluation pass.
type PassRecorder interface {
	RecordPass(ctx context.Context, entry logging.PassEntry) error
}

// Fetcher retrieves and analyses a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (scan.Result, error)
}

// #endregion

// #region new-decision

// NewDecision is the caller-supplied part of a decision. The service assigns
// the id, the status and the timestamp.
type NewDecision struct {
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Category          decisions.Category `json:"category"`
	RequiredSignalIDs []string           `json:"requiredSignalIds"`
	AffectedFlowIDs   []string           `json:"affectedFlowIds"`
}

// #endregion

// #region system-view

// RecentEventCount is how many events the system view carries.
const RecentEventCount = 10

// SystemView is the read model served to clients.
type SystemView struct {
	Decisions    []decisions.View `json:"decisions"`
	Signals      []signals.Signal `json:"signals"`
	Stats        decisions.Stats  `json:"stats"`
	RecentEvents events.Log       `json:"recentEvents"`
	LastScan     *scan.Result     `json:"lastScan,omitempty"`
}

// #endregion

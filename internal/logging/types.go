package logging

import "time"

// #region pass-entry
// PassEntry is a single row in the evaluation_log table: one orchestrator pass.
type PassEntry struct {
	VersionID      string
	Trigger        string // "bootstrap" | "evaluate" | "track" | "scan" | "decision" | "reset"
	EventsAppended int
	StatsJSON      string
	CreatedAt      time.Time
}

// #endregion pass-entry

package events

// #region event

// DefaultCap is the retention window of the event log.
const DefaultCap = 500

// Event is a single timestamped fact ingested from tracking or scanning.
// Events are immutable once appended.
type Event struct {
	Name      string  `json:"name"`
	Timestamp int64   `json:"timestamp"` // ms since epoch, informational only
	Value     float64 `json:"value"`
}

// #endregion event

// #region log

// Log is an append-only, insertion-ordered event sequence.
type Log []Event

// Append returns a new log with evs added at the end. When the result exceeds
// max entries the oldest are dropped first. max <= 0 uses DefaultCap.
func (l Log) Append(max int, evs ...Event) Log {
	if max <= 0 {
		max = DefaultCap
	}
	total := len(l) + len(evs)
	start := 0
	if total > max {
		start = total - max
	}

	out := make(Log, 0, total-start)
	for i := start; i < total; i++ {
		if i < len(l) {
			out = append(out, l[i])
		} else {
			out = append(out, evs[i-len(l)])
		}
	}
	return out
}

// Matching returns the events named name, in insertion order.
func (l Log) Matching(name string) Log {
	var out Log
	for _, e := range l {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns the last n events (fewer if the log is shorter).
func (l Log) Recent(n int) Log {
	if n <= 0 {
		return Log{}
	}
	if n > len(l) {
		n = len(l)
	}
	out := make(Log, n)
	copy(out, l[len(l)-n:])
	return out
}

// Clone returns an independent copy.
func (l Log) Clone() Log {
	if l == nil {
		return nil
	}
	out := make(Log, len(l))
	copy(out, l)
	return out
}

// #endregion log

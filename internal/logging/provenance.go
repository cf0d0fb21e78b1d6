package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region log-pass
// LogPass writes an evaluation pass to the evaluation_log table.
func LogPass(ctx context.Context, db *sql.DB, entry PassEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO evaluation_log (version_id, trigger_type, events_appended, stats_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.VersionID),
		entry.Trigger,
		entry.EventsAppended,
		nullIfEmpty(entry.StatsJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log pass: %w", err)
	}
	return nil
}

// #endregion log-pass

// #region list-passes
// ListPasses returns up to limit entries, newest first.
func ListPasses(ctx context.Context, db *sql.DB, limit int) ([]PassEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT version_id, trigger_type, events_appended, stats_json, created_at
		 FROM evaluation_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	var out []PassEntry
	for rows.Next() {
		var e PassEntry
		var versionID, statsJSON sql.NullString
		var created string
		if err := rows.Scan(&versionID, &e.Trigger, &e.EventsAppended, &statsJSON, &created); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		e.VersionID = versionID.String
		e.StatsJSON = statsJSON.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-passes

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers

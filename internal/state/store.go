package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/logging"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS snapshot_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	snapshot_json TEXT NOT NULL,
	stats_json    TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_snapshot (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshot_versions(version_id)
);

CREATE TABLE IF NOT EXISTS evaluation_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id      TEXT,
	trigger_type    TEXT NOT NULL,
	events_appended INTEGER NOT NULL DEFAULT 0,
	stats_json      TEXT,
	created_at      TEXT NOT NULL
);
`

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultMaxVersions bounds how many inactive versions are retained.
const DefaultMaxVersions = 200

// #endregion schema

// #region store-struct

// SQLiteStore keeps every saved snapshot as an immutable version and moves an
// active pointer on each Save.
type SQLiteStore struct {
	db          *sql.DB
	maxVersions int
}

// #endregion store-struct

// #region constructor

// NewSQLiteStore opens a SQLite database and runs migrations. maxVersions <= 0
// uses DefaultMaxVersions.
func NewSQLiteStore(dbPath string, maxVersions int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Each pooled connection to :memory: is its own empty database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}
	return &SQLiteStore{db: db, maxVersions: maxVersions}, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// #region load

// Load reads the active version's snapshot.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	id, err := s.ActiveVersionID(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	v, err := s.GetVersion(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return v.Snapshot, nil
}

// ActiveVersionID returns the id the active pointer refers to.
func (s *SQLiteStore) ActiveVersionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT version_id FROM active_snapshot WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSnapshot
	}
	if err != nil {
		return "", fmt.Errorf("get active: %w", err)
	}
	return id, nil
}

// #endregion load

// #region save

// Save commits snap as a new version whose parent is the current active one,
// moves the active pointer and prunes old versions, all in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	statsJSON, err := json.Marshal(decisions.Tally(snap.Decisions))
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent interface{}
	var parentID string
	err = tx.QueryRowContext(ctx, `SELECT version_id FROM active_snapshot WHERE id = 1`).Scan(&parentID)
	switch {
	case err == nil:
		parent = parentID
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("get active: %w", err)
	}

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot_versions (version_id, parent_id, snapshot_json, stats_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, parent, string(snapJSON), string(statsJSON), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO active_snapshot (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		id,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM snapshot_versions
		 WHERE version_id != ?
		   AND version_id NOT IN (
		     SELECT version_id FROM snapshot_versions ORDER BY rowid DESC LIMIT ?
		   )`,
		id, s.maxVersions,
	)
	if err != nil {
		return fmt.Errorf("prune versions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion save

// #region rollback

// Rollback moves the active pointer to a previous version.
func (s *SQLiteStore) Rollback(ctx context.Context, targetVersionID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshot_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO active_snapshot (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		targetVersionID,
	)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region versions

// GetVersion retrieves a specific version by id.
func (s *SQLiteStore) GetVersion(ctx context.Context, id string) (Version, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version_id, parent_id, snapshot_json, stats_json, created_at
		 FROM snapshot_versions WHERE version_id = ?`, id,
	)
	v, err := scanVersion(row)
	if err != nil {
		return Version{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return v, nil
}

// ListVersions returns up to limit versions, newest first.
func (s *SQLiteStore) ListVersions(ctx context.Context, limit int) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version_id, parent_id, snapshot_json, stats_json, created_at
		 FROM snapshot_versions ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(r rowScanner) (Version, error) {
	var v Version
	var parentID sql.NullString
	var snapJSON, statsJSON, createdStr string

	if err := r.Scan(&v.VersionID, &parentID, &snapJSON, &statsJSON, &createdStr); err != nil {
		return Version{}, err
	}
	if parentID.Valid {
		v.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(snapJSON), &v.Snapshot); err != nil {
		return Version{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &v.Stats); err != nil {
		return Version{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	v.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return v, nil
}

// #endregion versions

// #region pass-log

// RecordPass writes an evaluation_log row. An empty VersionID is filled with
// the active version.
func (s *SQLiteStore) RecordPass(ctx context.Context, entry logging.PassEntry) error {
	if entry.VersionID == "" {
		if id, err := s.ActiveVersionID(ctx); err == nil {
			entry.VersionID = id
		}
	}
	return logging.LogPass(ctx, s.db, entry)
}

// #endregion pass-log

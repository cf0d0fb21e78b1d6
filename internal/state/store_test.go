package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/events"
	"github.com/danielpatrickdp/signal-audit/internal/logging"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/signals"
)

// #region helpers

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"), 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot(nEvents int) Snapshot {
	snap := Snapshot{
		Signals: []signals.Signal{{
			ID:            "sig_a",
			Name:          "A",
			Type:          signals.TypeIntent,
			Rules:         []signals.Rule{{Event: "a", Condition: signals.ConditionGreater, Value: 0}},
			CurrentStatus: signals.StatusAbsent,
		}},
		Decisions: []decisions.Decision{{
			ID:                "dec_a",
			Name:              "A",
			Category:          decisions.CategoryPricing,
			Status:            decisions.StatusBlind,
			RequiredSignalIDs: []string{"sig_a"},
		}},
		Flows: []decisions.Flow{{ID: "flow_a", Name: "A", Objective: decisions.ObjectiveConvert}},
	}
	for i := 0; i < nEvents; i++ {
		snap.Events = append(snap.Events, events.Event{Name: "a", Timestamp: int64(i), Value: 1})
	}
	return snap
}

// #endregion helpers

// #region sqlite-tests

func TestSQLite_LoadEmpty(t *testing.T) {
	s := tempDB(t)
	_, err := s.Load(context.Background())
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSQLite_SaveAndLoad(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	snap := sampleSnapshot(3)
	snap.LastScan = &scan.Result{URL: "https://x.test", Score: 55, Status: scan.StatusSuccess}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Events) != 3 || got.Signals[0].ID != "sig_a" || got.Decisions[0].ID != "dec_a" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if got.LastScan == nil || got.LastScan.Score != 55 {
		t.Fatalf("expected last scan to round-trip, got %+v", got.LastScan)
	}
}

func TestSQLite_VersionChainAndRollback(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if err := s.Save(ctx, sampleSnapshot(1)); err != nil {
		t.Fatalf("Save v1: %v", err)
	}
	v1, _ := s.ActiveVersionID(ctx)

	if err := s.Save(ctx, sampleSnapshot(2)); err != nil {
		t.Fatalf("Save v2: %v", err)
	}
	v2, _ := s.ActiveVersionID(ctx)
	if v1 == v2 {
		t.Fatal("expected a new version id per save")
	}

	ver, err := s.GetVersion(ctx, v2)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if ver.ParentID != v1 {
		t.Fatalf("expected parent %s, got %s", v1, ver.ParentID)
	}
	if ver.Stats.Total != 1 || ver.Stats.Blind != 1 {
		t.Fatalf("unexpected stats: %+v", ver.Stats)
	}

	if err := s.Rollback(ctx, v1); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	cur, _ := s.Load(ctx)
	if len(cur.Events) != 1 {
		t.Fatalf("expected rolled-back snapshot with 1 event, got %d", len(cur.Events))
	}
}

func TestSQLite_RollbackNonExistent(t *testing.T) {
	s := tempDB(t)
	if err := s.Rollback(context.Background(), "nonexistent-id"); err == nil {
		t.Fatal("expected error for non-existent version")
	}
}

func TestSQLite_ListVersionsNewestFirst(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if err := s.Save(ctx, sampleSnapshot(i)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	versions, err := s.ListVersions(ctx, 10)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	if len(versions[0].Snapshot.Events) != 3 {
		t.Fatalf("expected newest first, got %d events", len(versions[0].Snapshot.Events))
	}
}

func TestSQLite_PrunesOldVersions(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "prune.db"), 2)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := s.Save(ctx, sampleSnapshot(i)); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	versions, err := s.ListVersions(ctx, 10)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 retained versions, got %d", len(versions))
	}
	cur, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cur.Events) != 5 {
		t.Fatalf("expected active snapshot to survive pruning, got %d events", len(cur.Events))
	}
}

func TestSQLite_RecordPassFillsVersion(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	if err := s.Save(ctx, sampleSnapshot(1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	active, _ := s.ActiveVersionID(ctx)

	if err := s.RecordPass(ctx, logging.PassEntry{Trigger: "track", EventsAppended: 1}); err != nil {
		t.Fatalf("RecordPass: %v", err)
	}
	passes, err := logging.ListPasses(ctx, s.DB(), 5)
	if err != nil {
		t.Fatalf("ListPasses: %v", err)
	}
	if len(passes) != 1 || passes[0].VersionID != active {
		t.Fatalf("expected pass tied to %s, got %+v", active, passes)
	}
}

func TestNewSQLiteStoreInvalidPath(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"), 0)
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestDBAccessor(t *testing.T) {
	if tempDB(t).DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestSQLite_InMemorySharesOneDatabase(t *testing.T) {
	s, err := NewSQLiteStore(":memory:", 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	if got := s.DB().Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("MaxOpenConnections = %d, want 1", got)
	}

	ctx := context.Background()
	if err := s.Save(ctx, sampleSnapshot(3)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := s.Load(ctx)
			if err == nil && len(snap.Events) != 3 {
				err = errors.New("loaded snapshot lost its events")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Load: %v", err)
		}
	}
}

// #endregion sqlite-tests

// #region backend-tests

func TestBackends_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		kind string
		path string
	}{
		{KindMemory, ""},
		{KindFile, filepath.Join(dir, "file", "snapshot.json")},
		{KindSQLite, filepath.Join(dir, "audit.db")},
		{KindBadger, ""},
		{KindBadger, filepath.Join(dir, "badger")},
	}
	for _, c := range cases {
		t.Run(c.kind+":"+c.path, func(t *testing.T) {
			ctx := context.Background()
			b, err := Open(c.kind, c.path, 0)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer b.Close()

			if _, err := b.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
				t.Fatalf("expected ErrNoSnapshot on empty store, got %v", err)
			}
			if err := b.Save(ctx, sampleSnapshot(4)); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := b.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got.Events) != 4 || len(got.Decisions) != 1 || got.Decisions[0].RequiredSignalIDs[0] != "sig_a" {
				t.Fatalf("unexpected snapshot: %+v", got)
			}
		})
	}
}

func TestOpenUnknownKind(t *testing.T) {
	if _, err := Open("firestore", "", 0); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestMemoryStore_IsolatesCopies(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	snap := sampleSnapshot(1)
	if err := m.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap.Signals[0].Rules[0].Event = "mutated"
	snap.Events[0].Name = "mutated"

	got, _ := m.Load(ctx)
	if got.Signals[0].Rules[0].Event != "a" || got.Events[0].Name != "a" {
		t.Fatal("store shares memory with caller")
	}
}

func TestSnapshotClone(t *testing.T) {
	snap := sampleSnapshot(2)
	snap.LastScan = &scan.Result{Score: 10}
	c := snap.Clone()
	c.Decisions[0].RequiredSignalIDs[0] = "x"
	c.Flows[0].Name = "x"
	c.LastScan.Score = 99
	if snap.Decisions[0].RequiredSignalIDs[0] != "sig_a" || snap.Flows[0].Name != "A" || snap.LastScan.Score != 10 {
		t.Fatal("clone shares memory with original")
	}
}

// #endregion backend-tests

package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielpatrickdp/signal-audit/internal/catalog"
	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/events"
	"github.com/danielpatrickdp/signal-audit/internal/logging"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

// #endregion

// #region service-struct

// Service is the single writer of the system snapshot. Every mutating call
// runs load, mutate, Evaluate and save under one lock, so concurrent callers
// never lose each other's events.
type Service struct {
	mu       sync.Mutex
	store    state.Store
	catalog  catalog.Catalog
	logger   *slog.Logger
	recorder PassRecorder
	fetcher  Fetcher
	eventCap int
	now      func() time.Time

	// snap is the last evaluated snapshot; nil until first load.
	snap *state.Snapshot
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithRecorder overrides the pass recorder. A store that implements
// PassRecorder is used automatically.
func WithRecorder(r PassRecorder) Option { return func(s *Service) { s.recorder = r } }

// WithFetcher sets the page fetcher used by Scan.
func WithFetcher(f Fetcher) Option { return func(s *Service) { s.fetcher = f } }

// WithEventCap sets the event log retention cap.
func WithEventCap(n int) Option { return func(s *Service) { s.eventCap = n } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService wires a service over store, seeding from cat when the store is
// empty or reset.
func NewService(store state.Store, cat catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalog:  cat,
		logger:   slog.Default(),
		eventCap: events.DefaultCap,
		now:      time.Now,
	}
	if r, ok := store.(PassRecorder); ok {
		s.recorder = r
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.eventCap <= 0 {
		s.eventCap = events.DefaultCap
	}
	return s
}

// #endregion

// #region bootstrap

// Bootstrap loads the stored snapshot, or seeds one from the catalog, then
// evaluates and persists it.
func (s *Service) Bootstrap(ctx context.Context) (state.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = nil
	snap, err := s.current(ctx)
	if err != nil {
		return state.Snapshot{}, err
	}
	// A snapshot written under a larger cap is trimmed on first pass.
	snap.Events = snap.Events.Append(s.eventCap)
	return s.commit(ctx, TriggerBootstrap, snap, 0)
}

// Evaluate re-derives and persists the current snapshot.
func (s *Service) Evaluate(ctx context.Context) (state.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.current(ctx)
	if err != nil {
		return state.Snapshot{}, err
	}
	return s.commit(ctx, TriggerEvaluate, snap, 0)
}

// #endregion

// #region track

// Track records one named event with the current time.
func (s *Service) Track(ctx context.Context, name string, value float64) (state.Snapshot, error) {
	return s.AppendEvent(ctx, events.Event{Name: name, Value: value})
}

// AppendEvent appends ev and evaluates. A zero timestamp is set to now.
func (s *Service) AppendEvent(ctx context.Context, ev events.Event) (state.Snapshot, error) {
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Name == "" {
		return state.Snapshot{}, ErrEventNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.current(ctx)
	if err != nil {
		return state.Snapshot{}, err
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = s.now().UnixMilli()
	}
	snap.Events = snap.Events.Append(s.eventCap, ev)
	return s.commit(ctx, TriggerTrack, snap, 1)
}

// #endregion

// #region scan

// IngestScan records res as the last scan and appends its events as one
// batch, followed by a single evaluation pass.
func (s *Service) IngestScan(ctx context.Context, res scan.Result) (state.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.current(ctx)
	if err != nil {
		return state.Snapshot{}, err
	}
	snap.LastScan = &res
	evs := res.Events(s.now().UnixMilli())
	snap.Events = snap.Events.Append(s.eventCap, evs...)
	return s.commit(ctx, TriggerScan, snap, len(evs))
}

// Scan analyses url and ingests the result. A non-empty doc is analysed
// directly instead of being fetched and carries no response time.
func (s *Service) Scan(ctx context.Context, url, doc string) (scan.Result, state.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.Scan", trace.WithAttributes(attribute.String("scan.url", url)))
	defer span.End()

	var res scan.Result
	switch {
	case doc != "":
		if url == "" {
			return scan.Result{}, state.Snapshot{}, scan.ErrEmptyURL
		}
		res = scan.Detect(scan.NormalizeURL(url), doc, scan.DurationUnknown)
	case s.fetcher == nil:
		return scan.Result{}, state.Snapshot{}, ErrNoFetcher
	default:
		var err error
		res, err = s.fetcher.Fetch(ctx, url)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			return scan.Result{}, state.Snapshot{}, fmt.Errorf("%w: %w", ErrScanFailed, err)
		}
	}
	span.SetAttributes(attribute.Int("scan.score", res.Score))

	snap, err := s.IngestScan(ctx, res)
	return res, snap, err
}

// #endregion

// #region create-decision

// CreateDecision adds a decision with a generated id and evaluates. The new
// decision as evaluated is returned with the snapshot.
func (s *Service) CreateDecision(ctx context.Context, nd NewDecision) (decisions.Decision, state.Snapshot, error) {
	dec := decisions.Decision{
		ID:                "dec_" + uuid.NewString(),
		Name:              strings.TrimSpace(nd.Name),
		Description:       nd.Description,
		Category:          nd.Category,
		Status:            decisions.StatusBlind,
		RequiredSignalIDs: append([]string{}, nd.RequiredSignalIDs...),
		AffectedFlowIDs:   append([]string{}, nd.AffectedFlowIDs...),
	}
	if err := catalog.ValidateDecision(dec); err != nil {
		return decisions.Decision{}, state.Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidDecision, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.current(ctx)
	if err != nil {
		return decisions.Decision{}, state.Snapshot{}, err
	}
	dec.LastUpdated = s.now()
	snap.Decisions = append(snap.Decisions, dec)
	out, err := s.commit(ctx, TriggerDecision, snap, 0)
	return out.Decisions[len(out.Decisions)-1], out, err
}

// #endregion

// #region reset

// Reset discards all events and custom decisions and reseeds from the catalog.
func (s *Service) Reset(ctx context.Context) (state.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, TriggerReset, s.catalog.Seed(s.now()), 0)
}

// #endregion

// #region read

// Snapshot returns a copy of the current snapshot without evaluating.
func (s *Service) Snapshot(ctx context.Context) (state.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(ctx)
}

// System returns the read model of the current snapshot.
func (s *Service) System(ctx context.Context) (SystemView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return SystemView{}, err
	}
	return View(snap), nil
}

// #endregion

// #region internals

// current returns a copy of the working snapshot, loading it on first use.
// Callers hold mu.
func (s *Service) current(ctx context.Context) (state.Snapshot, error) {
	if s.snap != nil {
		return s.snap.Clone(), nil
	}
	snap, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, state.ErrNoSnapshot):
		s.logger.Info("no stored snapshot, seeding from catalog",
			"signals", len(s.catalog.Signals), "decisions", len(s.catalog.Decisions))
		snap = s.catalog.Seed(s.now())
	case err != nil:
		storeErrors.WithLabelValues("load").Inc()
		return state.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	s.snap = &snap
	return snap.Clone(), nil
}

// commit evaluates snap, installs it as the working snapshot and persists it.
// Callers hold mu.
func (s *Service) commit(ctx context.Context, trigger Trigger, snap state.Snapshot, appended int) (state.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "orchestrator."+string(trigger),
		trace.WithAttributes(attribute.Int("events.appended", appended)))
	defer span.End()
	start := time.Now()

	out := Evaluate(snap, s.now())
	s.snap = &out
	kept := out.Clone()

	passTotal.WithLabelValues(string(trigger)).Inc()
	if appended > 0 {
		eventsAppended.WithLabelValues(string(trigger)).Add(float64(appended))
	}
	observeSnapshot(out)
	stats := decisions.Tally(out.Decisions)

	if err := s.store.Save(ctx, out); err != nil {
		storeErrors.WithLabelValues("save").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.logger.Error("snapshot not persisted", "trigger", trigger, "error", err)
		passDuration.WithLabelValues(string(trigger)).Observe(time.Since(start).Seconds())
		return kept, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if s.recorder != nil {
		statsJSON, _ := json.Marshal(stats)
		entry := logging.PassEntry{
			Trigger:        string(trigger),
			EventsAppended: appended,
			StatsJSON:      string(statsJSON),
			CreatedAt:      s.now(),
		}
		if err := s.recorder.RecordPass(ctx, entry); err != nil {
			storeErrors.WithLabelValues("record_pass").Inc()
			s.logger.Warn("evaluation pass not recorded", "trigger", trigger, "error", err)
		}
	}

	passDuration.WithLabelValues(string(trigger)).Observe(time.Since(start).Seconds())
	s.logger.Info("evaluation pass",
		"trigger", trigger,
		"events_appended", appended,
		"events", len(out.Events),
		"blind", stats.Blind, "partial", stats.Partial, "clear", stats.Clear)
	return kept, nil
}

// #endregion

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	grpcapi "github.com/danielpatrickdp/signal-audit/internal/api/grpc"
	"github.com/danielpatrickdp/signal-audit/internal/catalog"
	"github.com/danielpatrickdp/signal-audit/internal/config"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

var errNotVersioned = errors.New("store is not versioned; use --store sqlite")

// app holds the flags shared by every subcommand.
type app struct {
	cfg     config.Config
	remote  string
	jsonOut bool
}

func (a *app) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func (a *app) openStore() (state.Backend, error) {
	store, err := state.Open(a.cfg.StoreKind, a.cfg.StorePath, a.cfg.MaxVersions)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// withService runs fn against a local service over the configured store.
func (a *app) withService(fn func(*orchestrator.Service) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cat, err := catalog.Load(a.cfg.CatalogPath)
	if err != nil {
		return err
	}
	svc := orchestrator.NewService(store, cat,
		orchestrator.WithLogger(a.logger()),
		orchestrator.WithEventCap(a.cfg.EventCap),
		orchestrator.WithFetcher(scan.NewFetcher(a.cfg.ScanTimeout).WithRateLimit(a.cfg.ScanRate, a.cfg.ScanBurst)),
	)
	return fn(svc)
}

// withClient runs fn against the daemon at --remote.
func (a *app) withClient(fn func(*grpcapi.Client) error) error {
	client, err := grpcapi.Dial(a.remote)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

// withSQLite runs fn against the versioned store.
func (a *app) withSQLite(fn func(*state.SQLiteStore) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	sq, ok := store.(*state.SQLiteStore)
	if !ok {
		return errNotVersioned
	}
	return fn(sq)
}

// tolerate turns a persistence failure into a warning; the evaluated state
// is still printed.
func tolerate(err error) error {
	if errors.Is(err, orchestrator.ErrPersist) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return nil
	}
	return err
}

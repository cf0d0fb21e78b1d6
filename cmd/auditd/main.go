package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	grpcapi "github.com/danielpatrickdp/signal-audit/internal/api/grpc"
	httpapi "github.com/danielpatrickdp/signal-audit/internal/api/http"
	"github.com/danielpatrickdp/signal-audit/internal/catalog"
	"github.com/danielpatrickdp/signal-audit/internal/config"
	"github.com/danielpatrickdp/signal-audit/internal/eval"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/state"
	"github.com/danielpatrickdp/signal-audit/internal/telemetry"
)

// #region main
func main() {
	cfg, err := config.ParseConfig(flag.NewFlagSet("auditd", flag.ExitOnError), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("auditd stopped", "error", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdown, err := telemetry.Init(ctx, telemetry.Config{ServiceName: "auditd", Exporter: cfg.TraceExporter})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	store, err := state.Open(cfg.StoreKind, cfg.StorePath, cfg.MaxVersions)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	verifyStored(ctx, store, cfg.EventCap, logger)

	svc := orchestrator.NewService(store, cat,
		orchestrator.WithLogger(logger),
		orchestrator.WithEventCap(cfg.EventCap),
		orchestrator.WithFetcher(scan.NewFetcher(cfg.ScanTimeout).WithRateLimit(cfg.ScanRate, cfg.ScanBurst)),
	)
	snap, err := svc.Bootstrap(ctx)
	if err != nil && !errors.Is(err, orchestrator.ErrPersist) {
		return fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("auditd ready",
		"store", cfg.StoreKind,
		"signals", len(snap.Signals),
		"decisions", len(snap.Decisions),
		"events", len(snap.Events))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.GRPCAddr != "" {
		grpcServer, err := grpcapi.NewServer(cfg.GRPCAddr, svc, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return grpcServer.Serve(gctx) })
	}
	if cfg.HTTPAddr != "" {
		httpServer := httpapi.NewServer(cfg.HTTPAddr, svc, logger)
		g.Go(func() error { return httpServer.Serve(gctx) })
	}
	return g.Wait()
}

// verifyStored reports drift in the stored snapshot. Bootstrap re-evaluates,
// so drift is logged and then corrected.
func verifyStored(ctx context.Context, store state.Store, eventCap int, logger *slog.Logger) {
	snap, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, state.ErrNoSnapshot) {
			logger.Warn("stored snapshot not verified", "error", err)
		}
		return
	}
	res := eval.Verify(snap, eventCap)
	if !res.Passed {
		logger.Warn("stored snapshot inconsistent, re-evaluating", "reason", res.Reason)
		return
	}
	logger.Debug("stored snapshot verified")
}

// #endregion run

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/signal-audit/internal/config"
)

var Version = "dev"

func main() {
	rootCmd, err := newRootCmd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, error) {
	env, err := config.ParseEnv()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: env}

	rootCmd := &cobra.Command{
		Use:           "auditctl",
		Short:         "Inspect and drive the decision audit engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfg.StoreKind, "store", a.cfg.StoreKind, "snapshot store: memory, file, sqlite or badger")
	pf.StringVar(&a.cfg.StorePath, "store-path", a.cfg.StorePath, "store file, database or directory")
	pf.StringVar(&a.cfg.CatalogPath, "catalog", a.cfg.CatalogPath, "YAML catalog path")
	pf.IntVar(&a.cfg.EventCap, "event-cap", a.cfg.EventCap, "event log retention cap")
	pf.StringVar(&a.remote, "remote", "", "auditd gRPC address; when set, commands go through the daemon")
	pf.BoolVar(&a.jsonOut, "json", false, "print JSON")

	rootCmd.AddCommand(
		a.trackCmd(),
		a.scanCmd(),
		a.decideCmd(),
		a.statusCmd(),
		a.resetCmd(),
		a.versionsCmd(),
		a.rollbackCmd(),
		a.passesCmd(),
		a.verifyCmd(),
		a.replayCmd(),
	)
	return rootCmd, nil
}

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	grpcapi "github.com/danielpatrickdp/signal-audit/internal/api/grpc"
	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/eval"
	"github.com/danielpatrickdp/signal-audit/internal/logging"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
	"github.com/danielpatrickdp/signal-audit/internal/replay"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

// #region mutating

func (a *app) trackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track EVENT [VALUE]",
		Short: "Record one event and re-evaluate",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value float64
			if len(args) == 2 {
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", args[1], err)
				}
				value = v
			}
			if a.remote != "" {
				return a.withClient(func(c *grpcapi.Client) error {
					resp, err := c.Track(cmd.Context(), args[0], value)
					if err != nil {
						return err
					}
					return a.printView(cmd.OutOrStdout(), resp.System)
				})
			}
			return a.withService(func(svc *orchestrator.Service) error {
				snap, err := svc.Track(cmd.Context(), args[0], value)
				if err := tolerate(err); err != nil {
					return err
				}
				return a.printView(cmd.OutOrStdout(), orchestrator.View(snap))
			})
		},
	}
}

func (a *app) scanCmd() *cobra.Command {
	var htmlFile string
	cmd := &cobra.Command{
		Use:   "scan URL",
		Short: "Scan a page for martech signatures and ingest the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc string
			if htmlFile != "" {
				data, err := os.ReadFile(htmlFile)
				if err != nil {
					return fmt.Errorf("read html: %w", err)
				}
				doc = string(data)
			}
			if a.remote != "" {
				return a.withClient(func(c *grpcapi.Client) error {
					resp, err := c.Scan(cmd.Context(), args[0], doc)
					if err != nil {
						return err
					}
					return a.printScan(cmd.OutOrStdout(), resp.Result, resp.System)
				})
			}
			return a.withService(func(svc *orchestrator.Service) error {
				res, snap, err := svc.Scan(cmd.Context(), args[0], doc)
				if err := tolerate(err); err != nil {
					return err
				}
				return a.printScan(cmd.OutOrStdout(), res, orchestrator.View(snap))
			})
		},
	}
	cmd.Flags().StringVar(&htmlFile, "html-file", "", "analyse this file instead of fetching the URL")
	return cmd
}

func (a *app) decideCmd() *cobra.Command {
	var nd orchestrator.NewDecision
	var category string
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Add a decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nd.Category = decisions.Category(category)
			if a.remote != "" {
				return a.withClient(func(c *grpcapi.Client) error {
					resp, err := c.CreateDecision(cmd.Context(), nd)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", resp.Decision.ID, resp.Decision.Status)
					return nil
				})
			}
			return a.withService(func(svc *orchestrator.Service) error {
				dec, _, err := svc.CreateDecision(cmd.Context(), nd)
				if err := tolerate(err); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", dec.ID, dec.Status)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&nd.Name, "name", "", "decision name")
	f.StringVar(&nd.Description, "description", "", "decision description")
	f.StringVar(&category, "category", "", "pricing, conversion, activation, retention or scaling")
	f.StringSliceVar(&nd.RequiredSignalIDs, "signals", nil, "required signal ids")
	f.StringSliceVar(&nd.AffectedFlowIDs, "flows", nil, "affected flow ids")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func (a *app) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset to the catalog seed, discarding events and custom decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.remote != "" {
				return a.withClient(func(c *grpcapi.Client) error {
					resp, err := c.Reset(cmd.Context())
					if err != nil {
						return err
					}
					return a.printView(cmd.OutOrStdout(), resp.System)
				})
			}
			return a.withService(func(svc *orchestrator.Service) error {
				snap, err := svc.Reset(cmd.Context())
				if err := tolerate(err); err != nil {
					return err
				}
				return a.printView(cmd.OutOrStdout(), orchestrator.View(snap))
			})
		},
	}
}

// #endregion mutating

// #region read

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show decisions, stats and recent events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.remote != "" {
				return a.withClient(func(c *grpcapi.Client) error {
					view, err := c.GetSystem(cmd.Context())
					if err != nil {
						return err
					}
					return a.printView(cmd.OutOrStdout(), view)
				})
			}
			return a.withService(func(svc *orchestrator.Service) error {
				view, err := svc.System(cmd.Context())
				if err != nil {
					return err
				}
				return a.printView(cmd.OutOrStdout(), view)
			})
		},
	}
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the stored snapshot against a fresh evaluation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			snap, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			res := eval.Verify(snap, a.cfg.EventCap)
			if err := a.printEval(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Passed {
				return fmt.Errorf("verification failed: %s", res.Reason)
			}
			return nil
		},
	}
}

// #endregion read

// #region versions

func (a *app) versionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List stored snapshot versions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSQLite(func(s *state.SQLiteStore) error {
				active, _ := s.ActiveVersionID(cmd.Context())
				versions, err := s.ListVersions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return a.printVersions(cmd.OutOrStdout(), versions, active)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum versions")
	return cmd
}

func (a *app) rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback VERSION_ID",
		Short: "Make an earlier snapshot version active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSQLite(func(s *state.SQLiteStore) error {
				if err := s.Rollback(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "active version is now %s\n", args[0])
				return nil
			})
		},
	}
}

func (a *app) passesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "passes",
		Short: "List recorded evaluation passes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSQLite(func(s *state.SQLiteStore) error {
				passes, err := logging.ListPasses(cmd.Context(), s.DB(), limit)
				if err != nil {
					return err
				}
				return a.printPasses(cmd.OutOrStdout(), passes)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum passes")
	return cmd
}

// #endregion versions

// #region replay

func (a *app) replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay FIXTURE...",
		Short: "Replay JSON fixtures in memory and check expected statuses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed []string
			for _, path := range args {
				f, err := replay.LoadFixture(path)
				if err != nil {
					return err
				}
				results, summary, err := replay.RunFixture(f)
				if err != nil {
					return err
				}
				if err := a.printReplay(cmd.OutOrStdout(), path, f.Description, results, summary); err != nil {
					return err
				}
				if summary.Failed > 0 {
					failed = append(failed, path)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("replay failed: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

// #endregion replay

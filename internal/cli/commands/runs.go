package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nlpforge/bertrun/internal/cli/config"
	"github.com/nlpforge/bertrun/internal/state"
	"github.com/nlpforge/bertrun/pkg/runconfig"
	"github.com/spf13/cobra"
)

// openStore opens the run ledger named by the tool config, migrating it to
// the current schema.
func openStore(cfg *config.Config) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Track pretraining runs in the local ledger",
	}
	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsStartCommand())
	cmd.AddCommand(newRunsCompleteCommand())
	cmd.AddCommand(newRunsCheckpointsCommand())
	return cmd
}

func newRunsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(getConfig(cmd.Context()))
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no runs recorded)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Run", "Status", "Started", "Config"})
			for _, run := range runs {
				t.AppendRow(table.Row{
					run.ID[:8],
					run.RunName,
					run.Status,
					run.StartedAt.Format(time.RFC3339),
					run.ConfigHash[:12],
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newRunsStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <run-config.yaml>",
		Short: "Record the start of a run",
		Long: `Start validates a run config and records a new run in the ledger. When the
config sets autoresume and the latest run with the same name is still running
with the same config hash, the existing run is reported instead of opening a
new one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := runconfig.Load(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			hash, err := cfg.Hash()
			if err != nil {
				return err
			}

			store, err := openStore(getConfig(cmd.Context()))
			if err != nil {
				return err
			}
			defer store.Close()

			logger := config.GetLogger(cmd.Context())

			if cfg.Autoresume {
				latest, err := store.LatestRun(cfg.RunName)
				if err != nil {
					return err
				}
				if latest != nil && latest.Status == state.RunStatusRunning {
					if latest.ConfigHash != hash {
						return fmt.Errorf("run %s is still running with config %s; current config hashes to %s",
							cfg.RunName, latest.ConfigHash[:12], hash[:12])
					}
					logger.Info("resuming run", "run", cfg.RunName, "id", latest.ID)
					fmt.Fprintf(cmd.OutOrStdout(), "Resuming run %s (%s)\n", cfg.RunName, latest.ID)
					return nil
				}
			}

			run, err := store.CreateRun(cfg.RunName, hash)
			if err != nil {
				return err
			}
			logger.Info("started run", "run", run.RunName, "id", run.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Started run %s (%s)\n", run.RunName, run.ID)
			return nil
		},
	}
	return cmd
}

func newRunsCompleteCommand() *cobra.Command {
	var failure string

	cmd := &cobra.Command{
		Use:   "complete <run-id>",
		Short: "Mark a run completed (or failed with --error)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(getConfig(cmd.Context()))
			if err != nil {
				return err
			}
			defer store.Close()

			var runErr error
			if failure != "" {
				runErr = errors.New(failure)
			}
			if err := store.CompleteRun(args[0], runErr); err != nil {
				return err
			}

			status := state.RunStatusCompleted
			if runErr != nil {
				status = state.RunStatusFailed
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s marked %s\n", args[0], status)
			return nil
		},
	}

	cmd.Flags().StringVar(&failure, "error", "", "Mark the run failed with this error message")
	return cmd
}

func newRunsCheckpointsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints <run-id>",
		Short: "List the checkpoints recorded for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(getConfig(cmd.Context()))
			if err != nil {
				return err
			}
			defer store.Close()

			ckpts, err := store.ListCheckpoints(args[0])
			if err != nil {
				return err
			}
			if len(ckpts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no checkpoints recorded)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Batch", "Path", "Saved", "Uploaded"})
			for _, ckpt := range ckpts {
				uploaded := "-"
				if ckpt.Uploaded() {
					uploaded = ckpt.UploadedAt.Format(time.RFC3339)
				}
				t.AppendRow(table.Row{ckpt.Batch, ckpt.Path, ckpt.SavedAt.Format(time.RFC3339), uploaded})
			}
			t.Render()
			return nil
		},
	}
	return cmd
}

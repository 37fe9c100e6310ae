// Package commands implements the bertrun subcommands.
package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/nlpforge/bertrun/internal/cli/config"
	"github.com/nlpforge/bertrun/pkg/runconfig"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "validate <run-config.yaml>",
		Short: "Validate a run config",
		Long: `Validate loads a run config, resolves its interpolations, and checks it
against the schema and the component registries. With --watch it stays running
and revalidates on every change to the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !watch {
				return validateOnce(cmd, path)
			}
			return watchValidate(cmd, path)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Revalidate whenever the file changes")
	return cmd
}

func validateOnce(cmd *cobra.Command, path string) error {
	cfg, err := runconfig.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	hash, err := cfg.Hash()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (run %s, config %s)\n", path, cfg.RunName, hash[:12])
	return nil
}

// watchValidate revalidates the file on every write until the context ends.
func watchValidate(cmd *cobra.Command, path string) error {
	logger := config.GetLogger(cmd.Context())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// watches registered on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	report := func() {
		if err := validateOnce(cmd, path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %v\n", err)
		}
	}
	report()

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || abs != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Debug("file changed, revalidating", "path", path, "op", event.Op)
				report()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

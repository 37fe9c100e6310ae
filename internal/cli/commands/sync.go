package commands

import (
	"fmt"

	"github.com/nlpforge/bertrun/pkg/runconfig"
	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	var (
		repoID     string
		saveFolder string
	)

	cmd := &cobra.Command{
		Use:   "sync [run-config.yaml]",
		Short: "Upload new checkpoints to a HuggingFace repository",
		Long: `Sync scans a save folder for rank-0 checkpoint files and uploads the ones
the repository doesn't have yet. The repository and folder come from the run
config (repo_id and save_folder, or the hf_sync callback block), or from
flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg, err := runconfig.Load(args[0])
				if err != nil {
					return err
				}
				if repoID == "" {
					repoID = syncRepoID(cfg)
				}
				if saveFolder == "" {
					saveFolder = syncSaveFolder(cfg)
				}
			}
			if repoID == "" {
				return fmt.Errorf("no repository: set repo_id in the run config or pass --repo")
			}
			if saveFolder == "" {
				return fmt.Errorf("no save folder: set save_folder in the run config or pass --folder")
			}

			result, err := hubClient(cmd).SyncCheckpoints(cmd.Context(), repoID, saveFolder)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d checkpoints to %s (%d already present)\n",
				len(result.Uploaded), repoID, len(result.Skipped))
			return nil
		},
	}

	cmd.Flags().StringVar(&repoID, "repo", "", "Target repository (overrides the run config)")
	cmd.Flags().StringVar(&saveFolder, "folder", "", "Checkpoint folder (overrides the run config)")
	return cmd
}

// syncRepoID picks the sync repository from a run config: the top-level
// repo_id, falling back to the hf_sync callback block.
func syncRepoID(cfg *runconfig.Config) string {
	if cfg.RepoID != "" {
		return cfg.RepoID
	}
	if params, ok := cfg.Callbacks["hf_sync"]; ok {
		if v, ok := params["repo_id"].(string); ok {
			return v
		}
	}
	return ""
}

// syncSaveFolder picks the checkpoint folder the same way.
func syncSaveFolder(cfg *runconfig.Config) string {
	if params, ok := cfg.Callbacks["hf_sync"]; ok {
		if v, ok := params["save_folder"].(string); ok && v != "" {
			return v
		}
	}
	return cfg.SaveFolder
}

package commands

import (
	"fmt"
	"time"

	"github.com/nlpforge/bertrun/internal/cli/config"
	"github.com/nlpforge/bertrun/internal/hfhub"
	"github.com/spf13/cobra"
)

// hubClient builds a Hub client from the tool config.
func hubClient(cmd *cobra.Command) *hfhub.Client {
	cfg := getConfig(cmd.Context())
	opts := []hfhub.Option{
		hfhub.WithLogger(config.GetLogger(cmd.Context())),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, hfhub.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HFToken != "" {
		opts = append(opts, hfhub.WithToken(cfg.HFToken))
	}
	return hfhub.NewClient(opts...)
}

// NewDownloadCommand creates the download command.
func NewDownloadCommand() *cobra.Command {
	var (
		repoType string
		revision string
		pattern  string
		dest     string
		workers  int
		retries  int
	)

	cmd := &cobra.Command{
		Use:   "download <repo-id>",
		Short: "Download dataset shards or model files from the HuggingFace Hub",
		Long: `Download fetches the files of a Hub repository matching a glob pattern,
in parallel, preserving repository paths. Failed downloads are retried.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := hfhub.RepoType(repoType)
			if rt != hfhub.RepoTypeModel && rt != hfhub.RepoTypeDataset {
				return fmt.Errorf("unknown repo type %q (expected model or dataset)", repoType)
			}

			start := time.Now()
			locals, err := hubClient(cmd).Snapshot(cmd.Context(), rt, args[0], revision, dest,
				hfhub.DownloadOptions{
					Pattern: pattern,
					Workers: workers,
					Retries: retries,
				})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d files to %s in %s\n",
				len(locals), dest, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&repoType, "type", "dataset", "Repository type (model|dataset)")
	cmd.Flags().StringVar(&revision, "revision", "main", "Repository revision")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob pattern selecting files, e.g. 'data/en/*.mds'")
	cmd.Flags().StringVar(&dest, "dest", ".", "Destination directory")
	cmd.Flags().IntVar(&workers, "workers", 8, "Parallel downloads")
	cmd.Flags().IntVar(&retries, "retries", 2, "Retries per file")
	return cmd
}

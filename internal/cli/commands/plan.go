package commands

import (
	"fmt"

	"github.com/nlpforge/bertrun/internal/plan"
	"github.com/nlpforge/bertrun/pkg/runconfig"
	"github.com/spf13/cobra"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	var meanSeqLen int

	cmd := &cobra.Command{
		Use:   "plan <run-config.yaml>",
		Short: "Derive the concrete training plan of a run config",
		Long: `Plan resolves a run config into concrete numbers: token, sample and batch
totals, per-device batch geometry, the learning-rate curve, and the checkpoint
schedule.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := runconfig.Load(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			toolCfg := getConfig(cmd.Context())
			p, err := plan.Build(cfg, plan.Options{
				WorldSize:  toolCfg.WorldSize,
				MeanSeqLen: meanSeqLen,
			})
			if err != nil {
				return err
			}
			return p.Render(cmd.OutOrStdout(), toolCfg.Output)
		},
	}

	cmd.Flags().IntVar(&meanSeqLen, "mean-seq-len", 0, "Mean real sequence length, for the padding-waste estimate")
	return cmd
}

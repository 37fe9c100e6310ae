package commands

import (
	"encoding/json"
	"fmt"

	"github.com/nlpforge/bertrun/pkg/runconfig"
	"github.com/spf13/cobra"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <run-config.yaml>",
		Short: "Print a run config with all interpolations resolved",
		Long: `Resolve loads a run config, substitutes every ` + "`${key}`" + ` reference, and
prints the resolved document with keys sorted. The output parses back to an
equivalent config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := runconfig.Load(args[0])
			if err != nil {
				return err
			}

			toolCfg := getConfig(cmd.Context())
			switch toolCfg.Output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg.Raw())
			case "", "table", "yaml":
				out, err := cfg.MarshalYAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			default:
				return fmt.Errorf("unknown output format %q", toolCfg.Output)
			}
		},
	}
	return cmd
}

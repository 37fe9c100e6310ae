package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nlpforge/bertrun/pkg/component"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [kind]",
		Short: "List the components a run config may reference",
		Long: `Schema lists every registered component by kind: models, optimizers,
schedulers, callbacks, loggers, losses, attention layers, normalizations,
activations and precisions. With a kind argument it lists only that kind.`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			kinds := component.Kinds()
			names := make([]string, len(kinds))
			for i, kind := range kinds {
				names[i] = string(kind)
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := component.Kinds()
			if len(args) == 1 {
				kinds = []component.Kind{component.Kind(args[0])}
			}

			titleCaser := cases.Title(language.English)

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Kind", "Name", "Description"})
			for _, kind := range kinds {
				for _, name := range component.List(kind) {
					spec, _ := component.Get(kind, name)
					summary := ""
					if spec != nil {
						summary = spec.Summary
					}
					t.AppendRow(table.Row{titleCaser.String(string(kind)), name, summary})
				}
				t.AppendSeparator()
			}
			t.Render()
			return nil
		},
	}
	return cmd
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/vigil/internal/presentation/graph"
	"github.com/aretw0/vigil/pkg/domain"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [schema]",
	Short: "Export the schema reference graph",
	Long: `Outputs a Mermaid diagram (graph TD) of the catalog schemas and the fields
that reference other schemas. With --report, the schemas along the failing
paths of a stored report are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, _, err := setupEngine(cmd)
		if err != nil {
			return err
		}
		defer setup.Close()
		eng := setup.Engine

		names := eng.Schemas()
		if len(args) > 0 {
			names = args[:1]
		}
		infos := make([]domain.SchemaInfo, 0, len(names))
		for _, name := range names {
			info, err := eng.Describe(name)
			if err != nil {
				return err
			}
			infos = append(infos, *info)
		}

		var overlay *graph.GraphOverlay
		if id, _ := cmd.Flags().GetString("report"); id != "" {
			report, err := eng.Report(context.Background(), id)
			if err != nil {
				return err
			}
			info, err := eng.Describe(report.Schema)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromReport(*info, report)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(infos, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("report", "", "Highlight the failing paths of this stored report")
}

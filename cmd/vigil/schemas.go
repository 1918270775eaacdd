package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/vigil/internal/presentation/tui"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas [name]",
	Short: "List the schemas of the catalog or describe one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, _, err := setupEngine(cmd)
		if err != nil {
			return err
		}
		defer setup.Close()
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, name := range setup.Engine.Schemas() {
				desc := setup.Engine.Catalog().Description(name)
				if desc != "" {
					fmt.Fprintf(out, "%s\t%s\n", name, desc)
				} else {
					fmt.Fprintln(out, name)
				}
			}
			return nil
		}

		info, err := setup.Engine.Describe(args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(info)
		case "table":
			render, err := tui.NewRenderer("")
			if err != nil {
				return err
			}
			text, err := render(tui.SchemaMarkdown(info))
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
			return nil
		}
		return fmt.Errorf("unknown format %q", format)
	},
}

func init() {
	rootCmd.AddCommand(schemasCmd)
	schemasCmd.Flags().String("format", "yaml", "Description format: yaml, json or table")
}

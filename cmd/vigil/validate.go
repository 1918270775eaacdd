package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/vigil"
	"github.com/aretw0/vigil/internal/presentation/tui"
	"github.com/aretw0/vigil/pkg/domain"
)

var errInvalid = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate <schema> [file...]",
	Short: "Validate documents against a schema",
	Long: `Validates JSON or YAML documents against a schema of the catalog.
Documents are read from the files, or from stdin when none is given. A file may
hold several documents (JSON values, a JSON array or a YAML stream).
Exits with status 1 when a document is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, _, err := setupEngine(cmd)
		if err != nil {
			return err
		}
		defer setup.Close()

		fields, _ := cmd.Flags().GetStringSlice("fields")
		format, _ := cmd.Flags().GetString("format")
		render, err := reportRenderer(format)
		if err != nil {
			return err
		}

		inputs := args[1:]
		if len(inputs) == 0 {
			inputs = []string{"-"}
		}

		var total vigil.Summary
		for _, path := range inputs {
			in, closeIn, err := openInput(path)
			if err != nil {
				return err
			}
			runner := &vigil.Runner{Input: in, Output: cmd.OutOrStdout(), Fields: fields, Renderer: render}
			sum, err := runner.Run(context.Background(), setup.Engine, args[0])
			closeIn()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			total.Total += sum.Total
			total.Invalid += sum.Invalid
		}

		if !total.Valid() {
			return fmt.Errorf("%w: %d of %d documents invalid", errInvalid, total.Invalid, total.Total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringSlice("fields", nil, "Validate only these fields")
	validateCmd.Flags().String("format", "auto", "Output: auto, plain, rich or json")
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func reportRenderer(format string) (vigil.ReportRenderer, error) {
	if format == "auto" {
		format = "plain"
		if isTerminal() {
			format = "rich"
		}
	}
	switch format {
	case "plain":
		return vigil.PlainRenderer, nil
	case "rich":
		return tui.NewReportRenderer("")
	case "json":
		return func(r *domain.Report) (string, error) {
			b, err := json.Marshal(r)
			return string(b) + "\n", err
		}, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

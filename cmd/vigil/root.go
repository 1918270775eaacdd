package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/vigil/internal/cli"
	"github.com/aretw0/vigil/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Vigil validates documents against declarative schemas",
	Long: `Vigil compiles a catalog of schema definitions (YAML, JSON, TOML, Loam
documents or OpenAPI components) and validates documents against it from the
command line, over HTTP or as an MCP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	f := rootCmd.PersistentFlags()
	f.String("dir", ".", "Directory containing the schema definitions")
	f.Bool("loam", false, "Read definitions from a Loam repository (markdown frontmatter)")
	f.StringSlice("openapi", nil, "OpenAPI 3 documents whose object components join the catalog")
	f.String("validators", "", "External validators config (default <dir>/.vigil/validators.yaml)")
	f.Duration("timeout", 30*time.Second, "Bound of a single validation")
	f.String("store", "memory", "Report store: memory, file, bolt or redis")
	f.String("store-path", "", "Directory (file) or database file (bolt) of the report store")
	f.String("redis-addr", "localhost:6379", "Redis address for --store redis")
	f.Duration("redis-ttl", 0, "Expiration of reports kept in redis")
	f.Bool("keep-documents", false, "Keep a snapshot of the validated data in reports")
	f.StringSlice("mask", nil, "Regexps of document keys masked before reports are stored")
	f.Bool("encrypt", false, "Encrypt stored reports with the key in "+cli.EncryptionKeyEnv)
	f.String("log-level", "warn", "Log level: debug, info, warn, error")
	f.String("log-format", "text", "Log format: text or json")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelFlag, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	level, err := logging.ParseLevel(levelFlag)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(os.Stderr, level, format), nil
}

func engineOptions(cmd *cobra.Command) cli.Options {
	f := cmd.Flags()
	var opts cli.Options
	opts.Dir, _ = f.GetString("dir")
	opts.Loam, _ = f.GetBool("loam")
	opts.OpenAPI, _ = f.GetStringSlice("openapi")
	opts.Validators, _ = f.GetString("validators")
	opts.Timeout, _ = f.GetDuration("timeout")
	opts.Store, _ = f.GetString("store")
	opts.StorePath, _ = f.GetString("store-path")
	opts.RedisAddr, _ = f.GetString("redis-addr")
	opts.RedisTTL, _ = f.GetDuration("redis-ttl")
	opts.KeepDocuments, _ = f.GetBool("keep-documents")
	opts.Mask, _ = f.GetStringSlice("mask")
	opts.Encrypt, _ = f.GetBool("encrypt")
	return opts
}

// setupEngine builds the engine from the persistent flags.
func setupEngine(cmd *cobra.Command) (*cli.Setup, *slog.Logger, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	setup, err := cli.NewEngine(engineOptions(cmd), logger)
	if err != nil {
		return nil, nil, err
	}
	return setup, logger, nil
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// CLAUDE:SUMMARY pdfbundle CLI entry point: cobra root (run, discover, validate, inspect, runs), slog JSON logging on stderr.
// pdfbundle assembles one watermarked PDF from a directory of loosely named
// input documents.
//
// Usage:
//
//	pdfbundle run      -c bundle.yaml [--z-order front] [--workers 4]
//	pdfbundle discover -c bundle.yaml
//	pdfbundle validate -c bundle.yaml
//	pdfbundle inspect  Watermarks/*.pdf
//	pdfbundle runs     -c bundle.yaml [--limit 20] [--run <id>]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/pdfbundle/bundle"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "pdfbundle",
		Short:         "Assemble a watermarked PDF bundle from an input directory",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: parseLevel(logLevel)}))
			slog.SetDefault(logger)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", env("LOG_LEVEL", "info"), "debug, info, warn or error")

	root.AddCommand(newRunCmd())
	root.AddCommand(newDiscoverCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newRunsCmd())
	return root
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// configFlag registers -c/--config on cmd.
func configFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "config", "c", "bundle.yaml", "bundle configuration file")
}

// loadConfig reads the config file and attaches the default logger.
func loadConfig(path string) (*bundle.Config, error) {
	cfg, err := bundle.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Logger = slog.Default()
	return cfg, nil
}

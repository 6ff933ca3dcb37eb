// Package main provides the orderdesk binary entry point.
// Orderdesk is the back-office board service for a translation agency:
// it mirrors orders from the order-management backend onto a five-column
// kanban board, keeps persisted statuses in sync with recorded payment
// and delivery facts, and executes drag transitions for the web UI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linguaworks/orderdesk/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "orderdesk"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Translation-agency order board service",
		Long: `Orderdesk serves the kanban order board for the agency back office.

It lists orders from the order-management backend, projects each onto
one of five visual stages from its workflow status plus recorded payment
and delivery facts, silently corrects statuses that have fallen behind
those facts, and applies drag transitions optimistically with rollback.`,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(&logLevel))
	cmd.AddCommand(reconcileCmd(&logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func serveCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the board HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(*logLevel)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
}

func reconcileCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Load the board once, reconcile drifted statuses, and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(*logLevel)
			if err != nil {
				return err
			}
			defer app.Close()

			orderCount, corrected, err := app.ReconcileOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%d orders loaded, %d statuses corrected\n", orderCount, corrected)
			return nil
		},
	}
}

// setup loads the layered configuration, configures logging, and wires
// the application.
func setup(logLevelOverride string) (*App, error) {
	levelVar := new(slog.LevelVar)
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))

	loader := config.NewLoader(bootstrap)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	levelVar.Set(parseLevel(level))

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: levelVar}
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return newApp(cfg, loader, levelVar, logger)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

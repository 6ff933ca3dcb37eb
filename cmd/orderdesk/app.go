package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/linguaworks/orderdesk/board"
	"github.com/linguaworks/orderdesk/config"
	"github.com/linguaworks/orderdesk/events"
	"github.com/linguaworks/orderdesk/orders"
	"github.com/linguaworks/orderdesk/server"
)

// App wires the board engine together: backend client, event bus,
// optional NATS bridge, scanner, coordinator and HTTP server.
type App struct {
	cfg      *config.Config
	loader   *config.Loader
	logLevel *slog.LevelVar
	logger   *slog.Logger

	bus       *events.Bus
	natsConn  *nats.Conn
	forwarder *events.Forwarder

	board       *board.Board
	scanner     *board.Scanner
	coordinator *board.Coordinator
	server      *server.Server
}

// newApp builds the application from a validated config.
func newApp(cfg *config.Config, loader *config.Loader, logLevel *slog.LevelVar, logger *slog.Logger) (*App, error) {
	app := &App{
		cfg:      cfg,
		loader:   loader,
		logLevel: logLevel,
		logger:   logger,
	}

	app.bus = events.NewBus(logger)

	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		app.natsConn = conn
		app.forwarder = events.NewForwarder(conn, cfg.NATS.SubjectPrefix, logger)
		app.forwarder.Attach(app.bus)
		logger.Info("NATS event bridge enabled", slog.String("url", cfg.NATS.URL))
	}

	store := orders.NewClient(cfg.API.BaseURL, cfg.API.Token, cfg.API.Timeout, logger)
	app.board = board.New(store, app.bus, logger)
	if cfg.Reconcile.On() {
		app.scanner = board.NewScanner(app.board, store, cfg.Reconcile.MaxConcurrent, logger)
	}
	app.coordinator = board.NewCoordinator(app.board, store, app.bus, logger)
	app.server = server.New(app.board, app.scanner, app.coordinator, logger)

	return app, nil
}

// Serve runs the board HTTP API until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initial load is best-effort: the backend may be down, and the UI
	// can trigger a reload once it is back.
	if err := a.board.Load(ctx, orders.Filter{}); err != nil {
		a.logger.Warn("Initial board load failed", slog.String("error", err.Error()))
	} else if a.scanner != nil {
		a.scanner.Run(ctx)
	}

	// Hot-reload the log level when the project config changes. Other
	// settings need a restart.
	if path := a.loader.FindProjectConfig(); path != "" {
		watcher, err := config.NewWatcher(path, a.loader, a.applyConfig, a.logger)
		if err != nil {
			a.logger.Warn("Config watch unavailable", slog.String("error", err.Error()))
		} else {
			watcher.Start(ctx)
			defer watcher.Close()
		}
	}

	return a.server.Run(ctx, a.cfg.HTTP.Addr)
}

// ReconcileOnce loads the board and runs a single reconciliation pass.
func (a *App) ReconcileOnce(ctx context.Context) (orderCount, corrected int, err error) {
	if err := a.board.Load(ctx, orders.Filter{}); err != nil {
		return 0, 0, err
	}
	if a.scanner == nil {
		return a.board.Len(), 0, nil
	}
	return a.board.Len(), a.scanner.Run(ctx), nil
}

func (a *App) applyConfig(cfg *config.Config) {
	a.logLevel.Set(parseLevel(cfg.Log.Level))
	a.logger.Info("Applied config change", slog.String("log_level", cfg.Log.Level))
}

// Close releases the bus and the NATS connection.
func (a *App) Close() {
	if a.forwarder != nil {
		a.forwarder.Detach()
	}
	if a.natsConn != nil {
		a.natsConn.Drain()
	}
	a.bus.Close()
}

// Package app owns the application lifecycle: it wires the dependency graph
// from the configuration and runs the HTTP server, WebSocket hub, and versus
// scheduler until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sinfolonokojo/mt5-monitor/internal/config"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and blocks until the context is cancelled or the
// server fails. The versus scheduler only starts when the feature is enabled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("version", Version),
		slog.Int("agents", len(a.cfg.Agents)),
		slog.Bool("trading_enabled", a.cfg.Features.TradingEnabled),
		slog.Bool("versus_enabled", a.cfg.Features.VersusEnabled),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := deps.Hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if a.cfg.Features.VersusEnabled {
		g.Go(func() error {
			deps.Scheduler.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		return deps.Server.Start()
	})

	// Stop accepting requests once the context is cancelled.
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return deps.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close tears down resources in reverse registration order. Safe to call more
// than once.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

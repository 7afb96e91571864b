package versus

import (
	"context"
	"log/slog"
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/store/jsonfile"
)

// defaultScanInterval is the sleep between scheduler scans.
const defaultScanInterval = 30 * time.Second

// Scheduler periodically executes due Congelar and Transferir steps. It
// shares the Engine with the HTTP handlers, so a scheduled step and a manual
// trigger behave identically.
type Scheduler struct {
	store    *jsonfile.VersusStore
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler with the default 30s scan interval.
func NewScheduler(store *jsonfile.VersusStore, engine *Engine, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		engine:   engine,
		interval: defaultScanInterval,
		logger:   logger.With(slog.String("component", "versus_scheduler")),
	}
}

// SetInterval overrides the scan interval. Test hook.
func (s *Scheduler) SetInterval(d time.Duration) { s.interval = d }

// Run loops until ctx is cancelled. Failed steps leave their record in error
// status via the engine; the loop itself never stops on step failure.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan executes every due step sequentially, Congelar before Transferir.
func (s *Scheduler) Scan(ctx context.Context) {
	now := time.Now().UTC()

	for _, rec := range s.store.DueCongelar(now) {
		s.logger.Info("scheduled congelar due", slog.String("id", rec.ID))
		if _, err := s.engine.Congelar(ctx, rec.ID); err != nil {
			s.logger.Error("scheduled congelar failed",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
		if ctx.Err() != nil {
			return
		}
	}

	for _, rec := range s.store.DueTransferir(now) {
		s.logger.Info("scheduled transferir due", slog.String("id", rec.ID))
		if _, err := s.engine.Transferir(ctx, rec.ID); err != nil {
			s.logger.Error("scheduled transferir failed",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

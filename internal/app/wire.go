package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/agent"
	"github.com/Sinfolonokojo/mt5-monitor/internal/aggregator"
	"github.com/Sinfolonokojo/mt5-monitor/internal/auth"
	"github.com/Sinfolonokojo/mt5-monitor/internal/cache"
	"github.com/Sinfolonokojo/mt5-monitor/internal/config"
	"github.com/Sinfolonokojo/mt5-monitor/internal/export"
	"github.com/Sinfolonokojo/mt5-monitor/internal/notify"
	"github.com/Sinfolonokojo/mt5-monitor/internal/routing"
	"github.com/Sinfolonokojo/mt5-monitor/internal/server"
	"github.com/Sinfolonokojo/mt5-monitor/internal/server/handler"
	"github.com/Sinfolonokojo/mt5-monitor/internal/server/ws"
	"github.com/Sinfolonokojo/mt5-monitor/internal/service"
	"github.com/Sinfolonokojo/mt5-monitor/internal/store/jsonfile"
	"github.com/Sinfolonokojo/mt5-monitor/internal/versus"
)

// Dependencies holds every wired component the run loop needs.
type Dependencies struct {
	Server    *server.Server
	Hub       *ws.Hub
	Scheduler *versus.Scheduler
	Pool      *agent.Pool
}

// Wire builds the full dependency graph from the configuration. The returned
// cleanup closes pooled resources and must run on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	pool := agent.NewPool()
	cleanup := func() { pool.Close() }

	registry := agent.NewRegistry(cfg.Agents, pool,
		time.Duration(cfg.Cache.AgentTimeoutSeconds)*time.Second)

	routes := routing.NewMap()
	snapshots := cache.New(time.Duration(cfg.Cache.TTLSeconds) * time.Second)
	notifier := notify.FromConfig(cfg.Notify, logger)

	agg := aggregator.New(registry, routes, notifier, logger)

	phases, err := jsonfile.NewPhaseStore(cfg.Data.PhaseFile, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: phase store: %w", err)
	}
	vsStore, err := jsonfile.NewVSStore(cfg.Data.VSFile, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: vs store: %w", err)
	}
	versusStore, err := jsonfile.NewVersusStore(cfg.Data.VersusFile, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: versus store: %w", err)
	}
	historyStore, err := jsonfile.NewTradeHistoryStore(cfg.Data.TradeHistoryFile, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: trade history store: %w", err)
	}

	hub := ws.NewHub(logger)

	engine := versus.NewEngine(versusStore, agg, snapshots, notifier, logger)
	scheduler := versus.NewScheduler(versusStore, engine, logger)

	accountSvc := service.NewAccountService(agg, snapshots, phases, vsStore, historyStore, hub, logger)
	tradeSvc := service.NewTradeService(agg, snapshots, logger)
	versusSvc := service.NewVersusService(versusStore, engine, snapshots, hub, cfg.Features.VersusEnabled, logger)

	var exporter *export.Exporter
	if cfg.Export.Enabled {
		store, err := export.NewStore(ctx, cfg.Export)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: export store: %w", err)
		}
		exporter = export.NewExporter(store, cfg.Export.Prefix, logger)
	}

	tokens := auth.New(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	handlers := server.Handlers{
		Root:     handler.NewRootHandler(Version),
		Auth:     handler.NewAuthHandler(tokens, cfg.Auth.LoginPassword),
		Accounts: handler.NewAccountsHandler(accountSvc),
		Trade:    handler.NewTradeHandler(tradeSvc),
		Versus:   handler.NewVersusHandler(versusSvc),
		Export:   handler.NewExportHandler(accountSvc, exporter),
	}

	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TradingEnabled: cfg.Features.TradingEnabled,
		VersusEnabled:  cfg.Features.VersusEnabled,
	}, handlers, tokens, hub, logger)

	return &Dependencies{
		Server:    srv,
		Hub:       hub,
		Scheduler: scheduler,
		Pool:      pool,
	}, cleanup, nil
}

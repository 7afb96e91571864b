// Package server assembles the HTTP API: routes, middleware chain, and the
// WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Sinfolonokojo/mt5-monitor/internal/auth"
	"github.com/Sinfolonokojo/mt5-monitor/internal/server/handler"
	"github.com/Sinfolonokojo/mt5-monitor/internal/server/middleware"
	"github.com/Sinfolonokojo/mt5-monitor/internal/server/ws"
)

// Config holds the HTTP server parameters.
type Config struct {
	Host           string
	Port           int
	CORSOrigins    []string
	TradingEnabled bool
	VersusEnabled  bool
}

// Handlers aggregates every handler the server registers.
type Handlers struct {
	Root     *handler.RootHandler
	Auth     *handler.AuthHandler
	Accounts *handler.AccountsHandler
	Trade    *handler.TradeHandler
	Versus   *handler.VersusHandler
	Export   *handler.ExportHandler
}

// Server is the HTTP + WebSocket front of the monitor.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New registers all routes on a ServeMux and builds the middleware chain:
// CORS outermost (headers on every response, errors included), then request
// logging, then auth, then the feature gates.
func New(cfg Config, handlers Handlers, tokens *auth.Tokens, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", handlers.Root.Describe)

	mux.HandleFunc("POST /api/auth/login", handlers.Auth.Login)
	mux.HandleFunc("GET /api/auth/verify", handlers.Auth.Verify)

	mux.HandleFunc("GET /api/accounts", handlers.Accounts.List)
	mux.HandleFunc("GET /api/accounts/{id}", handlers.Accounts.Get)
	mux.HandleFunc("GET /api/agents/status", handlers.Accounts.AgentStatus)
	mux.HandleFunc("PUT /api/accounts/{id}/phase", handlers.Accounts.UpdatePhase)
	mux.HandleFunc("PUT /api/accounts/{id}/vs", handlers.Accounts.UpdateVS)
	mux.HandleFunc("GET /api/accounts/{id}/trade-history", handlers.Accounts.TradeHistory)
	mux.HandleFunc("POST /api/refresh", handlers.Accounts.Refresh)
	mux.HandleFunc("GET /api/cache/stats", handlers.Accounts.CacheStats)

	mux.HandleFunc("POST /api/accounts/{id}/trade/open", handlers.Trade.Open)
	mux.HandleFunc("POST /api/accounts/{id}/trade/close", handlers.Trade.Close)
	mux.HandleFunc("PUT /api/accounts/{id}/trade/modify", handlers.Trade.Modify)
	mux.HandleFunc("GET /api/accounts/{id}/positions", handlers.Trade.Positions)

	mux.HandleFunc("GET /api/versus", handlers.Versus.List)
	mux.HandleFunc("GET /api/versus/feature-status", handlers.Versus.FeatureStatus)
	mux.HandleFunc("POST /api/versus", handlers.Versus.Create)
	mux.HandleFunc("DELETE /api/versus/{id}", handlers.Versus.Delete)
	mux.HandleFunc("POST /api/versus/{id}/congelar", handlers.Versus.Congelar)
	mux.HandleFunc("POST /api/versus/{id}/transferir", handlers.Versus.Transferir)

	mux.HandleFunc("POST /api/export/accounts", handlers.Export.ExportAccounts)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.FeatureGates(cfg.TradingEnabled, cfg.VersusEnabled)(h)
	h = middleware.Auth(tokens)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger.With(slog.String("component", "server"))}
}

// Handler returns the assembled middleware chain.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Sinfolonokojo/mt5-monitor/internal/aggregator"
	"github.com/Sinfolonokojo/mt5-monitor/internal/cache"
	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
)

// TradeService proxies trade commands to the agent owning the target account.
// Every successful command invalidates that account's cached snapshot so the
// next read reflects the new balance and positions.
type TradeService struct {
	agg    *aggregator.Aggregator
	cache  *cache.SmartCache
	logger *slog.Logger
}

// NewTradeService wires the trade proxy.
func NewTradeService(agg *aggregator.Aggregator, c *cache.SmartCache, logger *slog.Logger) *TradeService {
	return &TradeService{
		agg:    agg,
		cache:  c,
		logger: logger.With(slog.String("component", "trade_service")),
	}
}

// Open forwards a market-order open to the owner agent.
func (s *TradeService) Open(ctx context.Context, accountID uint64, req domain.OpenRequest) (domain.TradeResult, error) {
	client, err := s.agg.ResolveOwner(ctx, accountID)
	if err != nil {
		return domain.TradeResult{}, err
	}

	res, err := client.Open(ctx, req)
	if err != nil {
		return domain.TradeResult{}, err
	}
	if res.Success {
		s.cache.InvalidateAccount(accountID)
		s.logger.Info("order opened",
			slog.Uint64("account_id", accountID),
			slog.String("symbol", req.Symbol),
			slog.Uint64("ticket", res.Ticket),
		)
	}
	return res, nil
}

// Close forwards a position close to the owner agent.
func (s *TradeService) Close(ctx context.Context, accountID uint64, req domain.CloseRequest) (domain.TradeResult, error) {
	client, err := s.agg.ResolveOwner(ctx, accountID)
	if err != nil {
		return domain.TradeResult{}, err
	}

	res, err := client.Close(ctx, req)
	if err != nil {
		return domain.TradeResult{}, err
	}
	if res.Success {
		s.cache.InvalidateAccount(accountID)
		s.logger.Info("position closed",
			slog.Uint64("account_id", accountID),
			slog.Uint64("ticket", req.Ticket),
		)
	}
	return res, nil
}

// Modify forwards a stop modification to the owner agent.
func (s *TradeService) Modify(ctx context.Context, accountID uint64, req domain.ModifyRequest) (domain.TradeResult, error) {
	client, err := s.agg.ResolveOwner(ctx, accountID)
	if err != nil {
		return domain.TradeResult{}, err
	}

	res, err := client.Modify(ctx, req)
	if err != nil {
		return domain.TradeResult{}, err
	}
	if res.Success {
		s.cache.InvalidateAccount(accountID)
		s.logger.Info("position modified",
			slog.Uint64("account_id", accountID),
			slog.Uint64("ticket", req.Ticket),
		)
	}
	return res, nil
}

// Positions lists the open positions on the owner agent. Timeouts and
// unreachable agents degrade to an empty list because UIs poll this endpoint
// and partial unavailability is tolerable there.
func (s *TradeService) Positions(ctx context.Context, accountID uint64) ([]domain.Position, error) {
	client, err := s.agg.ResolveOwner(ctx, accountID)
	if err != nil {
		return nil, err
	}

	positions, err := client.GetPositions(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrTimeout) || errors.Is(err, domain.ErrAgentUnavailable) {
			s.logger.Warn("positions unavailable, returning empty list",
				slog.Uint64("account_id", accountID),
				slog.String("error", err.Error()),
			)
			return []domain.Position{}, nil
		}
		return nil, err
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	return positions, nil
}

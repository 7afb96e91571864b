// Package versus implements the two-step cross-account hedge workflow.
// Congelar opens a BUY/SELL straddle on account A; Transferir collapses the
// straddle to the configured side, relinks A's stops to B's thresholds, and
// mirrors the exposure on account B with two half-lot legs.
package versus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sinfolonokojo/mt5-monitor/internal/agent"
	"github.com/Sinfolonokojo/mt5-monitor/internal/aggregator"
	"github.com/Sinfolonokojo/mt5-monitor/internal/cache"
	"github.com/Sinfolonokojo/mt5-monitor/internal/domain"
	"github.com/Sinfolonokojo/mt5-monitor/internal/store/jsonfile"
)

// Engine executes Congelar and Transferir against the agent fleet. The
// scheduler and the HTTP handlers share one Engine, so every transition
// follows the same code path.
type Engine struct {
	store    *jsonfile.VersusStore
	agg      *aggregator.Aggregator
	cache    *cache.SmartCache
	notifier aggregator.Notifier
	logger   *slog.Logger
}

// NewEngine creates the engine. notifier may be nil.
func NewEngine(store *jsonfile.VersusStore, agg *aggregator.Aggregator, c *cache.SmartCache, notifier aggregator.Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		agg:      agg,
		cache:    c,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "versus_engine")),
	}
}

// Congelar opens the straddle on account A: one BUY and one SELL at market,
// both carrying pip stops derived from the record's per-A USD thresholds. If
// the SELL fails after the BUY succeeded, the BUY is closed to compensate.
func (e *Engine) Congelar(ctx context.Context, id string) (domain.VersusRecord, error) {
	rec, err := e.store.Get(id)
	if err != nil {
		return domain.VersusRecord{}, err
	}
	if rec.Status != domain.VersusPending {
		return rec, fmt.Errorf("%w: versus %s is %s, expected pending", domain.ErrPreconditionFailed, id, rec.Status)
	}

	e.logger.Info("congelar start",
		slog.String("id", id),
		slog.Uint64("account_a", rec.AccountA),
		slog.String("symbol", rec.Symbol),
	)

	clientA, err := e.agg.ResolveOwner(ctx, rec.AccountA)
	if err != nil {
		return e.fail(id, fmt.Errorf("resolve account A owner: %w", err))
	}

	quote, err := clientA.GetQuote(ctx, rec.Symbol)
	if err != nil {
		return e.fail(id, fmt.Errorf("quote %s: %w", rec.Symbol, err))
	}
	if err := validateQuote(quote); err != nil {
		return e.fail(id, err)
	}

	perPip := usdPerPip(quote.TradeTickValue, pipSize(rec.Symbol, quote.PipValue), quote.Point, rec.Lots)
	tpPips := roundPips(rec.TPUSDA / perPip)
	slPips := roundPips(rec.SLUSDA / perPip)

	buy, err := e.open(ctx, clientA, domain.OpenRequest{
		Symbol:  rec.Symbol,
		Lots:    rec.Lots,
		Side:    domain.SideBuy,
		TPPips:  tpPips,
		SLPips:  slPips,
		Comment: fmt.Sprintf("Versus-%s-BUY", id),
	})
	if err != nil {
		return e.fail(id, fmt.Errorf("open BUY on A: %w", err))
	}

	sell, err := e.open(ctx, clientA, domain.OpenRequest{
		Symbol:  rec.Symbol,
		Lots:    rec.Lots,
		Side:    domain.SideSell,
		TPPips:  tpPips,
		SLPips:  slPips,
		Comment: fmt.Sprintf("Versus-%s-SELL", id),
	})
	if err != nil {
		// Compensate: the straddle is all-or-nothing, so close the BUY leg.
		if _, closeErr := clientA.Close(ctx, domain.CloseRequest{Ticket: buy}); closeErr != nil {
			e.logger.Error("rollback close of BUY leg failed",
				slog.String("id", id),
				slog.Uint64("ticket", buy),
				slog.String("error", closeErr.Error()),
			)
		} else {
			e.logger.Info("rolled back BUY leg", slog.String("id", id), slog.Uint64("ticket", buy))
		}
		return e.fail(id, fmt.Errorf("open SELL on A: %w", err))
	}

	updated, err := e.store.Update(id, func(r *domain.VersusRecord) {
		r.Status = domain.VersusCongelado
		r.TicketsA = []uint64{buy, sell}
		r.ErrorMessage = ""
	})
	if err != nil {
		return domain.VersusRecord{}, err
	}

	e.cache.InvalidateAccount(rec.AccountA)
	e.notify(ctx, "versus_congelado",
		"Versus Congelar complete",
		fmt.Sprintf("Versus %s: straddle opened on %d (%s %.2f lots, tickets %d/%d)",
			id, rec.AccountA, rec.Symbol, rec.Lots, buy, sell),
	)
	e.logger.Info("congelar complete", slog.String("id", id), slog.Uint64("buy", buy), slog.Uint64("sell", sell))
	return updated, nil
}

// Transferir collapses A's straddle to the configured side, moves A's stops
// to price levels economically linked to B's thresholds, and opens two
// half-lot legs on B in the opposite direction.
func (e *Engine) Transferir(ctx context.Context, id string) (domain.VersusRecord, error) {
	rec, err := e.store.Get(id)
	if err != nil {
		return domain.VersusRecord{}, err
	}
	if rec.Status != domain.VersusCongelado {
		return rec, fmt.Errorf("%w: versus %s is %s, expected congelado", domain.ErrPreconditionFailed, id, rec.Status)
	}
	if len(rec.TicketsA) != 2 {
		return rec, fmt.Errorf("%w: versus %s has %d A tickets, expected 2", domain.ErrPreconditionFailed, id, len(rec.TicketsA))
	}

	e.logger.Info("transferir start",
		slog.String("id", id),
		slog.Uint64("account_a", rec.AccountA),
		slog.Uint64("account_b", rec.AccountB),
	)

	clientA, err := e.agg.ResolveOwner(ctx, rec.AccountA)
	if err != nil {
		return e.fail(id, fmt.Errorf("resolve account A owner: %w", err))
	}
	clientB, err := e.agg.ResolveOwner(ctx, rec.AccountB)
	if err != nil {
		return e.fail(id, fmt.Errorf("resolve account B owner: %w", err))
	}

	// Positions are only needed to read the per-lot commission; a failed
	// lookup just means zero commission in the pip math.
	var commissionPerLot float64
	if positions, posErr := clientA.GetPositions(ctx); posErr != nil {
		e.logger.Warn("position lookup failed, assuming zero commission",
			slog.String("id", id),
			slog.String("error", posErr.Error()),
		)
	} else {
		for _, p := range positions {
			if p.Commission != 0 && p.Lots > 0 {
				commissionPerLot = p.Commission / p.Lots
				break
			}
		}
	}

	quote, err := clientA.GetQuote(ctx, rec.Symbol)
	if err != nil {
		return e.fail(id, fmt.Errorf("quote %s: %w", rec.Symbol, err))
	}
	if err := validateQuote(quote); err != nil {
		return e.fail(id, err)
	}

	currentPrice := quote.Bid
	if rec.Side == domain.SideSell {
		currentPrice = quote.Ask
	}
	if currentPrice <= 0 {
		return e.fail(id, fmt.Errorf("%w: non-positive reference price for %s", domain.ErrInvalidInput, rec.Symbol))
	}

	pip := pipSize(rec.Symbol, quote.PipValue)
	perPip := usdPerPip(quote.TradeTickValue, pip, quote.Point, rec.Lots)

	forwardCommissionUSD := commissionPerLot * rec.Lots * 2
	commissionPips := forwardCommissionUSD / perPip
	spread := quote.SpreadPips

	tpPipsB := roundPips(rec.TPUSDB / perPip)
	slPipsB := roundPips(rec.SLUSDB / perPip)

	var (
		closeTicket, keepTicket  uint64
		newTPPipsA, newSLPipsA   float64
		tpPriceA, slPriceA       float64
		sideB                    domain.TradeSide
		tpPipsBSend, slPipsBSend float64
	)

	decimals := priceDecimals(rec.Symbol)
	if rec.Side == domain.SideBuy {
		// Keep A's BUY (first ticket of the straddle), close the SELL.
		keepTicket, closeTicket = rec.TicketsA[0], rec.TicketsA[1]
		newTPPipsA = roundPips(slPipsB - spread - commissionPips)
		newSLPipsA = roundPips(tpPipsB - spread - commissionPips)
		tpPriceA = roundPrice(currentPrice+newTPPipsA*pip, decimals)
		slPriceA = roundPrice(currentPrice-newSLPipsA*pip, decimals)
		sideB = domain.SideSell
		tpPipsBSend = roundPips(tpPipsB - spread - commissionPips)
		slPipsBSend = roundPips(slPipsB - spread - commissionPips)
	} else {
		keepTicket, closeTicket = rec.TicketsA[1], rec.TicketsA[0]
		newTPPipsA = roundPips(slPipsB + spread - commissionPips)
		newSLPipsA = roundPips(tpPipsB + spread - commissionPips)
		tpPriceA = roundPrice(currentPrice-newTPPipsA*pip, decimals)
		slPriceA = roundPrice(currentPrice+newSLPipsA*pip, decimals)
		sideB = domain.SideBuy
		tpPipsBSend = roundPips(tpPipsB + spread - commissionPips)
		slPipsBSend = roundPips(slPipsB + spread - commissionPips)
	}

	if res, closeErr := clientA.Close(ctx, domain.CloseRequest{Ticket: closeTicket}); closeErr != nil {
		return e.fail(id, fmt.Errorf("close counter leg %d: %w", closeTicket, closeErr))
	} else if !res.Success {
		return e.fail(id, fmt.Errorf("close counter leg %d rejected: %s", closeTicket, res.Message))
	}

	// A losing the new stops is recoverable by the operator; rolling back an
	// already-closed counter leg is not. Modify failures are non-fatal.
	if res, modErr := clientA.Modify(ctx, domain.ModifyRequest{
		Ticket:  keepTicket,
		TPPrice: tpPriceA,
		SLPrice: slPriceA,
	}); modErr != nil {
		e.logger.Error("modify of remaining A leg failed",
			slog.String("id", id),
			slog.Uint64("ticket", keepTicket),
			slog.String("error", modErr.Error()),
		)
	} else if !res.Success {
		e.logger.Error("modify of remaining A leg rejected",
			slog.String("id", id),
			slog.Uint64("ticket", keepTicket),
			slog.String("message", res.Message),
		)
	}

	legLots := halfLots(rec.Lots)
	ticketsB := make([]uint64, 0, 2)
	for i, comment := range []string{
		fmt.Sprintf("Versus-%s-B1", id),
		fmt.Sprintf("Versus-%s-B2", id),
	} {
		ticket, openErr := e.open(ctx, clientB, domain.OpenRequest{
			Symbol:  rec.Symbol,
			Lots:    legLots,
			Side:    sideB,
			TPPips:  tpPipsBSend,
			SLPips:  slPipsBSend,
			Comment: comment,
		})
		if openErr != nil {
			return e.fail(id, fmt.Errorf("open B leg %d: %w", i+1, openErr))
		}
		ticketsB = append(ticketsB, ticket)
	}

	updated, err := e.store.Update(id, func(r *domain.VersusRecord) {
		r.Status = domain.VersusTransferido
		r.TicketsA = []uint64{keepTicket}
		r.TicketsB = ticketsB
		r.ErrorMessage = ""
	})
	if err != nil {
		return domain.VersusRecord{}, err
	}

	e.cache.InvalidateAccount(rec.AccountA)
	e.cache.InvalidateAccount(rec.AccountB)
	e.notify(ctx, "versus_transferido",
		"Versus Transferir complete",
		fmt.Sprintf("Versus %s: %s leg kept on %d, mirrored %s on %d (2 × %.2f lots)",
			id, rec.Side, rec.AccountA, sideB, rec.AccountB, legLots),
	)
	e.logger.Info("transferir complete",
		slog.String("id", id),
		slog.Uint64("kept_ticket", keepTicket),
		slog.Float64("tp_price_a", tpPriceA),
		slog.Float64("sl_price_a", slPriceA),
	)
	return updated, nil
}

// open places one order and normalises the rejected-but-200 agent reply into
// an error.
func (e *Engine) open(ctx context.Context, c *agent.Client, req domain.OpenRequest) (uint64, error) {
	res, err := c.Open(ctx, req)
	if err != nil {
		return 0, err
	}
	if !res.Success {
		return 0, fmt.Errorf("agent rejected order: %s", res.Message)
	}
	return res.Ticket, nil
}

// fail transitions the record to error with the failure message and returns
// the original failure.
func (e *Engine) fail(id string, cause error) (domain.VersusRecord, error) {
	e.logger.Error("versus step failed", slog.String("id", id), slog.String("error", cause.Error()))

	rec, updErr := e.store.Update(id, func(r *domain.VersusRecord) {
		r.Status = domain.VersusError
		r.ErrorMessage = cause.Error()
	})
	if updErr != nil {
		e.logger.Error("failed to persist error status",
			slog.String("id", id),
			slog.String("error", updErr.Error()),
		)
	}

	e.notify(context.Background(), "versus_error",
		"Versus step failed",
		fmt.Sprintf("Versus %s: %v", id, cause),
	)
	return rec, cause
}

func (e *Engine) notify(ctx context.Context, event, title, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, event, title, message); err != nil {
		e.logger.Warn("notification failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}

// validateQuote rejects quotes the pip math cannot work with.
func validateQuote(q domain.Quote) error {
	if q.Bid <= 0 || q.Ask <= 0 {
		return fmt.Errorf("%w: quote has non-positive prices", domain.ErrInvalidInput)
	}
	if q.Point <= 0 {
		return fmt.Errorf("%w: quote has non-positive point", domain.ErrInvalidInput)
	}
	if q.PipValue <= 0 {
		return fmt.Errorf("%w: quote has non-positive pip_value", domain.ErrInvalidInput)
	}
	if q.TradeTickValue <= 0 {
		return fmt.Errorf("%w: quote has non-positive trade_tick_value", domain.ErrInvalidInput)
	}
	return nil
}

package domain

import "time"

// TradeSide is the direction of an order.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Valid reports whether the side is one of the two accepted values.
func (s TradeSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the counter direction.
func (s TradeSide) Opposite() TradeSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Quote is a symbol quote as reported by an agent's terminal.
type Quote struct {
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Point          float64 `json:"point"`
	PipValue       float64 `json:"pip_value"`
	TradeTickValue float64 `json:"trade_tick_value"`
	SpreadPips     float64 `json:"spread_pips"`
}

// OpenRequest opens a market order on an agent. Stops are expressed as pip
// distances; the agent applies direction.
type OpenRequest struct {
	Symbol  string    `json:"symbol"`
	Lots    float64   `json:"lots"`
	Side    TradeSide `json:"side"`
	TPPips  float64   `json:"tp_pips"`
	SLPips  float64   `json:"sl_pips"`
	Comment string    `json:"comment,omitempty"`
}

// CloseRequest closes an open position by ticket.
type CloseRequest struct {
	Ticket uint64 `json:"ticket"`
}

// ModifyRequest adjusts the stops of an open position. Unlike OpenRequest the
// stops are absolute price levels; the agent protocol is asymmetric here.
type ModifyRequest struct {
	Ticket  uint64  `json:"ticket"`
	TPPrice float64 `json:"tp_price"`
	SLPrice float64 `json:"sl_price"`
}

// TradeResult is the agent's reply to open/close/modify commands.
type TradeResult struct {
	Success bool   `json:"success"`
	Ticket  uint64 `json:"ticket,omitempty"`
	Message string `json:"message,omitempty"`
}

// Position is an open position as listed by an agent.
type Position struct {
	Ticket     uint64    `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Lots       float64   `json:"lots"`
	Side       TradeSide `json:"side"`
	OpenPrice  float64   `json:"open_price"`
	Profit     float64   `json:"profit"`
	Commission float64   `json:"commission"`
}

// TradeRecord is one closed trade in an account's history.
type TradeRecord struct {
	PositionID uint64    `json:"position_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Lot        float64   `json:"lot"`
	Pips       float64   `json:"pips"`
	TPMoney    float64   `json:"tp_money,omitempty"`
	SLMoney    float64   `json:"sl_money,omitempty"`
	Commission float64   `json:"commission"`
	Profit     float64   `json:"profit"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
}

// TradeHistory is the merged, per-account trade history served to clients.
type TradeHistory struct {
	AccountID       uint64        `json:"account_id"`
	Trades          []TradeRecord `json:"trades"`
	TotalTrades     int           `json:"total_trades"`
	TotalProfit     float64       `json:"total_profit"`
	TotalCommission float64       `json:"total_commission"`
	LastSyncTime    *time.Time    `json:"last_sync_time,omitempty"`
	Cached          bool          `json:"cached"`
}

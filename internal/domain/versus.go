package domain

import (
	"fmt"
	"strings"
	"time"
)

// VersusStatus is the workflow state of a versus record.
type VersusStatus string

const (
	VersusPending     VersusStatus = "pending"
	VersusCongelado   VersusStatus = "congelado"
	VersusTransferido VersusStatus = "transferido"
	VersusCompleted   VersusStatus = "completed"
	VersusError       VersusStatus = "error"
)

// VersusRecord is one two-account hedge workflow. It moves forward through
// pending -> congelado -> transferido; any failed step leaves it in error.
// Records persist to disk on every transition.
type VersusRecord struct {
	ID       string    `json:"id"`
	AccountA uint64    `json:"account_a"`
	AccountB uint64    `json:"account_b"`
	Symbol   string    `json:"symbol"`
	Lots     float64   `json:"lots"`
	Side     TradeSide `json:"side"`

	TPUSDA float64 `json:"tp_usd_a"`
	SLUSDA float64 `json:"sl_usd_a"`
	TPUSDB float64 `json:"tp_usd_b"`
	SLUSDB float64 `json:"sl_usd_b"`

	Status    VersusStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	ScheduledCongelar   *time.Time `json:"scheduled_congelar,omitempty"`
	ScheduledTransferir *time.Time `json:"scheduled_transferir,omitempty"`

	TicketsA []uint64 `json:"tickets_a"`
	TicketsB []uint64 `json:"tickets_b"`

	ErrorMessage string `json:"error_message,omitempty"`

	HolderA   string `json:"holder_a,omitempty"`
	PropFirmA string `json:"prop_firm_a,omitempty"`
	HolderB   string `json:"holder_b,omitempty"`
	PropFirmB string `json:"prop_firm_b,omitempty"`
}

// VersusParams are the caller-supplied fields for creating a versus record.
type VersusParams struct {
	AccountA uint64    `json:"account_a"`
	AccountB uint64    `json:"account_b"`
	Symbol   string    `json:"symbol"`
	Lots     float64   `json:"lots"`
	Side     TradeSide `json:"side"`

	TPUSDA float64 `json:"tp_usd_a"`
	SLUSDA float64 `json:"sl_usd_a"`
	TPUSDB float64 `json:"tp_usd_b"`
	SLUSDB float64 `json:"sl_usd_b"`

	ScheduledCongelar   *time.Time `json:"scheduled_congelar,omitempty"`
	ScheduledTransferir *time.Time `json:"scheduled_transferir,omitempty"`
}

// Validate checks the creation parameters. It is called before any agent is
// contacted, so an invalid request never touches the fleet.
func (p *VersusParams) Validate() error {
	if p.AccountA == 0 || p.AccountB == 0 {
		return fmt.Errorf("%w: account_a and account_b are required", ErrInvalidInput)
	}
	if p.AccountA == p.AccountB {
		return fmt.Errorf("%w: account_a and account_b must differ", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if p.Lots <= 0 {
		return fmt.Errorf("%w: lots must be positive", ErrInvalidInput)
	}
	side := TradeSide(strings.ToUpper(string(p.Side)))
	if !side.Valid() {
		return fmt.Errorf("%w: side must be BUY or SELL", ErrInvalidInput)
	}
	if p.TPUSDA <= 0 || p.SLUSDA <= 0 || p.TPUSDB <= 0 || p.SLUSDB <= 0 {
		return fmt.Errorf("%w: tp/sl thresholds must be positive", ErrInvalidInput)
	}
	return nil
}

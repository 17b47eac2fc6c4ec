package env

import "fmt"

// Side is the direction of an open position.
type Side int

const (
	// SideLong is a long position opened by BUY.
	SideLong Side = iota
	// SideShort is a short position opened by SELL.
	SideShort
)

// String returns the string representation of Side.
func (s Side) String() string {
	switch s {
	case SideLong:
		return "LONG"
	case SideShort:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// Position holds the state of a single open trading position.
// At most one Position is open at any time; BUY and SELL while a
// Position exists are no-ops.
type Position struct {
	Side       Side
	EntryPrice float64
	Quantity   float64
	EntryStep  int
	OpenFee    float64
}

// UnrealizedPnL returns the mark-to-market PnL at the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Side == SideLong {
		return (price - p.EntryPrice) * p.Quantity
	}
	return (p.EntryPrice - price) * p.Quantity
}

// Trade is the record of a closed position, kept for reporting.
type Trade struct {
	Side        Side    `json:"side"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price"`
	Quantity    float64 `json:"quantity"`
	RealizedPnL float64 `json:"realized_pnl"`
	Fees        float64 `json:"fees"`
	EntryStep   int     `json:"entry_step"`
	ExitStep    int     `json:"exit_step"`
	Forced      bool    `json:"forced"`
}

// String returns a string representation of the trade.
func (t Trade) String() string {
	return fmt.Sprintf("Trade{%s entry=%.2f exit=%.2f qty=%.6f pnl=%.2f}",
		t.Side, t.EntryPrice, t.ExitPrice, t.Quantity, t.RealizedPnL)
}

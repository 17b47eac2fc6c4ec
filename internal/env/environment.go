// Package env implements the trading simulation environment the policy
// trains against: a finite state machine over a fixed candle series
// exposing reset/step semantics.
package env

import (
	"fmt"

	"github.com/your-org/ppo-trade-agent/internal/config"
	"github.com/your-org/ppo-trade-agent/internal/datastore"
	"github.com/your-org/ppo-trade-agent/internal/feature"
)

// Action is a discrete trading action.
type Action int

const (
	// ActionHold does nothing.
	ActionHold Action = iota
	// ActionBuy opens a long position when flat.
	ActionBuy
	// ActionSell opens a short position when flat.
	ActionSell
	// ActionClose realizes the open position, if any.
	ActionClose
)

// String returns the string representation of Action.
func (a Action) String() string {
	switch a {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	case ActionClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// positionRatio is the fraction of equity committed notionally when a
// position is opened.
const positionRatio = 0.95

// equityFloorRatio terminates an episode once total equity falls below
// this fraction of initial equity.
const equityFloorRatio = 0.5

// Environment simulates trading over a fixed, time-ordered candle
// series. It owns position, equity and termination logic and performs
// no external I/O; data sufficiency is the caller's responsibility
// (see RequiredCandles).
type Environment struct {
	cfg     config.Config
	candles []datastore.Candle
	encoder *feature.Encoder

	currentIdx int
	equity     float64
	peakEquity float64
	position   *Position
	steps      int
	trades     []Trade
}

// RequiredCandles returns the minimum series length an environment
// needs: a full lookback window plus the first step's candle.
func RequiredCandles(lookback int) int {
	return lookback + 1
}

// ValidateSeries rejects a candle series too short for the lookback
// window. Training must fail before an environment is constructed.
func ValidateSeries(lookback int, candles []datastore.Candle) error {
	if need := RequiredCandles(lookback); len(candles) < need {
		return fmt.Errorf("insufficient data: need at least %d candles for lookback %d, got %d",
			need, lookback, len(candles))
	}
	return nil
}

// NewEnvironment creates an Environment over the given series. The
// series must hold at least RequiredCandles(cfg.LookbackPeriod) rows.
func NewEnvironment(cfg config.Config, candles []datastore.Candle, funding []datastore.FundingRate, vwap []datastore.VWAPRecord) *Environment {
	e := &Environment{
		cfg:     cfg,
		candles: candles,
		encoder: feature.NewEncoder(cfg.LookbackPeriod, cfg.InitialEquity, funding, vwap),
	}
	e.Reset()
	return e
}

// Reset reinitializes the environment for a new episode and returns
// the initial state.
func (e *Environment) Reset() []float64 {
	e.currentIdx = e.cfg.LookbackPeriod
	e.equity = e.cfg.InitialEquity
	e.peakEquity = e.cfg.InitialEquity
	e.position = nil
	e.steps = 0
	e.trades = nil
	return e.state()
}

// Step executes one action, advances the series by one candle and
// returns the next state, the reward and whether the episode is done.
// Only a realized CLOSE (explicit or forced at termination) yields a
// nonzero reward. The terminal next state is the zero vector.
func (e *Environment) Step(action Action) (nextState []float64, reward float64, done bool) {
	price := e.candles[e.currentIdx].Close

	switch {
	case action == ActionBuy && e.position == nil:
		e.openPosition(SideLong, price)
	case action == ActionSell && e.position == nil:
		e.openPosition(SideShort, price)
	case action == ActionClose && e.position != nil:
		reward = e.closePosition(price, false)
	}

	e.currentIdx++
	e.steps++

	total := e.totalEquity(price)
	if total > e.peakEquity {
		e.peakEquity = total
	}

	done = e.currentIdx >= len(e.candles)-1 ||
		e.steps >= e.cfg.MaxSteps ||
		total < e.cfg.InitialEquity*equityFloorRatio

	if done {
		if e.position != nil {
			reward += e.closePosition(price, true)
		}
		return feature.ZeroState(), reward, true
	}
	return e.state(), reward, false
}

// openPosition commits 95% of current equity notionally and charges
// the opening fee immediately.
func (e *Environment) openPosition(side Side, price float64) {
	notional := e.equity * positionRatio
	fee := notional * e.cfg.FeeRate
	e.position = &Position{
		Side:       side,
		EntryPrice: price,
		Quantity:   notional / price,
		EntryStep:  e.steps,
		OpenFee:    fee,
	}
	e.equity -= fee
}

// closePosition realizes PnL at the given price, deducts the closing
// fee on exit notional and returns the reward. The forced path at
// termination goes through here as well, so it pays the closing fee
// like an explicit CLOSE.
func (e *Environment) closePosition(price float64, forced bool) float64 {
	pos := e.position
	pnl := pos.UnrealizedPnL(price)
	exitNotional := price * pos.Quantity
	fee := exitNotional * e.cfg.FeeRate

	e.equity += pnl - fee
	e.trades = append(e.trades, Trade{
		Side:        pos.Side,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   price,
		Quantity:    pos.Quantity,
		RealizedPnL: pnl,
		Fees:        pos.OpenFee + fee,
		EntryStep:   pos.EntryStep,
		ExitStep:    e.steps,
		Forced:      forced,
	})
	e.position = nil

	return pnl / e.cfg.InitialEquity * 100
}

// state encodes the current lookback window and account status.
func (e *Environment) state() []float64 {
	start := e.currentIdx - e.cfg.LookbackPeriod
	if start < 0 {
		start = 0
	}
	window := e.candles[start : e.currentIdx+1]
	price := e.candles[e.currentIdx].Close

	acct := feature.AccountView{
		HasPosition: e.position != nil,
		TotalEquity: e.totalEquity(price),
		PeakEquity:  e.peakEquity,
	}
	if e.position != nil {
		acct.UnrealizedPnL = e.position.UnrealizedPnL(price)
	}
	return e.encoder.Encode(window, acct)
}

// totalEquity is realized equity plus unrealized PnL at the price.
func (e *Environment) totalEquity(price float64) float64 {
	if e.position == nil {
		return e.equity
	}
	return e.equity + e.position.UnrealizedPnL(price)
}

// Equity returns realized equity.
func (e *Environment) Equity() float64 {
	return e.equity
}

// PeakEquity returns the running maximum of total equity.
func (e *Environment) PeakEquity() float64 {
	return e.peakEquity
}

// Position returns the currently open position, or nil when flat.
func (e *Environment) Position() *Position {
	return e.position
}

// Steps returns the number of steps taken in the current episode.
func (e *Environment) Steps() int {
	return e.steps
}

// Trades returns the closed trades of the current episode.
func (e *Environment) Trades() []Trade {
	return e.trades
}

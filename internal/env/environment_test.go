package env

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/ppo-trade-agent/internal/config"
	"github.com/your-org/ppo-trade-agent/internal/datastore"
	"github.com/your-org/ppo-trade-agent/internal/feature"
)

func testConfig(lookback, maxSteps int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.LookbackPeriod = lookback
	cfg.MaxSteps = maxSteps
	return cfg
}

func candleSeries(closes ...float64) []datastore.Candle {
	candles := make([]datastore.Candle, len(closes))
	for i, c := range closes {
		candles[i] = datastore.Candle{
			Timestamp: int64(1700000000000) + int64(i)*3600000,
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    100,
		}
	}
	return candles
}

func flatCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func TestValidateSeries(t *testing.T) {
	assert.Error(t, ValidateSeries(20, candleSeries(flatCloses(20, 100)...)))
	assert.NoError(t, ValidateSeries(20, candleSeries(flatCloses(21, 100)...)))
}

func TestReset(t *testing.T) {
	cfg := testConfig(5, 500)
	environment := NewEnvironment(*cfg, candleSeries(flatCloses(10, 100)...), nil, nil)

	state := environment.Reset()
	require.Len(t, state, feature.StateDim)
	assert.Equal(t, cfg.InitialEquity, environment.Equity())
	assert.Equal(t, cfg.InitialEquity, environment.PeakEquity())
	assert.Nil(t, environment.Position())
	assert.Zero(t, environment.Steps())
	assert.Empty(t, environment.Trades())
}

func TestBuyOpensLongPosition(t *testing.T) {
	cfg := testConfig(2, 500)
	environment := NewEnvironment(*cfg, candleSeries(100, 100, 100, 100, 100, 100), nil, nil)

	_, reward, done := environment.Step(ActionBuy)
	assert.Zero(t, reward, "opening a position emits no reward")
	assert.False(t, done)

	pos := environment.Position()
	require.NotNil(t, pos)
	assert.Equal(t, SideLong, pos.Side)
	assert.Equal(t, 100.0, pos.EntryPrice)

	notional := cfg.InitialEquity * 0.95
	assert.Equal(t, notional/100.0, pos.Quantity)
	assert.Equal(t, cfg.InitialEquity-notional*cfg.FeeRate, environment.Equity())
}

func TestSellOpensShortPosition(t *testing.T) {
	cfg := testConfig(2, 500)
	environment := NewEnvironment(*cfg, candleSeries(100, 100, 100, 100, 100, 100), nil, nil)

	_, reward, _ := environment.Step(ActionSell)
	assert.Zero(t, reward)

	pos := environment.Position()
	require.NotNil(t, pos)
	assert.Equal(t, SideShort, pos.Side)
}

func TestEntryWhileInPositionIsNoOp(t *testing.T) {
	cfg := testConfig(2, 500)
	environment := NewEnvironment(*cfg, candleSeries(100, 100, 100, 110, 120, 130, 130, 130), nil, nil)

	environment.Step(ActionBuy)
	equityAfterOpen := environment.Equity()

	_, reward, _ := environment.Step(ActionBuy)
	assert.Zero(t, reward)
	_, reward, _ = environment.Step(ActionSell)
	assert.Zero(t, reward)

	pos := environment.Position()
	require.NotNil(t, pos)
	assert.Equal(t, SideLong, pos.Side, "existing position is untouched")
	assert.Equal(t, 100.0, pos.EntryPrice)
	assert.Equal(t, equityAfterOpen, environment.Equity(), "no fees charged on ignored entries")
}

func TestCloseWhileFlatIsNoOp(t *testing.T) {
	cfg := testConfig(2, 500)
	environment := NewEnvironment(*cfg, candleSeries(flatCloses(6, 100)...), nil, nil)

	_, reward, done := environment.Step(ActionClose)
	assert.Zero(t, reward)
	assert.False(t, done)
	assert.Equal(t, cfg.InitialEquity, environment.Equity())
	assert.Nil(t, environment.Position())
	assert.Empty(t, environment.Trades())
}

func TestCloseRealizesPnL(t *testing.T) {
	cfg := testConfig(2, 500)
	environment := NewEnvironment(*cfg, candleSeries(100, 100, 100, 110, 110, 110), nil, nil)

	environment.Step(ActionBuy) // entry at 100
	equityBefore := environment.Equity()

	_, reward, _ := environment.Step(ActionClose) // exit at 110

	trades := environment.Trades()
	require.Len(t, trades, 1)
	tr := trades[0]

	assert.Equal(t, 100.0, tr.EntryPrice)
	assert.Equal(t, 110.0, tr.ExitPrice)
	assert.False(t, tr.Forced)
	assert.Equal(t, (110.0-100.0)*tr.Quantity, tr.RealizedPnL)

	closeFee := tr.ExitPrice * tr.Quantity * cfg.FeeRate
	assert.Equal(t, equityBefore+tr.RealizedPnL-closeFee, environment.Equity())
	assert.Equal(t, tr.RealizedPnL/cfg.InitialEquity*100, reward)
	assert.Nil(t, environment.Position())
}

func TestShortProfitsFromFallingPrice(t *testing.T) {
	cfg := testConfig(2, 500)
	environment := NewEnvironment(*cfg, candleSeries(100, 100, 100, 90, 90, 90), nil, nil)

	environment.Step(ActionSell) // entry at 100
	_, reward, _ := environment.Step(ActionClose) // exit at 90

	trades := environment.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, (100.0-90.0)*trades[0].Quantity, trades[0].RealizedPnL)
	assert.Positive(t, reward)
}

// A flat series with an always-holding agent must leave equity untouched
// and record no trades.
func TestHoldOnFlatSeries(t *testing.T) {
	cfg := testConfig(20, 500)
	environment := NewEnvironment(*cfg, candleSeries(flatCloses(25, 100)...), nil, nil)

	var done bool
	var steps int
	for !done {
		var reward float64
		_, reward, done = environment.Step(ActionHold)
		assert.Zero(t, reward)
		steps++
		require.LessOrEqual(t, steps, 25, "episode must terminate")
	}

	assert.Equal(t, 4, steps, "indices 20..23 are steppable on a 25-candle series")
	assert.Equal(t, cfg.InitialEquity, environment.Equity())
	assert.Empty(t, environment.Trades())
}

func TestTerminationOnMaxSteps(t *testing.T) {
	cfg := testConfig(2, 3)
	environment := NewEnvironment(*cfg, candleSeries(flatCloses(100, 100)...), nil, nil)

	var done bool
	var steps int
	for !done {
		_, _, done = environment.Step(ActionHold)
		steps++
	}
	assert.Equal(t, 3, steps)
}

func TestTerminationOnEquityFloor(t *testing.T) {
	cfg := testConfig(2, 500)
	environment := NewEnvironment(*cfg, candleSeries(100, 100, 100, 40, 40, 40), nil, nil)

	environment.Step(ActionBuy) // entry at 100
	_, reward, done := environment.Step(ActionHold) // marked at 40, equity below half

	assert.True(t, done)
	assert.Negative(t, reward, "forced liquidation realizes the loss")
	assert.Nil(t, environment.Position())

	trades := environment.Trades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Forced)
	assert.Equal(t, 40.0, trades[0].ExitPrice)
}

// Buy-and-hold on a rising series is force-closed at the end of the
// data, fees charged on both sides.
func TestForcedCloseAtSeriesEnd(t *testing.T) {
	cfg := testConfig(3, 500)
	prices := make([]float64, 8)
	for i := range prices {
		prices[i] = 100 * math.Pow(1.01, float64(i))
	}
	environment := NewEnvironment(*cfg, candleSeries(prices...), nil, nil)

	_, _, done := environment.Step(ActionBuy) // entry at prices[3]
	require.False(t, done)

	var total float64
	for !done {
		var reward float64
		_, reward, done = environment.Step(ActionHold)
		total += reward
	}

	trades := environment.Trades()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.True(t, tr.Forced)
	assert.Equal(t, prices[3], tr.EntryPrice)
	assert.Equal(t, prices[6], tr.ExitPrice, "exit at the last steppable index")
	assert.Equal(t, tr.RealizedPnL/cfg.InitialEquity*100, total, "only the forced close emits reward")

	openFee := tr.EntryPrice * tr.Quantity * cfg.FeeRate
	closeFee := tr.ExitPrice * tr.Quantity * cfg.FeeRate
	assert.InDelta(t, cfg.InitialEquity-openFee+tr.RealizedPnL-closeFee, environment.Equity(), 1e-9)
	assert.InDelta(t, openFee+closeFee, tr.Fees, 1e-12)
}

func TestTerminalStateIsZeroVector(t *testing.T) {
	cfg := testConfig(2, 1)
	environment := NewEnvironment(*cfg, candleSeries(flatCloses(6, 100)...), nil, nil)

	state, _, done := environment.Step(ActionHold)
	require.True(t, done)
	assert.Equal(t, feature.ZeroState(), state)
}

func TestPeakEquityTracksHighWaterMark(t *testing.T) {
	cfg := testConfig(2, 500)
	environment := NewEnvironment(*cfg, candleSeries(100, 100, 100, 120, 80, 80, 80), nil, nil)

	environment.Step(ActionBuy)  // entry at 100
	environment.Step(ActionHold) // marked at 120
	peakAfterRally := environment.PeakEquity()
	assert.Greater(t, peakAfterRally, cfg.InitialEquity)

	environment.Step(ActionHold) // marked at 80
	assert.Equal(t, peakAfterRally, environment.PeakEquity(), "peak never declines")
}

func TestResetClearsEpisodeState(t *testing.T) {
	cfg := testConfig(2, 500)
	environment := NewEnvironment(*cfg, candleSeries(100, 100, 100, 110, 110, 110), nil, nil)

	environment.Step(ActionBuy)
	environment.Step(ActionClose)
	require.NotEmpty(t, environment.Trades())

	environment.Reset()
	assert.Equal(t, cfg.InitialEquity, environment.Equity())
	assert.Nil(t, environment.Position())
	assert.Empty(t, environment.Trades())
	assert.Zero(t, environment.Steps())
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "HOLD", ActionHold.String())
	assert.Equal(t, "BUY", ActionBuy.String())
	assert.Equal(t, "SELL", ActionSell.String())
	assert.Equal(t, "CLOSE", ActionClose.String())
}

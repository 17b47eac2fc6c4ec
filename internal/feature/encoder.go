// Package feature converts market windows and account status into the
// fixed-length state vectors the policy and value models consume.
package feature

import (
	"math"

	"github.com/your-org/ppo-trade-agent/internal/datastore"
)

// StateDim is the length of the encoded state vector.
const StateDim = 17

// fundingTrendWindowMs is the trailing window for the funding trend signal.
const fundingTrendWindowMs = 7 * 24 * 60 * 60 * 1000

// AccountView is the account-side input to the encoder.
type AccountView struct {
	HasPosition   bool
	UnrealizedPnL float64
	TotalEquity   float64
	PeakEquity    float64
}

// Encoder builds state vectors from a market window plus account status.
// Funding and VWAP series are indexed once at construction; lookups by
// timestamp that miss default to zero rather than failing.
type Encoder struct {
	lookback      int
	initialEquity float64

	funding    map[int64]float64
	fundingAsc []datastore.FundingRate
	vwapByTime map[int64]float64
}

// NewEncoder creates an Encoder over the given funding and VWAP series.
func NewEncoder(lookback int, initialEquity float64, funding []datastore.FundingRate, vwap []datastore.VWAPRecord) *Encoder {
	fundingByTime := make(map[int64]float64, len(funding))
	for _, fr := range funding {
		fundingByTime[fr.Timestamp] = fr.Rate
	}
	vwapByTime := make(map[int64]float64, len(vwap))
	for _, v := range vwap {
		vwapByTime[v.Timestamp] = v.VWAP
	}
	return &Encoder{
		lookback:      lookback,
		initialEquity: initialEquity,
		funding:       fundingByTime,
		fundingAsc:    funding,
		vwapByTime:    vwapByTime,
	}
}

// Encode returns the 17-element state vector for the given window of
// candles (most recent last) and account view. The window is read-only;
// a fresh vector is returned on every call.
func (e *Encoder) Encode(window []datastore.Candle, acct AccountView) []float64 {
	closes := make([]float64, len(window))
	volumes := make([]float64, len(window))
	for i, c := range window {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	normPrices := Normalize(closes)
	normVolumes := Normalize(volumes)
	returns := priceReturns(closes)

	lastPrice := 0.0
	var currentTime int64
	if len(window) > 0 {
		lastPrice = closes[len(closes)-1]
		currentTime = window[len(window)-1].Timestamp
	}

	lastReturn := 0.0
	if len(returns) > 0 {
		lastReturn = returns[len(returns)-1]
	}

	meanRet, stdRet := tailStats(returns, 5)
	rsi := relativeStrength(closes)
	macd, macdSignal := macdSignals(closes, lastPrice)

	hasPosition := 0.0
	positionPnL := 0.0
	if acct.HasPosition {
		hasPosition = 1.0
		positionPnL = acct.UnrealizedPnL / e.initialEquity
	}
	normalizedEquity := (acct.TotalEquity - e.initialEquity) / e.initialEquity
	drawdown := 0.0
	if acct.PeakEquity > 0 {
		drawdown = (acct.PeakEquity - acct.TotalEquity) / acct.PeakEquity
	}

	return []float64{
		last(normPrices),
		lastReturn,
		last(normVolumes),
		meanRet,
		stdRet,
		rsi / 100,
		macd,
		macdSignal,
		e.fundingRate(currentTime),
		e.fundingTrend(currentTime),
		e.vwapDeviation(currentTime, lastPrice),
		0.0, // order-flow imbalance, not yet sourced
		0.5, // cross-asset correlation, not yet sourced
		hasPosition,
		positionPnL,
		normalizedEquity,
		drawdown,
	}
}

// ZeroState returns the terminal all-zero state vector.
func ZeroState() []float64 {
	return make([]float64, StateDim)
}

// fundingRate looks up the funding rate at the exact timestamp, scaled
// to a magnitude comparable with the other features. A miss yields 0.
func (e *Encoder) fundingRate(timestamp int64) float64 {
	if rate, ok := e.funding[timestamp]; ok {
		return rate * 1000
	}
	return 0
}

// fundingTrend is the mean funding rate over the trailing seven days.
func (e *Encoder) fundingTrend(timestamp int64) float64 {
	since := timestamp - fundingTrendWindowMs
	sum := 0.0
	count := 0
	for _, fr := range e.fundingAsc {
		if fr.Timestamp >= since && fr.Timestamp <= timestamp {
			sum += fr.Rate
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) * 1000
}

// vwapDeviation is the percentage distance of price from VWAP at the
// exact timestamp. A miss or zero VWAP yields 0.
func (e *Encoder) vwapDeviation(timestamp int64, price float64) float64 {
	vwap, ok := e.vwapByTime[timestamp]
	if !ok || vwap == 0 {
		return 0
	}
	return (price - vwap) / vwap * 100
}

// Normalize maps values to [-1, 1] via min-max scaling. A zero-range
// input produces the zero vector of the same length.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rangeVal := maxVal - minVal
	if rangeVal == 0 {
		return out
	}
	for i, v := range values {
		out[i] = 2*(v-minVal)/rangeVal - 1
	}
	return out
}

// priceReturns computes simple period-to-period returns. A zero previous
// price contributes a zero return instead of dividing by zero.
func priceReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
		}
	}
	return returns
}

// tailStats returns the mean and population standard deviation of the
// last n values, or zeros when fewer than n values are available.
func tailStats(values []float64, n int) (mean, stdDev float64) {
	if len(values) < n {
		return 0, 0
	}
	tail := values[len(values)-n:]
	for _, v := range tail {
		mean += v
	}
	mean /= float64(n)
	for _, v := range tail {
		stdDev += (v - mean) * (v - mean)
	}
	stdDev = math.Sqrt(stdDev / float64(n))
	return mean, stdDev
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

package feature

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

const (
	rsiPeriod      = 14
	macdFastPeriod = 12
	macdSlowPeriod = 26
	macdSignalSpan = 9
)

// relativeStrength computes RSI over the window closes. Windows too
// short for the period, or degenerate inputs (constant prices), yield
// the neutral value 50.
func relativeStrength(closes []float64) float64 {
	if len(closes) < rsiPeriod+1 {
		return 50
	}
	constant := true
	for _, c := range closes[1:] {
		if c != closes[0] {
			constant = false
			break
		}
	}
	if constant {
		return 50
	}
	result := talib.Rsi(closes, rsiPeriod)
	rsi := result[len(result)-1]
	if math.IsNaN(rsi) || math.IsInf(rsi, 0) {
		return 50
	}
	return rsi
}

// macdSignals computes the MACD and signal lines scaled by the last
// price. Windows shorter than the slow period yield zeros, matching the
// warmup behavior of the indicator.
func macdSignals(closes []float64, lastPrice float64) (macd, signal float64) {
	if len(closes) < macdSlowPeriod || lastPrice == 0 {
		return 0, 0
	}
	macdLine, signalLine, _ := talib.Macd(closes, macdFastPeriod, macdSlowPeriod, macdSignalSpan)
	macd = macdLine[len(macdLine)-1] / lastPrice
	signal = signalLine[len(signalLine)-1] / lastPrice
	if math.IsNaN(macd) || math.IsInf(macd, 0) {
		macd = 0
	}
	if math.IsNaN(signal) || math.IsInf(signal, 0) {
		signal = 0
	}
	return macd, signal
}

// Package datastore provides access to historical market data used for
// training and backtesting.
package datastore

// Candle is a single OHLCV bar. Timestamp is unix milliseconds.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// FundingRate is a perpetual-futures funding rate record.
type FundingRate struct {
	Timestamp int64
	Rate      float64
}

// VWAPRecord is a daily volume-weighted average price record.
type VWAPRecord struct {
	Timestamp int64
	VWAP      float64
}

// MarketData bundles the three aligned series an environment consumes.
type MarketData struct {
	Candles []Candle
	Funding []FundingRate
	VWAP    []VWAPRecord
}

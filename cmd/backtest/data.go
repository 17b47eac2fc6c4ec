package main

import (
	"context"
	"fmt"

	"github.com/your-org/ppo-trade-agent/internal/config"
	"github.com/your-org/ppo-trade-agent/internal/datastore"
)

// backtestWindowCandles caps the OHLCV load at 90 days of hourly bars.
const backtestWindowCandles = 90 * 24

func loadMarketData(ctx context.Context, cfg *config.Config) (*datastore.MarketData, error) {
	if bool(cfg.Database.Enabled) {
		pool, err := datastore.Connect(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		repo := datastore.NewRepository(pool)

		candles, err := repo.LoadOHLCV(ctx, cfg.Symbol, backtestWindowCandles)
		if err != nil {
			return nil, err
		}
		funding, err := repo.LoadFundingRates(ctx, cfg.Symbol)
		if err != nil {
			return nil, err
		}
		vwap, err := repo.LoadVWAP(ctx, cfg.Symbol)
		if err != nil {
			return nil, err
		}
		return &datastore.MarketData{Candles: candles, Funding: funding, VWAP: vwap}, nil
	}

	if cfg.CSV.OHLCVPath == "" {
		return nil, fmt.Errorf("no data source configured: set database.enabled or csv.ohlcv_path")
	}
	candles, err := datastore.LoadCandlesFromCSV(cfg.CSV.OHLCVPath)
	if err != nil {
		return nil, err
	}
	data := &datastore.MarketData{Candles: candles}
	if cfg.CSV.FundingPath != "" {
		if data.Funding, err = datastore.LoadFundingRatesFromCSV(cfg.CSV.FundingPath); err != nil {
			return nil, err
		}
	}
	if cfg.CSV.VWAPPath != "" {
		if data.VWAP, err = datastore.LoadVWAPFromCSV(cfg.CSV.VWAPPath); err != nil {
			return nil, err
		}
	}
	return data, nil
}

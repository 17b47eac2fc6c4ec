// Package main is the training entry point of the PPO trading agent.
//
// Usage: train [episode_count] [symbol]
// Both arguments are optional and positional; configuration beyond
// that comes from the APP_CONFIG yaml file and environment variables.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/your-org/ppo-trade-agent/internal/config"
	"github.com/your-org/ppo-trade-agent/internal/datastore"
	"github.com/your-org/ppo-trade-agent/internal/env"
	"github.com/your-org/ppo-trade-agent/internal/policy"
	"github.com/your-org/ppo-trade-agent/internal/trainer"
	"github.com/your-org/ppo-trade-agent/pkg/logger"
)

// trainingWindowCandles caps the OHLCV load at 90 days of hourly bars.
const trainingWindowCandles = 90 * 24

func main() {
	configPath := os.Getenv("APP_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.SetGlobalLogLevel(cfg.LogLevel)

	// Positional overrides: [episode_count] [symbol]
	args := os.Args[1:]
	if len(args) > 0 {
		episodes, err := strconv.Atoi(args[0])
		if err != nil {
			logger.Fatalf("Invalid episode count %q: %v", args[0], err)
		}
		cfg.Episodes = episodes
	}
	if len(args) > 1 {
		cfg.Symbol = args[1]
	}

	logger.Info("PPO trading agent training starting...")
	logger.Infof("Symbol: %s | Episodes: %d | Lookback: %d", cfg.Symbol, cfg.Episodes, cfg.LookbackPeriod)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Infof("Received signal: %s, finishing current episode...", sig)
		cancel()
	}()

	data, err := loadMarketData(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to load market data: %v", err)
	}
	if err := env.ValidateSeries(cfg.LookbackPeriod, data.Candles); err != nil {
		logger.Fatalf("Cannot train: %v", err)
	}

	environment := env.NewEnvironment(*cfg, data.Candles, data.Funding, data.VWAP)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	model := policy.New(cfg.StateDim, cfg.ActionDim, cfg.LearningRate, cfg.Gamma, cfg.Epsilon, rng)

	results, err := trainer.New(*cfg, environment, model).Run(ctx)
	if err != nil {
		logger.Fatalf("Training failed: %v", err)
	}

	logger.Info("Training completed successfully!")
	logger.Infof("Model path: %s", results.ModelPath)
}

// loadMarketData loads the three series from the database when one is
// configured, otherwise from the configured CSV files. Funding and
// VWAP files are optional; missing lookups degrade to zero features.
func loadMarketData(ctx context.Context, cfg *config.Config) (*datastore.MarketData, error) {
	if bool(cfg.Database.Enabled) {
		pool, err := datastore.Connect(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		repo := datastore.NewRepository(pool)

		candles, err := repo.LoadOHLCV(ctx, cfg.Symbol, trainingWindowCandles)
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

// Package main replays a trained model deterministically over the data
// series and prints a trade report.
//
// Usage: backtest <model_dir> [symbol]
//
// Set TRADES_CSV to additionally export the closed trades as CSV.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/your-org/ppo-trade-agent/internal/config"
	"github.com/your-org/ppo-trade-agent/internal/csvwriter"
	"github.com/your-org/ppo-trade-agent/internal/env"
	"github.com/your-org/ppo-trade-agent/internal/policy"
	"github.com/your-org/ppo-trade-agent/internal/report"
	"github.com/your-org/ppo-trade-agent/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: backtest <model_dir> [symbol]")
		os.Exit(1)
	}
	modelDir := os.Args[1]

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
	if len(os.Args) > 2 {
		cfg.Symbol = os.Args[2]
	}

	ctx := context.Background()
	data, err := loadMarketData(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to load market data: %v", err)
	}
	if err := env.ValidateSeries(cfg.LookbackPeriod, data.Candles); err != nil {
		logger.Fatalf("Cannot backtest: %v", err)
	}

	// Model load failure is fatal here: a backtest without the trained
	// weights is meaningless.
	model := policy.New(cfg.StateDim, cfg.ActionDim, cfg.LearningRate, cfg.Gamma, cfg.Epsilon,
		rand.New(rand.NewSource(1)))
	if err := model.Load(modelDir); err != nil {
		logger.Fatalf("Failed to load model from %s: %v", modelDir, err)
	}

	environment := env.NewEnvironment(*cfg, data.Candles, data.Funding, data.VWAP)
	totalReward, steps := runEpisode(environment, model)
	logger.Infof("Backtest finished | Steps: %d | Total reward: %.2f | Final equity: %.2f",
		steps, totalReward, environment.Equity())

	if path := os.Getenv("TRADES_CSV"); path != "" {
		if err := exportTrades(path, environment.Trades()); err != nil {
			logger.Warnf("Failed to export trades to %s: %v", path, err)
		} else {
			logger.Infof("Exported %d trades to %s", len(environment.Trades()), path)
		}
	}

	rep, err := report.AnalyzeTrades(environment.Trades(), cfg.InitialEquity, environment.Equity())
	if err != nil {
		logger.Warnf("No report generated: %v", err)
		return
	}
	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to encode report: %v", err)
	}
	fmt.Println(string(out))
}

// exportTrades writes the episode's closed trades as CSV.
func exportTrades(path string, trades []env.Trade) error {
	w, err := csvwriter.NewTradeWriter(path, logger.Zap())
	if err != nil {
		return err
	}
	if err := w.WriteAll(trades); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// runEpisode plays one full episode with deterministic action
// selection (arg-max, no sampling).
func runEpisode(environment *env.Environment, model *policy.Model) (totalReward float64, steps int) {
	state := environment.Reset()
	for {
		action := model.ActDeterministic(state)
		nextState, reward, done := environment.Step(env.Action(action))
		totalReward += reward
		steps++
		if done {
			return totalReward, steps
		}
		state = nextState
	}
}

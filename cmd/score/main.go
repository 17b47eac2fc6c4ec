// Package main scores a market-condition snapshot with the trained
// policy and prints a JSON result to stdout.
//
// Usage: score <state_json> [direction]
//
// The caller always receives parseable output: any internal failure
// degrades to a neutral score instead of propagating.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/your-org/ppo-trade-agent/internal/env"
	"github.com/your-org/ppo-trade-agent/internal/feature"
	"github.com/your-org/ppo-trade-agent/internal/policy"
)

// defaultModelDir is used when MODEL_DIR is not set.
const defaultModelDir = "ml_models/latest"

// Result is the scoring output contract.
type Result struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
}

func neutralResult() Result {
	return Result{Action: env.ActionHold.String(), Confidence: 0.5, Score: 0.5}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: score <state_json> [direction]")
		emit(neutralResult())
		return
	}
	direction := ""
	if len(os.Args) > 2 {
		direction = os.Args[2]
	}

	result, err := score(os.Args[1], direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		emit(neutralResult())
		return
	}
	emit(result)
}

func emit(r Result) {
	out, err := json.Marshal(r)
	if err != nil {
		// Result contains only plain fields; this cannot happen, but
		// the contract is parseable output no matter what.
		fmt.Println(`{"action":"HOLD","confidence":0.5,"score":0.5}`)
		return
	}
	fmt.Println(string(out))
}

// score parses the condition snapshot, loads the model and scores it
// with deterministic (arg-max) action selection. Scoring is a
// production read path; sampling is a training-time behavior.
func score(stateJSON, direction string) (Result, error) {
	var conditions map[string]float64
	if err := json.Unmarshal([]byte(stateJSON), &conditions); err != nil {
		return Result{}, fmt.Errorf("failed to parse state json: %w", err)
	}
	state := buildState(conditions)

	modelDir := os.Getenv("MODEL_DIR")
	if modelDir == "" {
		modelDir = defaultModelDir
	}
	model := policy.New(feature.StateDim, 4, 0.0003, 0.99, 0.2, rand.New(rand.NewSource(1)))
	if err := model.Load(modelDir); err != nil {
		return Result{}, fmt.Errorf("failed to load model: %w", err)
	}

	probs := model.Probs(state)
	action := model.ActDeterministic(state)

	confidence := probs[action]
	switch direction {
	case "BUY":
		confidence = probs[env.ActionBuy]
	case "SELL":
		confidence = probs[env.ActionSell]
	}

	return Result{
		Action:     env.Action(action).String(),
		Confidence: confidence,
		Score:      confidence,
	}, nil
}

// buildState maps the ad-hoc condition snapshot onto the state layout
// the model was trained on. Fields the snapshot cannot supply (window
// normalizations, account status) stay at their neutral values.
func buildState(conditions map[string]float64) []float64 {
	state := feature.ZeroState()
	state[1] = get(conditions, "price_change", 0)
	state[4] = get(conditions, "volatility", 0)
	state[5] = get(conditions, "rsi", 50) / 100
	state[6] = get(conditions, "macd", 0)
	state[7] = get(conditions, "macd_signal", 0)
	state[8] = get(conditions, "funding_rate", 0) * 1000
	state[9] = get(conditions, "funding_trend", 0) * 1000
	state[10] = get(conditions, "vwap_deviation", 0)
	state[12] = 0.5 // correlation placeholder matches training encoding
	return state
}

func get(conditions map[string]float64, key string, fallback float64) float64 {
	if v, ok := conditions[key]; ok {
		return v
	}
	return fallback
}

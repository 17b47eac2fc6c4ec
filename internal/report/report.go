// Package report generates trade analytics from simulated episodes.
package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/your-org/ppo-trade-agent/internal/env"
)

// Report holds the result of analyzing an episode's closed trades.
type Report struct {
	TotalTrades         int             `json:"total_trades"`
	WinningTrades       int             `json:"winning_trades"`
	LosingTrades        int             `json:"losing_trades"`
	WinRate             float64         `json:"win_rate"`
	LongTrades          int             `json:"long_trades"`
	LongWinningTrades   int             `json:"long_winning_trades"`
	LongWinRate         float64         `json:"long_win_rate"`
	ShortTrades         int             `json:"short_trades"`
	ShortWinningTrades  int             `json:"short_winning_trades"`
	ShortWinRate        float64         `json:"short_win_rate"`
	ForcedCloses        int             `json:"forced_closes"`
	TotalPnL            decimal.Decimal `json:"total_pnl"`
	TotalFees           decimal.Decimal `json:"total_fees"`
	AverageProfit       decimal.Decimal `json:"average_profit"`
	AverageLoss         decimal.Decimal `json:"average_loss"`
	ProfitFactor        float64         `json:"profit_factor"`
	RiskRewardRatio     float64         `json:"risk_reward_ratio"`
	MaxDrawdown         decimal.Decimal `json:"max_drawdown"`
	AverageHoldingSteps float64         `json:"average_holding_steps"`
	FinalEquity         float64         `json:"final_equity"`
	ReturnPct           float64         `json:"return_pct"`
}

// AnalyzeTrades builds a Report from a list of closed trades. PnL
// aggregation uses decimal arithmetic so the summary does not drift
// from the sum of its parts.
func AnalyzeTrades(trades []env.Trade, initialEquity, finalEquity float64) (Report, error) {
	if len(trades) == 0 {
		return Report{}, fmt.Errorf("no trades to analyze")
	}

	var r Report
	r.TotalTrades = len(trades)
	r.FinalEquity = finalEquity
	if initialEquity > 0 {
		r.ReturnPct = (finalEquity - initialEquity) / initialEquity * 100
	}

	var totalProfit, totalLoss decimal.Decimal
	var cumulative, peak, maxDrawdown decimal.Decimal
	totalHoldingSteps := 0

	for _, t := range trades {
		pnl := decimal.NewFromFloat(t.RealizedPnL)
		r.TotalPnL = r.TotalPnL.Add(pnl)
		r.TotalFees = r.TotalFees.Add(decimal.NewFromFloat(t.Fees))
		totalHoldingSteps += t.ExitStep - t.EntryStep
		if t.Forced {
			r.ForcedCloses++
		}

		win := t.RealizedPnL > 0
		if win {
			r.WinningTrades++
			totalProfit = totalProfit.Add(pnl)
		} else {
			r.LosingTrades++
			totalLoss = totalLoss.Add(pnl)
		}
		if t.Side == env.SideLong {
			r.LongTrades++
			if win {
				r.LongWinningTrades++
			}
		} else {
			r.ShortTrades++
			if win {
				r.ShortWinningTrades++
			}
		}

		cumulative = cumulative.Add(pnl)
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		if drawdown := peak.Sub(cumulative); drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}
	r.MaxDrawdown = maxDrawdown

	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	if r.LongTrades > 0 {
		r.LongWinRate = float64(r.LongWinningTrades) / float64(r.LongTrades)
	}
	if r.ShortTrades > 0 {
		r.ShortWinRate = float64(r.ShortWinningTrades) / float64(r.ShortTrades)
	}
	r.AverageHoldingSteps = float64(totalHoldingSteps) / float64(r.TotalTrades)

	if r.WinningTrades > 0 {
		r.AverageProfit = totalProfit.Div(decimal.NewFromInt(int64(r.WinningTrades)))
	}
	if r.LosingTrades > 0 {
		r.AverageLoss = totalLoss.Div(decimal.NewFromInt(int64(r.LosingTrades)))
	}
	if !totalLoss.IsZero() {
		lossAbs := totalLoss.Abs()
		r.ProfitFactor, _ = totalProfit.Div(lossAbs).Float64()
		if !r.AverageLoss.IsZero() {
			r.RiskRewardRatio, _ = r.AverageProfit.Div(r.AverageLoss.Abs()).Float64()
		}
	}

	return r, nil
}

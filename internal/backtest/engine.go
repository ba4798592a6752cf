// Package backtest replays a historical bar sequence through a set of
// indicator modules and the decision engine against a simulated single-asset
// portfolio.
package backtest

import (
	"github.com/Wame555/hesoyam/internal/decision"
	"github.com/Wame555/hesoyam/internal/market"
	"github.com/Wame555/hesoyam/internal/module"
)

// Config tunes one simulation run.
type Config struct {
	StartingCash  float64
	FeeRate       float64 // proportional, applied to notional on entry and exit
	PositionFrac  float64 // fraction of cash deployed per entry
	ThresholdUp   float64
	ThresholdDown float64
	Timeframe     market.Timeframe
}

// DefaultConfig mirrors the stock parameters: 10k bankroll, 4bp fee, 20% sizing.
func DefaultConfig() Config {
	return Config{
		StartingCash:  10_000.0,
		FeeRate:       0.0004,
		PositionFrac:  0.2,
		ThresholdUp:   decision.DefaultThresholdUp,
		ThresholdDown: decision.DefaultThresholdDown,
		Timeframe:     market.M5,
	}
}

// Result summarizes a finished simulation. The position is always flattened
// after the last bar, so FinalEquity equals final cash.
type Result struct {
	FinalEquity float64
	Trades      int
	MaxDrawdown float64 // fraction of peak equity
	EquityCurve []float64
}

// Engine drives one deterministic, single-threaded simulation. Modules are
// owned exclusively by the engine for the duration of a run and must be fresh
// (or reset) instances.
type Engine struct {
	cfg     Config
	modules []module.Module
	weights decision.Weights
	sym     market.Symbol
}

// NewEngine builds an engine over a caller-owned ordered module collection.
func NewEngine(cfg Config, mods []module.Module, weights decision.Weights, sym market.Symbol) *Engine {
	return &Engine{cfg: cfg, modules: mods, weights: weights, sym: sym}
}

// Run replays the bars in order and returns the final portfolio summary.
//
// A Long decision opens a position sized at PositionFrac of current cash when
// flat. A Short decision only ever flattens an open long; it never opens short
// inventory. That asymmetry is deliberate and load-bearing: downstream sizing
// and the position tracker both assume base quantity stays non-negative.
func (e *Engine) Run(bars []market.Bar) Result {
	cash := e.cfg.StartingCash
	var positionQty, entryPrice float64
	equityPeak := cash
	var maxDrawdown float64
	trades := 0

	scores := make(decision.Scores, len(e.modules))
	curve := make([]float64, 0, len(bars))

	for _, bar := range bars {
		for _, m := range e.modules {
			res := m.OnBar(e.sym, e.cfg.Timeframe, bar)
			scores[m.ID()] = res.Score
		}
		d := decision.Decide(scores, e.weights, e.cfg.ThresholdUp, e.cfg.ThresholdDown)

		switch {
		case d.Action == module.Long && positionQty <= 0:
			qty := cash * e.cfg.PositionFrac / bar.Close
			if qty > 0 {
				positionQty += qty
				cash -= qty * bar.Close
				cash -= qty * bar.Close * e.cfg.FeeRate
				entryPrice = bar.Close
			}
		case d.Action == module.Short && positionQty > 0:
			cash += positionQty * (bar.Close - entryPrice)
			cash -= positionQty * entryPrice * e.cfg.FeeRate
			cash -= positionQty * bar.Close * e.cfg.FeeRate
			positionQty = 0
			trades++
		}

		equity := cash + positionQty*bar.Close
		curve = append(curve, equity)
		if equity > equityPeak {
			equityPeak = equity
		}
		denom := equityPeak
		if denom < 1 {
			denom = 1
		}
		if dd := (equityPeak - equity) / denom; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}

	if positionQty > 0 && len(bars) > 0 {
		last := bars[len(bars)-1].Close
		cash += positionQty * last
		cash -= positionQty * entryPrice * e.cfg.FeeRate
		cash -= positionQty * last * e.cfg.FeeRate
		positionQty = 0
		trades++
	}

	return Result{
		FinalEquity: cash,
		Trades:      trades,
		MaxDrawdown: maxDrawdown,
		EquityCurve: curve,
	}
}

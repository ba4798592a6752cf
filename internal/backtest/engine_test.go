package backtest

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/Wame555/hesoyam/internal/decision"
	"github.com/Wame555/hesoyam/internal/market"
	"github.com/Wame555/hesoyam/internal/module"
)

var btSym = market.Symbol{Base: "BTC", Quote: "USDT"}

func defaultModules() []module.Module {
	return []module.Module{
		module.NewSmaEma(20, 50),
		module.NewRSI(14),
		module.NewBollinger(20, 2.0),
	}
}

func defaultWeights() decision.Weights {
	return decision.Weights{"SMA_EMA": 0.4, "RSI": 0.3, "BOLL": 0.3}
}

// trendingBars produces a long ramp followed by a slide so the cross module
// actually fires both entries and exits.
func trendingBars(n int) []market.Bar {
	bars := make([]market.Bar, 0, n)
	px := 100.0
	for i := 0; i < n; i++ {
		if i < n/2 {
			px *= 1.004
		} else {
			px *= 0.997
		}
		bars = append(bars, market.Bar{
			OpenTime: int64(i) * 300_000,
			Open:     px, High: px * 1.001, Low: px * 0.999, Close: px,
			Volume: 10,
		})
	}
	return bars
}

func TestRunIsDeterministic(t *testing.T) {
	bars := trendingBars(400)

	run := func() Result {
		engine := NewEngine(DefaultConfig(), defaultModules(), defaultWeights(), btSym)
		return engine.Run(bars)
	}

	first := run()
	second := run()
	if first.FinalEquity != second.FinalEquity {
		t.Fatalf("final equity differs: %.10f vs %.10f", first.FinalEquity, second.FinalEquity)
	}
	if first.Trades != second.Trades {
		t.Fatalf("trade count differs: %d vs %d", first.Trades, second.Trades)
	}
	if first.MaxDrawdown != second.MaxDrawdown {
		t.Fatalf("max drawdown differs: %.10f vs %.10f", first.MaxDrawdown, second.MaxDrawdown)
	}
}

func TestRunFlatMarketNeverTrades(t *testing.T) {
	bars := make([]market.Bar, 300)
	for i := range bars {
		bars[i] = market.Bar{OpenTime: int64(i) * 300_000, Open: 50, High: 50, Low: 50, Close: 50, Volume: 1}
	}
	engine := NewEngine(DefaultConfig(), defaultModules(), defaultWeights(), btSym)
	res := engine.Run(bars)
	if res.Trades != 0 {
		t.Fatalf("expected 0 trades in flat market, got %d", res.Trades)
	}
	if res.FinalEquity != DefaultConfig().StartingCash {
		t.Fatalf("expected untouched bankroll, got %.2f", res.FinalEquity)
	}
	if res.MaxDrawdown != 0 {
		t.Fatalf("expected zero drawdown, got %.6f", res.MaxDrawdown)
	}
}

func TestRunForceClosesOpenPosition(t *testing.T) {
	// strictly rising market: the long entry never gets a short flatten, so
	// the final force-close must account for the open position
	bars := make([]market.Bar, 400)
	px := 100.0
	for i := range bars {
		px *= 1.003
		bars[i] = market.Bar{OpenTime: int64(i) * 300_000, Open: px, High: px, Low: px, Close: px, Volume: 1}
	}
	engine := NewEngine(DefaultConfig(), defaultModules(), defaultWeights(), btSym)
	res := engine.Run(bars)
	if res.Trades == 0 {
		t.Fatalf("expected at least the force-close trade")
	}
	if len(res.EquityCurve) != len(bars) {
		t.Fatalf("equity curve length %d, want %d", len(res.EquityCurve), len(bars))
	}
}

func TestRunEmptyBars(t *testing.T) {
	engine := NewEngine(DefaultConfig(), defaultModules(), defaultWeights(), btSym)
	res := engine.Run(nil)
	if res.FinalEquity != DefaultConfig().StartingCash || res.Trades != 0 {
		t.Fatalf("unexpected result on empty input: %+v", res)
	}
}

func TestRunMaxDrawdownBounded(t *testing.T) {
	engine := NewEngine(DefaultConfig(), defaultModules(), defaultWeights(), btSym)
	res := engine.Run(trendingBars(600))
	if res.MaxDrawdown < 0 || res.MaxDrawdown > 1 {
		t.Fatalf("drawdown fraction out of range: %.6f", res.MaxDrawdown)
	}
	if math.IsNaN(res.FinalEquity) || math.IsInf(res.FinalEquity, 0) {
		t.Fatalf("non-finite final equity: %v", res.FinalEquity)
	}
}

func TestGridSearchEnumeratesAndRanks(t *testing.T) {
	bars := trendingBars(200)
	factory := func() []module.Module { return defaultModules() }
	ids := [3]string{"SMA_EMA", "RSI", "BOLL"}

	entries := GridSearch(DefaultConfig(), factory, ids, btSym, bars)
	if len(entries) != gridTopN {
		t.Fatalf("expected top %d entries, got %d", gridTopN, len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].FinalEquity > entries[i-1].FinalEquity {
			t.Fatalf("entries not sorted by equity desc at %d", i)
		}
	}
	for _, e := range entries {
		sum := e.W1 + e.W2 + e.W3
		if math.Abs(sum-1.0) > 1e-9 {
			t.Fatalf("weights do not sum to 1.0: %+v", e)
		}
		if e.W1 < 0.1 || e.W2 < 0.1 || e.W3 < 0.1 {
			t.Fatalf("zero weight leaked into grid: %+v", e)
		}
	}
}

func TestGridSearchEvaluatesAllCombinations(t *testing.T) {
	bars := trendingBars(60)
	var runs atomic.Int64
	factory := func() []module.Module {
		runs.Add(1)
		return defaultModules()
	}
	ids := [3]string{"SMA_EMA", "RSI", "BOLL"}

	GridSearch(DefaultConfig(), factory, ids, btSym, bars)

	// tenth-triples with i+j+k=10 and every component >= 1
	if got := runs.Load(); got != 36 {
		t.Fatalf("evaluated %d weight combinations, want 36", got)
	}
}

func TestGridSearchDeterministic(t *testing.T) {
	bars := trendingBars(150)
	factory := func() []module.Module { return defaultModules() }
	ids := [3]string{"SMA_EMA", "RSI", "BOLL"}

	first := GridSearch(DefaultConfig(), factory, ids, btSym, bars)
	second := GridSearch(DefaultConfig(), factory, ids, btSym, bars)
	if len(first) != len(second) {
		t.Fatalf("result lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("entry %d differs across runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

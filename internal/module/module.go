// Package module contains the stateful indicator modules that score incoming
// bars. Each module is a pure function of its own bar history: callers own an
// ordered collection of modules and advance every one of them exactly once per
// new, time-ordered bar.
package module

import "github.com/Wame555/hesoyam/internal/market"

// Signal expresses a module's directional bias for the latest bar.
type Signal int

const (
	Neutral Signal = iota
	Long
	Short
)

func (s Signal) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "WAIT"
	}
}

// Result is what a module reports after consuming one bar. Score is always in
// [0,100]; before WarmupBars observations the module reports the neutral
// default (score 50, Neutral) instead of a half-baked value.
type Result struct {
	Score      float64
	Signal     Signal
	WarmupBars int
}

// Module is the capability set every indicator implements. OnBar mutates
// internal rolling state and must be called from a single goroutine with bars
// in non-decreasing OpenTime order; modules perform no reordering themselves.
type Module interface {
	ID() string
	WarmupBars() int
	Reset()
	OnBar(sym market.Symbol, tf market.Timeframe, bar market.Bar) Result
}

// maxHistory caps every module's rolling close-price window.
const maxHistory = 2000

func neutral(warmup int) Result {
	return Result{Score: 50.0, Signal: Neutral, WarmupBars: warmup}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func pushCapped(history []float64, v float64, limit int) []float64 {
	history = append(history, v)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

// ema folds the whole series with smoothing 2/(period+1), seeded from the first
// sample. Matches the classic recursive definition rather than an SMA seed.
func ema(series []float64, period int) float64 {
	if len(series) == 0 {
		return 0
	}
	k := 2.0 / (float64(period) + 1.0)
	e := series[0]
	for i := 1; i < len(series); i++ {
		e = series[i]*k + e*(1.0-k)
	}
	return e
}

func sma(series []float64, period int) float64 {
	if len(series) < period {
		if len(series) == 0 {
			return 0
		}
		return series[len(series)-1]
	}
	var sum float64
	for i := len(series) - period; i < len(series); i++ {
		sum += series[i]
	}
	return sum / float64(period)
}

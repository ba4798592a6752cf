package module

import (
	"math"

	"github.com/Wame555/hesoyam/internal/market"
)

// MultiTF runs the fast/slow EMA cross on a synthetic higher timeframe built by
// collapsing every factor consecutive low-timeframe bars into one close. The
// synthetic close is simply the factor-th bar's close, not a true OHLC rollup —
// an approximation, but enough for a cross signal.
type MultiTF struct {
	factor     int
	fastPeriod int
	slowPeriod int

	lowCloses []float64
	hiCloses  []float64
}

// NewMultiTF builds the module; factor maps low to high timeframe (12: M5→H1).
func NewMultiTF(factor, fastPeriod, slowPeriod int) *MultiTF {
	if factor < 1 {
		factor = 1
	}
	return &MultiTF{factor: factor, fastPeriod: fastPeriod, slowPeriod: slowPeriod}
}

func (m *MultiTF) ID() string { return "MTF_SMA" }

func (m *MultiTF) WarmupBars() int {
	p := m.fastPeriod
	if m.slowPeriod > p {
		p = m.slowPeriod
	}
	return p + 3
}

func (m *MultiTF) Reset() {
	m.lowCloses = nil
	m.hiCloses = nil
}

func (m *MultiTF) OnBar(_ market.Symbol, _ market.Timeframe, bar market.Bar) Result {
	m.lowCloses = append(m.lowCloses, bar.Close)

	keep := m.factor * (m.slowPeriod + 50)
	if keep < 512 {
		keep = 512
	}
	if len(m.lowCloses) > keep {
		m.lowCloses = m.lowCloses[len(m.lowCloses)-keep:]
	}

	// every factor-th low bar closes one synthetic high-timeframe bar
	if len(m.lowCloses)%m.factor == 0 {
		m.hiCloses = pushCapped(m.hiCloses, bar.Close, m.slowPeriod+50)
	}

	if len(m.hiCloses) < m.WarmupBars() {
		return neutral(m.WarmupBars())
	}
	emaFast := ema(m.hiCloses, m.fastPeriod)
	emaSlow := ema(m.hiCloses, m.slowPeriod)
	diff := emaFast - emaSlow
	norm := 0.0
	if math.Abs(emaSlow) > 1e-12 {
		norm = diff / emaSlow
	}
	score := clamp(50.0+norm*5000.0, 0.0, 100.0)
	sig := Neutral
	switch {
	case diff > 0:
		sig = Long
	case diff < 0:
		sig = Short
	}
	return Result{Score: score, Signal: sig, WarmupBars: m.WarmupBars()}
}

package module

import (
	"math"

	"github.com/Wame555/hesoyam/internal/market"
)

// SmaEma scores the spread between a short and a long exponential moving
// average of the close price. A positive spread biases long, negative short;
// the score scales the relative spread around 50.
type SmaEma struct {
	shortPeriod int
	longPeriod  int
	closes      []float64
}

// NewSmaEma builds the cross module; (20, 50) are the stock periods.
func NewSmaEma(shortPeriod, longPeriod int) *SmaEma {
	return &SmaEma{shortPeriod: shortPeriod, longPeriod: longPeriod}
}

func (m *SmaEma) ID() string { return "SMA_EMA" }

func (m *SmaEma) WarmupBars() int {
	p := m.shortPeriod
	if m.longPeriod > p {
		p = m.longPeriod
	}
	return p + 5
}

func (m *SmaEma) Reset() { m.closes = nil }

func (m *SmaEma) OnBar(_ market.Symbol, _ market.Timeframe, bar market.Bar) Result {
	m.closes = pushCapped(m.closes, bar.Close, maxHistory)
	if len(m.closes) < m.WarmupBars() {
		return neutral(m.WarmupBars())
	}
	emaShort := ema(m.closes, m.shortPeriod)
	emaLong := ema(m.closes, m.longPeriod)
	diff := emaShort - emaLong
	norm := 0.0
	if math.Abs(emaLong) > 1e-12 {
		norm = diff / emaLong
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

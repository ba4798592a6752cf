package module

import (
	"math"

	"github.com/Wame555/hesoyam/internal/market"
)

// Bollinger scores how far the close sits inside its mean±k·stddev band.
// Touching the upper band biases short, the lower band long; pinned mid-band
// reads neutral.
type Bollinger struct {
	period int
	k      float64
	closes []float64
}

// NewBollinger builds the band module; (20, 2.0) are the stock parameters.
func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{period: period, k: k}
}

func (m *Bollinger) ID() string { return "BOLL" }

func (m *Bollinger) WarmupBars() int { return m.period + 5 }

func (m *Bollinger) Reset() { m.closes = nil }

func (m *Bollinger) OnBar(_ market.Symbol, _ market.Timeframe, bar market.Bar) Result {
	m.closes = pushCapped(m.closes, bar.Close, maxHistory)
	if len(m.closes) < m.WarmupBars() {
		return neutral(m.WarmupBars())
	}
	_, upper, lower := computeBands(m.closes, m.period, m.k)
	c := m.closes[len(m.closes)-1]
	pos := 0.5
	if upper != lower {
		pos = (c - lower) / (upper - lower)
	}
	pos = clamp(pos, 0, 1)
	score := (1 - pos) * 100
	if pos > 0.5 {
		score = pos * 100
	}
	sig := Neutral
	switch {
	case pos > 0.7:
		sig = Short
	case pos < 0.3:
		sig = Long
	}
	return Result{Score: clamp(score, 0, 100), Signal: sig, WarmupBars: m.WarmupBars()}
}

// computeBands returns the rolling mean and the k-sigma band around it.
// Population variance over the window, matching the usual band definition.
func computeBands(closes []float64, period int, k float64) (mid, upper, lower float64) {
	if len(closes) < period {
		last := 0.0
		if len(closes) > 0 {
			last = closes[len(closes)-1]
		}
		return last, last, last
	}
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		mid += closes[i]
	}
	mid /= float64(period)
	var variance float64
	for i := start; i < len(closes); i++ {
		d := closes[i] - mid
		variance += d * d
	}
	sd := math.Sqrt(math.Max(0, variance/float64(period)))
	return mid, mid + k*sd, mid - k*sd
}

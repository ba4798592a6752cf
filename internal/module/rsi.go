package module

import "github.com/Wame555/hesoyam/internal/market"

// RSI is a bounded momentum oscillator over the last period closes. The module
// treats overbought (>70) as a short bias and oversold (<30) as a long bias;
// mid-range readings score a flat 50.
type RSI struct {
	period int
	closes []float64
}

// NewRSI builds the oscillator; 14 is the stock period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (m *RSI) ID() string { return "RSI" }

func (m *RSI) WarmupBars() int {
	if m.period+1 > 20 {
		return m.period + 1
	}
	return 20
}

func (m *RSI) Reset() { m.closes = nil }

func (m *RSI) OnBar(_ market.Symbol, _ market.Timeframe, bar market.Bar) Result {
	m.closes = pushCapped(m.closes, bar.Close, maxHistory)
	if len(m.closes) < m.WarmupBars() {
		return neutral(m.WarmupBars())
	}
	rsi := computeRSI(m.closes, m.period)
	score := 50.0
	sig := Neutral
	switch {
	case rsi > 70:
		score = rsi
		sig = Short
	case rsi < 30:
		score = 100 - rsi
		sig = Long
	}
	return Result{Score: clamp(score, 0, 100), Signal: sig, WarmupBars: m.WarmupBars()}
}

// computeRSI sums gains and losses over the trailing period. A zero loss sum
// caps relative strength at 1000 instead of dividing by zero; a fully flat
// window reads 50.
func computeRSI(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 50.0
	}
	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d >= 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	if gains == 0 && losses == 0 {
		return 50.0
	}
	rs := 1000.0
	if losses != 0 {
		rs = gains / losses
	}
	rsi := 100.0 - 100.0/(1.0+rs)
	return clamp(rsi, 0, 100)
}

package module

import (
	"testing"

	"github.com/Wame555/hesoyam/internal/market"
)

var testSym = market.Symbol{Base: "BTC", Quote: "USDT"}

func feedCloses(m Module, closes []float64) Result {
	var res Result
	for i, c := range closes {
		bar := market.Bar{OpenTime: int64(i) * 60_000, Open: c, High: c, Low: c, Close: c, Volume: 1}
		res = m.OnBar(testSym, market.M5, bar)
	}
	return res
}

func TestWarmupReportsNeutralDefault(t *testing.T) {
	mods := []Module{
		NewSmaEma(20, 50),
		NewRSI(14),
		NewBollinger(20, 2.0),
		NewMultiTF(12, 10, 30),
	}
	for _, m := range mods {
		for i := 0; i < m.WarmupBars()-1; i++ {
			bar := market.Bar{OpenTime: int64(i) * 60_000, Close: 100 + float64(i)}
			res := m.OnBar(testSym, market.M5, bar)
			if res.Score != 50.0 || res.Signal != Neutral {
				t.Fatalf("%s: bar %d during warmup returned score=%.2f signal=%s",
					m.ID(), i, res.Score, res.Signal)
			}
		}
	}
}

func TestScoresStayBounded(t *testing.T) {
	// steep trend followed by a crash, enough to saturate every formula
	closes := make([]float64, 0, 300)
	px := 100.0
	for i := 0; i < 150; i++ {
		px *= 1.03
		closes = append(closes, px)
	}
	for i := 0; i < 150; i++ {
		px *= 0.96
		closes = append(closes, px)
	}

	mods := []Module{
		NewSmaEma(20, 50),
		NewRSI(14),
		NewBollinger(20, 2.0),
		NewMultiTF(3, 10, 30),
	}
	for _, m := range mods {
		for i, c := range closes {
			bar := market.Bar{OpenTime: int64(i) * 60_000, Close: c}
			res := m.OnBar(testSym, market.M5, bar)
			if res.Score < 0 || res.Score > 100 {
				t.Fatalf("%s: score %.4f out of range at bar %d", m.ID(), res.Score, i)
			}
		}
	}
}

func TestSmaEmaFlatSeriesIsNeutral(t *testing.T) {
	m := NewSmaEma(2, 3)
	var res Result
	for i := 0; i < 50; i++ {
		bar := market.Bar{OpenTime: int64(i) * 60_000, Close: 10.0}
		res = m.OnBar(testSym, market.M5, bar)
	}
	if res.Score != 50.0 {
		t.Fatalf("expected score 50 on flat series, got %.4f", res.Score)
	}
	if res.Signal != Neutral {
		t.Fatalf("expected neutral signal on flat series, got %s", res.Signal)
	}
}

func TestSmaEmaTrendDirection(t *testing.T) {
	up := make([]float64, 80)
	for i := range up {
		up[i] = 100 + float64(i)*2
	}
	if res := feedCloses(NewSmaEma(5, 10), up); res.Signal != Long {
		t.Fatalf("expected long on uptrend, got %s (score %.2f)", res.Signal, res.Score)
	}

	down := make([]float64, 80)
	for i := range down {
		down[i] = 300 - float64(i)*2
	}
	if res := feedCloses(NewSmaEma(5, 10), down); res.Signal != Short {
		t.Fatalf("expected short on downtrend, got %s (score %.2f)", res.Signal, res.Score)
	}
}

func TestRSIOverboughtSignalsShort(t *testing.T) {
	m := NewRSI(14)
	var sawShort bool
	for i := 0; i < 30; i++ {
		bar := market.Bar{OpenTime: int64(i) * 60_000, Close: 100 + float64(i)}
		res := m.OnBar(testSym, market.M5, bar)
		if res.Signal == Short {
			sawShort = true
			if res.Score <= 70 {
				t.Fatalf("short signal with score %.2f, expected >70", res.Score)
			}
		}
	}
	if !sawShort {
		t.Fatalf("expected a short signal from 30 strictly increasing closes")
	}
}

func TestRSIOversoldSignalsLong(t *testing.T) {
	m := NewRSI(14)
	var sawLong bool
	for i := 0; i < 30; i++ {
		bar := market.Bar{OpenTime: int64(i) * 60_000, Close: 200 - float64(i)}
		res := m.OnBar(testSym, market.M5, bar)
		if res.Signal == Long {
			sawLong = true
		}
	}
	if !sawLong {
		t.Fatalf("expected a long signal from strictly decreasing closes")
	}
}

func TestComputeRSIFlatWindow(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 42.0
	}
	if rsi := computeRSI(closes, 14); rsi != 50.0 {
		t.Fatalf("expected rsi 50 on flat window, got %.4f", rsi)
	}
}

func TestBollingerUpperBandSignalsShort(t *testing.T) {
	m := NewBollinger(20, 2.0)
	// settle inside the band, then spike through the top
	closes := make([]float64, 0, 40)
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			closes = append(closes, 100.0)
		} else {
			closes = append(closes, 100.5)
		}
	}
	closes = append(closes, 103, 104, 105)
	res := feedCloses(m, closes)
	if res.Signal != Short {
		t.Fatalf("expected short at upper band, got %s (score %.2f)", res.Signal, res.Score)
	}
	if res.Score <= 50 {
		t.Fatalf("expected elevated score at band edge, got %.2f", res.Score)
	}
}

func TestBollingerZeroWidthBandIsNeutral(t *testing.T) {
	m := NewBollinger(20, 2.0)
	var res Result
	for i := 0; i < 40; i++ {
		res = m.OnBar(testSym, market.M5, market.Bar{OpenTime: int64(i) * 60_000, Close: 55.0})
	}
	if res.Signal != Neutral || res.Score != 50.0 {
		t.Fatalf("expected neutral 50 on zero-width band, got %s %.2f", res.Signal, res.Score)
	}
}

func TestMultiTFNeedsSyntheticBars(t *testing.T) {
	m := NewMultiTF(4, 3, 5)
	// m.WarmupBars() synthetic bars require factor times as many low bars
	lowBarsNeeded := 4 * m.WarmupBars()
	for i := 0; i < lowBarsNeeded-1; i++ {
		res := m.OnBar(testSym, market.M5, market.Bar{OpenTime: int64(i) * 60_000, Close: 100 + float64(i)})
		if i < lowBarsNeeded-4 && (res.Score != 50.0 || res.Signal != Neutral) {
			t.Fatalf("expected neutral before enough synthetic bars at low bar %d", i)
		}
	}
}

func TestMultiTFTrendDirection(t *testing.T) {
	m := NewMultiTF(2, 3, 5)
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res := feedCloses(m, closes)
	if res.Signal != Long {
		t.Fatalf("expected long on synthetic uptrend, got %s", res.Signal)
	}
}

func TestResetClearsState(t *testing.T) {
	mods := []Module{
		NewSmaEma(5, 10),
		NewRSI(14),
		NewBollinger(20, 2.0),
		NewMultiTF(2, 3, 5),
	}
	for _, m := range mods {
		for i := 0; i < 100; i++ {
			m.OnBar(testSym, market.M5, market.Bar{OpenTime: int64(i) * 60_000, Close: 100 + float64(i)})
		}
		m.Reset()
		res := m.OnBar(testSym, market.M5, market.Bar{OpenTime: 0, Close: 100})
		if res.Score != 50.0 || res.Signal != Neutral {
			t.Fatalf("%s: expected neutral default after reset, got %.2f %s", m.ID(), res.Score, res.Signal)
		}
	}
}

func TestHistoryIsCapped(t *testing.T) {
	m := NewRSI(14)
	for i := 0; i < maxHistory+500; i++ {
		m.OnBar(testSym, market.M5, market.Bar{OpenTime: int64(i) * 60_000, Close: 100})
	}
	if len(m.closes) > maxHistory {
		t.Fatalf("history grew past cap: %d", len(m.closes))
	}
}

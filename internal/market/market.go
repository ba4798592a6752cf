// Package market standardizes the bar and tick payloads shared between data
// ingestion, indicator modules, and the backtest engine.
package market

import "fmt"

// Timeframe identifies the candle interval a bar belongs to.
type Timeframe string

const (
	M1  Timeframe = "1m"
	M3  Timeframe = "3m"
	M5  Timeframe = "5m"
	M15 Timeframe = "15m"
	M30 Timeframe = "30m"
	H1  Timeframe = "1h"
	H4  Timeframe = "4h"
	D1  Timeframe = "1d"
)

// Symbol is a base/quote asset pair.
type Symbol struct {
	Base  string
	Quote string
}

// Name returns the exchange-style concatenated pair name, e.g. BTCUSDT.
func (s Symbol) Name() string { return s.Base + s.Quote }

// ParseSymbol splits an exchange pair name into base and quote using the common
// 4-letter quote convention (USDT, BUSD, ...). Falls back to BTC/USDT shape when
// the name is too short to split.
func ParseSymbol(name string) Symbol {
	if len(name) > 4 {
		return Symbol{Base: name[:len(name)-4], Quote: name[len(name)-4:]}
	}
	return Symbol{Base: "BTC", Quote: "USDT"}
}

// Bar is one OHLCV sample. OpenTime is the kline open time in milliseconds;
// sequences fed to indicator modules must be non-decreasing in OpenTime.
type Bar struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

func (b Bar) String() string {
	return fmt.Sprintf("bar{t=%d o=%.4f h=%.4f l=%.4f c=%.4f v=%.4f}",
		b.OpenTime, b.Open, b.High, b.Low, b.Close, b.Volume)
}

// Tick is a lightweight last-price update used between closed bars.
type Tick struct {
	Symbol string
	Price  float64
	TsMs   int64
}

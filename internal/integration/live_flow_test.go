package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Wame555/hesoyam/internal/config"
	"github.com/Wame555/hesoyam/internal/exchange"
	"github.com/Wame555/hesoyam/internal/live"
	"github.com/Wame555/hesoyam/internal/market"
	"github.com/Wame555/hesoyam/internal/module"
	"github.com/Wame555/hesoyam/internal/position"
)

// TestLiveFlowOpensPosition runs the full paper wiring: stub feed to session
// to stub trader, and waits for the trending tape to open a long.
func TestLiveFlowOpensPosition(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := config.Default()
	cfg.Strategy.Weights = map[string]float64{"SMA_EMA": 1}
	cfg.Strategy.ThresholdUp = 52
	cfg.Strategy.ThresholdDown = 30
	cfg.Live.AttachBracket = false

	feed := exchange.NewFeed(exchange.ProviderStub, "BTCUSDT", market.M1, zerolog.Nop(),
		exchange.WithStubInterval(2*time.Millisecond))
	bars := make(chan market.Bar, 64)
	ticks := make(chan market.Tick, 64)
	go func() { _ = feed.Run(ctx, bars, ticks) }()

	trader := exchange.NewStubTrader(zerolog.Nop())
	tracker := position.NewTracker()
	mods := []module.Module{module.NewSmaEma(3, 5)}
	session := live.NewSession(cfg, mods, trader, tracker, zerolog.Nop())
	go session.Run(ctx, bars, ticks, nil, nil)

	for {
		pos := tracker.Get("BTCUSDT")
		if pos.BaseQty > 0 {
			if pos.AvgEntry <= 0 {
				t.Fatalf("position without entry price: %+v", pos)
			}
			if session.LastPrice("BTCUSDT") <= 0 {
				t.Fatalf("expected a mark price after fills")
			}
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timed out waiting for the session to open a position")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

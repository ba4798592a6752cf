package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Wame555/hesoyam/internal/market"
)

const (
	// ProviderStub emits deterministic synthetic bars (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live klines from Binance public websockets.
	ProviderBinance = "binance"
)

// Feed is a pluggable market data stream delivering closed bars and last-price
// ticks for one symbol/timeframe pair.
type Feed struct {
	provider  string
	symbol    string
	timeframe market.Timeframe
	log       zerolog.Logger

	stubInterval time.Duration
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithStubInterval overrides the synthetic provider's bar cadence.
func WithStubInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.stubInterval = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, symbol string, tf market.Timeframe, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		symbol:       strings.ToUpper(symbol),
		timeframe:    tf,
		log:          log,
		stubInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run pushes closed bars and ticks onto the provided channels until the
// context is canceled. Bars arrive in non-decreasing open-time order; the feed
// performs no dedup.
func (f *Feed) Run(ctx context.Context, bars chan<- market.Bar, ticks chan<- market.Tick) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, bars, ticks)
	default:
		return f.runStub(ctx, bars, ticks)
	}
}

// runStub synthesizes a gently trending tape so downstream wiring can be
// exercised without a venue.
func (f *Feed) runStub(ctx context.Context, bars chan<- market.Bar, ticks chan<- market.Tick) error {
	ticker := time.NewTicker(f.stubInterval)
	defer ticker.Stop()

	px := 100.0
	openTime := time.Now().UnixMilli()
	step := int64(f.stubInterval / time.Millisecond)
	if step <= 0 {
		step = 1
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			px += 0.1
			openTime += step
			bar := market.Bar{
				OpenTime: openTime,
				Open:     px - 0.1, High: px + 0.05, Low: px - 0.15, Close: px,
				Volume: 1,
			}
			select {
			case bars <- bar:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case ticks <- market.Tick{Symbol: f.symbol, Price: px, TsMs: openTime}:
			default:
				// tick channel full: last price is advisory, drop it
			}
		}
	}
}

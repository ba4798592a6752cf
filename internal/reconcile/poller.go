// Package reconcile bridges asynchronous exchange order state into the
// position tracker. A timer-driven poller fetches each tracked order's
// executed quantity and applies only the delta since the last observation, so
// re-polling an unchanged order is a no-op.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Wame555/hesoyam/internal/exchange"
	"github.com/Wame555/hesoyam/internal/metrics"
	"github.com/Wame555/hesoyam/internal/position"
)

// TrackedOrder is one order the poller still expects fills from.
type TrackedOrder struct {
	ID           int64
	Symbol       string
	Side         exchange.Side
	LastExecuted float64
}

// MarkSource supplies the best currently-known market price. Fill deltas are
// applied at this mark rather than the true fill price, a documented
// approximation the caller accepts.
type MarkSource interface {
	LastPrice(symbol string) float64
}

// Poller polls tracked orders and reconciles executed-quantity deltas into the
// position tracker.
type Poller struct {
	trader   exchange.Trader
	tracker  *position.Tracker
	marks    MarkSource
	log      zerolog.Logger
	interval time.Duration

	mu      sync.Mutex
	tracked []TrackedOrder
}

// NewPoller builds a poller with the given cadence (2s is the stock value).
func NewPoller(trader exchange.Trader, tracker *position.Tracker, marks MarkSource, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		trader:   trader,
		tracker:  tracker,
		marks:    marks,
		log:      log,
		interval: interval,
	}
}

// Track registers an order for fill reconciliation.
func (p *Poller) Track(order TrackedOrder) {
	p.mu.Lock()
	p.tracked = append(p.tracked, order)
	p.mu.Unlock()
}

// TrackedCount reports how many orders still await terminal status.
func (p *Poller) TrackedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tracked)
}

// Run polls until the context is canceled. In-flight venue calls are not
// aborted mid-cycle; they simply are not rescheduled after cancellation.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce fetches every tracked order's state and applies fill deltas.
// Exposed for deterministic tests and for manual refresh.
func (p *Poller) PollOnce(ctx context.Context) {
	p.mu.Lock()
	tracked := make([]TrackedOrder, len(p.tracked))
	copy(tracked, p.tracked)
	p.mu.Unlock()

	keep := tracked[:0]
	for _, order := range tracked {
		info, err := p.trader.GetOrder(ctx, order.Symbol, order.ID)
		if err != nil {
			// transient venue failure: keep the order, try again next cycle
			p.log.Warn().Err(err).Int64("order_id", order.ID).Msg("order poll failed")
			keep = append(keep, order)
			continue
		}
		if info == nil {
			// order vanished from the venue's books; nothing left to reconcile
			p.log.Warn().Int64("order_id", order.ID).Msg("tracked order not found, dropping")
			continue
		}

		delta := info.ExecutedQty - order.LastExecuted
		if delta > 0 {
			price := p.marks.LastPrice(order.Symbol)
			switch order.Side {
			case exchange.Buy:
				p.tracker.OnFillBuy(order.Symbol, delta, price)
			default:
				p.tracker.OnFillSell(order.Symbol, delta, price)
			}
			metrics.FillsTotal.WithLabelValues(order.Symbol, string(order.Side), "poll").Inc()
			p.log.Info().Int64("order_id", order.ID).Str("side", string(order.Side)).
				Float64("delta", delta).Float64("px", price).Msg("fill delta applied")
			order.LastExecuted = info.ExecutedQty
		}

		if info.Status.Terminal() {
			continue
		}
		keep = append(keep, order)
	}

	p.mu.Lock()
	// preserve orders registered while this cycle ran
	added := p.tracked[len(tracked):]
	p.tracked = append(keep, added...)
	p.mu.Unlock()
}

// Package live runs the trading session: it consumes market bars, scores them
// through the indicator modules, aggregates a decision, and routes orders
// through the venue with risk gating, bracket attachment, and fill
// reconciliation.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Wame555/hesoyam/internal/config"
	"github.com/Wame555/hesoyam/internal/decision"
	"github.com/Wame555/hesoyam/internal/exchange"
	"github.com/Wame555/hesoyam/internal/market"
	"github.com/Wame555/hesoyam/internal/metrics"
	"github.com/Wame555/hesoyam/internal/module"
	"github.com/Wame555/hesoyam/internal/notify"
	"github.com/Wame555/hesoyam/internal/position"
	"github.com/Wame555/hesoyam/internal/reconcile"
	"github.com/Wame555/hesoyam/internal/risk"
)

// orderLogCap bounds the in-memory order event log; older entries are dropped.
const orderLogCap = 256

// OrderEvent is one entry of the session's rolling order log.
type OrderEvent struct {
	TsMs    int64
	Symbol  string
	Side    exchange.Side
	OrderID int64
	Qty     float64
	Price   float64
	Note    string
}

// Session is the live trading core. All bar, tick, fill, and balance events
// funnel through one consumer goroutine in Run, so module state and decision
// logic never need locking. Only the mark/balance/event accessors, which other
// goroutines read, sit behind the mutex.
type Session struct {
	log      zerolog.Logger
	cfg      *config.Config
	sym      market.Symbol
	tf       market.Timeframe
	modules  []module.Module
	weights  decision.Weights
	trader   exchange.Trader
	tracker  *position.Tracker
	poller   *reconcile.Poller
	manager  *risk.Manager
	limits   risk.Limits
	notifier *notify.Notifier
	recorder *JSONLRecorder

	// set when the trader is paper-style and prices itself off session marks
	markFwd markSetter

	mu       sync.Mutex
	marks    map[string]float64
	balances map[string]float64
	events   []OrderEvent
}

// markSetter is implemented by traders that fill at an externally supplied
// mark, such as the stub.
type markSetter interface {
	SetMark(symbol string, price float64)
}

// NewSession wires a session from configuration. The order poller is built
// internally with the session as its mark source. A fills path that cannot be
// opened is logged and skipped rather than fatal.
func NewSession(cfg *config.Config, mods []module.Module, trader exchange.Trader, tracker *position.Tracker, log zerolog.Logger) *Session {
	s := &Session{
		log:      log,
		cfg:      cfg,
		sym:      market.ParseSymbol(cfg.Exchange.Symbol),
		tf:       market.Timeframe(cfg.Exchange.Timeframe),
		modules:  mods,
		weights:  decision.Weights(cfg.Strategy.Weights),
		trader:   trader,
		tracker:  tracker,
		manager:  risk.NewManager(cfg.Risk.MaxDailyLossPct),
		limits:   risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade},
		notifier: notify.New(cfg.Live.WebhookURL),
		marks:    make(map[string]float64),
		balances: make(map[string]float64),
	}
	if fwd, ok := trader.(markSetter); ok {
		s.markFwd = fwd
	}
	interval := time.Duration(cfg.Live.PollIntervalSec * float64(time.Second))
	s.poller = reconcile.NewPoller(trader, tracker, s, interval, log)
	if cfg.Live.FillsPath != "" {
		rec, err := NewJSONLRecorder(cfg.Live.FillsPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Live.FillsPath).Msg("fill recorder disabled")
		} else {
			s.recorder = rec
		}
	}
	return s
}

// Poller exposes the internal order poller.
func (s *Session) Poller() *reconcile.Poller { return s.poller }

// LastPrice returns the best currently-known price for symbol, zero when no
// tick or bar has been seen yet. Implements reconcile.MarkSource.
func (s *Session) LastPrice(symbol string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marks[symbol]
}

// Balances returns a snapshot of the cumulative asset deltas observed on the
// user stream.
func (s *Session) Balances() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.balances))
	for asset, delta := range s.balances {
		out[asset] = delta
	}
	return out
}

// Events returns a snapshot of the rolling order log, oldest first.
func (s *Session) Events() []OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OrderEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Run drives the session until ctx is canceled. The order poller runs
// alongside on its own goroutine; everything else happens on this one. Nil
// channels are legal and simply never fire.
func (s *Session) Run(ctx context.Context, bars <-chan market.Bar, ticks <-chan market.Tick, fills <-chan exchange.ExecUpdate, balances <-chan exchange.BalanceDelta) {
	go s.poller.Run(ctx)
	s.log.Info().Str("symbol", s.sym.Name()).Str("timeframe", string(s.tf)).Msg("session started")
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case tk := <-ticks:
			s.setMark(tk.Symbol, tk.Price)
		case bar := <-bars:
			s.onBar(ctx, bar)
		case fill := <-fills:
			s.onExec(fill)
		case delta := <-balances:
			s.onBalance(delta)
		}
	}
}

func (s *Session) shutdown() {
	if s.recorder != nil {
		_ = s.recorder.Close()
	}
	s.log.Info().Msg("session stopped")
}

func (s *Session) setMark(symbol string, price float64) {
	s.mu.Lock()
	s.marks[symbol] = price
	s.mu.Unlock()
	if s.markFwd != nil {
		s.markFwd.SetMark(symbol, price)
	}
}

// onBar advances every module on the closed bar, aggregates the weighted
// decision, and acts on it.
func (s *Session) onBar(ctx context.Context, bar market.Bar) {
	s.setMark(s.sym.Name(), bar.Close)

	scores := make(decision.Scores, len(s.modules))
	for _, mod := range s.modules {
		res := mod.OnBar(s.sym, s.tf, bar)
		scores[mod.ID()] = res.Score
	}
	d := decision.Decide(scores, s.weights, s.cfg.Strategy.ThresholdUp, s.cfg.Strategy.ThresholdDown)
	s.log.Debug().
		Float64("close", bar.Close).
		Float64("combined", d.CombinedScore).
		Str("action", d.Action.String()).
		Msg("bar scored")

	pos := s.tracker.Get(s.sym.Name())
	switch d.Action {
	case module.Long:
		if pos.BaseQty <= 0 {
			s.openLong(ctx, d.CombinedScore)
		}
	case module.Short:
		// A short signal only flattens an existing long; the session never
		// holds a net short inventory.
		if pos.BaseQty > 0 {
			s.closeLong(ctx, pos)
		}
	}
}

// openLong submits a quote-sized market buy, applies any immediate fill, and
// hands the order to the poller for residual reconciliation.
func (s *Session) openLong(ctx context.Context, score float64) {
	name := s.sym.Name()
	quote := s.cfg.Live.OrderQuoteAmount
	if !s.limits.Allow(quote) || !s.manager.AllowTrade() {
		metrics.RiskRejectsTotal.Inc()
		s.log.Warn().Float64("quote", quote).Msg("risk gate rejected entry")
		return
	}

	res, err := s.trader.MarketBuy(ctx, name, quote)
	if err != nil {
		s.log.Error().Err(err).Msg("market buy failed")
		return
	}
	metrics.OrdersTotal.WithLabelValues(name, string(exchange.Buy)).Inc()

	mark := s.LastPrice(name)
	if res.FilledBaseQty > 0 {
		s.applyFill(name, exchange.Buy, res.FilledBaseQty, mark, "order")
	}
	s.poller.Track(reconcile.TrackedOrder{
		ID:           res.OrderID,
		Symbol:       name,
		Side:         exchange.Buy,
		LastExecuted: res.FilledBaseQty,
	})
	s.addEvent(OrderEvent{
		TsMs:    time.Now().UnixMilli(),
		Symbol:  name,
		Side:    exchange.Buy,
		OrderID: res.OrderID,
		Qty:     res.FilledBaseQty,
		Price:   mark,
		Note:    "entry",
	})
	if s.notifier.Enabled() {
		go func() { _ = s.notifier.Send("entry", name+" LONG") }()
	}
	s.log.Info().Int64("order_id", res.OrderID).Float64("qty", res.FilledBaseQty).Float64("score", score).Msg("long opened")

	if s.cfg.Live.AttachBracket && res.FilledBaseQty > 0 && mark > 0 {
		s.attachBracket(ctx, res.FilledBaseQty, mark)
	}
}

// attachBracket places the OCO take-profit/stop pair protecting a fresh long.
func (s *Session) attachBracket(ctx context.Context, baseQty, entry float64) {
	name := s.sym.Name()
	takeProfit := entry * (1 + s.cfg.Live.TakeProfitPct/100)
	stopPrice := entry * (1 - s.cfg.Live.StopLossPct/100)
	stopLimit := stopPrice * 0.999

	oco, err := s.trader.OcoSellBracket(ctx, name, baseQty, takeProfit, stopPrice, stopLimit)
	if err != nil {
		s.log.Error().Err(err).Msg("bracket attach failed")
		return
	}
	for _, id := range oco.OrderIDs {
		s.poller.Track(reconcile.TrackedOrder{ID: id, Symbol: name, Side: exchange.Sell})
	}
	s.log.Info().Ints64("order_ids", oco.OrderIDs).
		Float64("take_profit", takeProfit).
		Float64("stop", stopPrice).
		Msg("bracket attached")
}

// closeLong is the smart close: cancel whatever bracket legs still rest, then
// market-sell the net base quantity. A realized loss is charged against the
// daily loss budget.
func (s *Session) closeLong(ctx context.Context, pos position.NetPosition) {
	name := s.sym.Name()
	mark := s.LastPrice(name)
	if mark <= 0 {
		s.log.Warn().Msg("no mark price, close skipped")
		return
	}

	if err := s.trader.CancelAllOpenOrders(ctx, name); err != nil {
		s.log.Warn().Err(err).Msg("cancel open orders failed")
	}
	res, err := s.trader.MarketSell(ctx, name, pos.BaseQty*mark)
	if err != nil {
		s.log.Error().Err(err).Msg("market sell failed")
		return
	}
	metrics.OrdersTotal.WithLabelValues(name, string(exchange.Sell)).Inc()

	if res.FilledBaseQty > 0 {
		s.applyFill(name, exchange.Sell, res.FilledBaseQty, mark, "order")
		if pos.AvgEntry > 0 && mark < pos.AvgEntry {
			s.manager.AddLossPct((pos.AvgEntry - mark) / pos.AvgEntry * 100)
		}
	}
	s.poller.Track(reconcile.TrackedOrder{
		ID:           res.OrderID,
		Symbol:       name,
		Side:         exchange.Sell,
		LastExecuted: res.FilledBaseQty,
	})
	s.addEvent(OrderEvent{
		TsMs:    time.Now().UnixMilli(),
		Symbol:  name,
		Side:    exchange.Sell,
		OrderID: res.OrderID,
		Qty:     res.FilledBaseQty,
		Price:   mark,
		Note:    "close",
	})
	if s.notifier.Enabled() {
		go func() { _ = s.notifier.Send("close", name+" flat") }()
	}
	s.log.Info().Int64("order_id", res.OrderID).Float64("qty", res.FilledBaseQty).Msg("long closed")
}

// CloseAll flattens any open position regardless of the current decision.
// Intended for operator-initiated shutdown.
func (s *Session) CloseAll(ctx context.Context) {
	pos := s.tracker.Get(s.sym.Name())
	if pos.BaseQty > 0 {
		s.closeLong(ctx, pos)
	}
}

// applyFill routes one executed quantity into the tracker, the audit file,
// and the fill counter.
func (s *Session) applyFill(symbol string, side exchange.Side, qty, price float64, source string) {
	if side == exchange.Buy {
		s.tracker.OnFillBuy(symbol, qty, price)
	} else {
		s.tracker.OnFillSell(symbol, qty, price)
	}
	metrics.FillsTotal.WithLabelValues(symbol, string(side), source).Inc()
	if s.recorder != nil {
		s.recorder.Record(Fill{
			TsMs:   time.Now().UnixMilli(),
			Symbol: symbol,
			Side:   string(side),
			Qty:    qty,
			Price:  price,
			Source: source,
		})
	}
}

// onExec applies an execution report from the user stream. The stream carries
// fills from orders the session does not track (manual orders, bracket legs
// filled on the venue); tracked-order progress is reconciled by the poller
// before these arrive, so the two sources cover disjoint executions.
func (s *Session) onExec(fill exchange.ExecUpdate) {
	s.log.Info().
		Str("symbol", fill.Symbol).
		Str("side", string(fill.Side)).
		Float64("qty", fill.LastQty).
		Float64("price", fill.LastPrice).
		Msg("stream fill")
	s.applyFill(fill.Symbol, fill.Side, fill.LastQty, fill.LastPrice, "stream")
}

func (s *Session) onBalance(delta exchange.BalanceDelta) {
	s.mu.Lock()
	s.balances[delta.Asset] += delta.Delta
	s.mu.Unlock()
	s.log.Debug().Str("asset", delta.Asset).Float64("delta", delta.Delta).Msg("balance update")
}

func (s *Session) addEvent(ev OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == orderLogCap {
		copy(s.events, s.events[1:])
		s.events = s.events[:orderLogCap-1]
	}
	s.events = append(s.events, ev)
}

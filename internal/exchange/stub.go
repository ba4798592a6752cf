package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StubTrader is an in-memory Trader used by tests and by the live binary's
// default dry mode. Market orders fill instantly at the current mark price;
// bracket legs rest as open orders until canceled.
type StubTrader struct {
	mu     sync.Mutex
	log    zerolog.Logger
	nextID int64
	marks  map[string]float64
	orders map[int64]OrderInfo
}

// NewStubTrader builds an empty stub venue.
func NewStubTrader(log zerolog.Logger) *StubTrader {
	return &StubTrader{
		log:    log,
		nextID: 1,
		marks:  make(map[string]float64),
		orders: make(map[int64]OrderInfo),
	}
}

// SetMark sets the price market orders fill at for a symbol.
func (s *StubTrader) SetMark(symbol string, price float64) {
	s.mu.Lock()
	s.marks[symbol] = price
	s.mu.Unlock()
}

func (s *StubTrader) market(symbol string, side Side, quoteAmount float64) (MarketResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mark := s.marks[symbol]
	if mark <= 0 {
		return MarketResult{}, fmt.Errorf("no mark price for %s", symbol)
	}
	if quoteAmount <= 0 {
		return MarketResult{}, fmt.Errorf("quote amount must be positive")
	}
	id := s.nextID
	s.nextID++
	qty := quoteAmount / mark
	clientID := uuid.NewString()
	s.orders[id] = OrderInfo{
		OrderID: id, ClientOrderID: clientID, Symbol: symbol, Side: side, Type: "MARKET",
		Status: StatusFilled, Price: mark, OrigQty: qty, ExecutedQty: qty,
	}
	s.log.Debug().Int64("order_id", id).Str("sym", symbol).Str("side", string(side)).
		Str("client_id", clientID).Float64("qty", qty).Float64("px", mark).
		Msg("stub market fill")
	return MarketResult{OrderID: id, FilledBaseQty: qty}, nil
}

func (s *StubTrader) MarketBuy(_ context.Context, symbol string, quoteAmount float64) (MarketResult, error) {
	return s.market(symbol, Buy, quoteAmount)
}

func (s *StubTrader) MarketSell(_ context.Context, symbol string, quoteAmount float64) (MarketResult, error) {
	return s.market(symbol, Sell, quoteAmount)
}

func (s *StubTrader) OcoSellBracket(_ context.Context, symbol string, baseQty, takeProfit, _, stopLimitPrice float64) (OcoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if baseQty <= 0 {
		return OcoResult{}, fmt.Errorf("base qty must be positive")
	}
	tpID, slID := s.nextID, s.nextID+1
	s.nextID += 2
	s.orders[tpID] = OrderInfo{
		OrderID: tpID, Symbol: symbol, Side: Sell, Type: "LIMIT_MAKER",
		Status: StatusNew, Price: takeProfit, OrigQty: baseQty,
	}
	s.orders[slID] = OrderInfo{
		OrderID: slID, Symbol: symbol, Side: Sell, Type: "STOP_LOSS_LIMIT",
		Status: StatusNew, Price: stopLimitPrice, OrigQty: baseQty,
	}
	return OcoResult{OrderIDs: []int64{tpID, slID}}, nil
}

func (s *StubTrader) OpenOrders(_ context.Context, symbol string) ([]OrderInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OrderInfo
	for _, o := range s.orders {
		if o.Symbol == symbol && !o.Status.Terminal() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *StubTrader) GetOrder(_ context.Context, _ string, orderID int64) (*OrderInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := o
	return &copied, nil
}

func (s *StubTrader) CancelOrder(_ context.Context, _ string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown order %d", orderID)
	}
	if !o.Status.Terminal() {
		o.Status = StatusCanceled
		s.orders[orderID] = o
	}
	return nil
}

func (s *StubTrader) CancelAllOpenOrders(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.orders {
		if o.Symbol == symbol && !o.Status.Terminal() {
			o.Status = StatusCanceled
			s.orders[id] = o
		}
	}
	return nil
}

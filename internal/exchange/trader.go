// Package exchange hosts the venue collaborators: the trading API surface the
// core consumes, a synthetic stub implementation, and the websocket market and
// user-data streams.
package exchange

import "context"

// Side enumerates order directions.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderStatus mirrors the venue's order lifecycle states.
type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
	StatusUnknown         OrderStatus = "UNKNOWN"
)

// Terminal reports whether the order can never fill further.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// OrderInfo is the venue's view of one order.
type OrderInfo struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          Side
	Type          string
	Status        OrderStatus
	Price         float64
	OrigQty       float64
	ExecutedQty   float64
}

// MarketResult reports a market order placement: the assigned order id and the
// base quantity filled immediately. A failed placement surfaces as a zero
// result plus the error; callers make no position change in that case.
type MarketResult struct {
	OrderID       int64
	FilledBaseQty float64
}

// OcoResult lists the order ids created for a bracket (take-profit leg plus
// stop leg).
type OcoResult struct {
	OrderIDs []int64
}

// Trader is the trading surface of the venue. Market orders are sized by quote
// amount (e.g. USDT); the bracket is sized in base quantity. Implementations
// absorb transport and response-shape failures and report them as errors with
// zero results.
type Trader interface {
	MarketBuy(ctx context.Context, symbol string, quoteAmount float64) (MarketResult, error)
	MarketSell(ctx context.Context, symbol string, quoteAmount float64) (MarketResult, error)
	OcoSellBracket(ctx context.Context, symbol string, baseQty, takeProfit, stopPrice, stopLimitPrice float64) (OcoResult, error)
	OpenOrders(ctx context.Context, symbol string) ([]OrderInfo, error)
	GetOrder(ctx context.Context, symbol string, orderID int64) (*OrderInfo, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	CancelAllOpenOrders(ctx context.Context, symbol string) error
}

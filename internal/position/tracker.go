// Package position tracks per-symbol net quantity and weighted average entry
// price from the fill stream.
package position

import "sync"

// epsilon is the dust threshold below which a position counts as flat.
const epsilon = 1e-12

// NetPosition is the aggregate holding in one symbol. BaseQty stays
// non-negative: this design tracks no short inventory.
type NetPosition struct {
	BaseQty  float64
	AvgEntry float64
}

// Tracker is safe for concurrent use. In a live session both the order poller
// and the user-data stream apply fills, so every mutation runs under the lock.
type Tracker struct {
	mu        sync.Mutex
	positions map[string]NetPosition
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{positions: make(map[string]NetPosition)}
}

// OnFillBuy folds a buy fill into the symbol's position, recomputing the
// weighted average entry price.
func (t *Tracker) OnFillBuy(symbol string, qty, price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.positions[symbol]
	newQty := p.BaseQty + qty
	if newQty <= 0 {
		t.positions[symbol] = NetPosition{}
		return
	}
	p.AvgEntry = (p.BaseQty*p.AvgEntry + qty*price) / newQty
	p.BaseQty = newQty
	t.positions[symbol] = p
}

// OnFillSell reduces the symbol's quantity. The average entry is left
// unchanged; realized P&L is the caller's concern. Dropping to dust resets
// both fields to exactly zero.
func (t *Tracker) OnFillSell(symbol string, qty, price float64) {
	_ = price
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.positions[symbol]
	if !ok {
		return
	}
	p.BaseQty -= qty
	if p.BaseQty <= epsilon {
		p = NetPosition{}
	}
	t.positions[symbol] = p
}

// Get returns the stored position, or the zero value for unseen symbols.
func (t *Tracker) Get(symbol string) NetPosition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positions[symbol]
}

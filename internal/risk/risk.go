// Package risk holds the guard-rails consulted before any live order leaves
// the process.
package risk

import (
	"sync"
	"time"
)

// Limits caps how much size a single order may take on.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether the given notional fits inside the per-trade cap.
func (l Limits) Allow(notional float64) bool {
	return notional <= l.MaxNotionalPerTrade
}

// Manager gates trading on an accumulated daily loss percentage. The
// accumulator resets exactly once when the calendar day changes, never
// mid-day. This is a coarse gate, not a precise ledger: callers compute and
// supply realized loss percentages themselves, and the AllowTrade/AddLossPct
// pair is deliberately not atomic across the gap between the two calls.
type Manager struct {
	mu              sync.Mutex
	maxDailyLossPct float64
	dailyLossPct    float64
	dayKey          int
	now             func() time.Time
}

// NewManager builds a gate with the given daily loss budget in percent.
func NewManager(maxDailyLossPct float64) *Manager {
	return NewManagerWithClock(maxDailyLossPct, time.Now)
}

// NewManagerWithClock injects the clock so day-rollover tests stay
// deterministic.
func NewManagerWithClock(maxDailyLossPct float64, now func() time.Time) *Manager {
	m := &Manager{maxDailyLossPct: maxDailyLossPct, now: now}
	m.dayKey = m.todayKey()
	return m
}

// MaxDailyLossPct returns the configured budget.
func (m *Manager) MaxDailyLossPct() float64 { return m.maxDailyLossPct }

// AllowTrade rolls the day over if needed, then reports whether the
// accumulated loss is still under budget. It never blocks.
func (m *Manager) AllowTrade() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	return m.dailyLossPct < m.maxDailyLossPct
}

// AddLossPct folds a realized loss percentage into the day's accumulator.
func (m *Manager) AddLossPct(pct float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	m.dailyLossPct += pct
}

// ForceResetDay unconditionally zeroes the accumulator and refreshes the day.
func (m *Manager) ForceResetDay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyLossPct = 0
	m.dayKey = m.todayKey()
}

func (m *Manager) rollover() {
	if key := m.todayKey(); key != m.dayKey {
		m.dayKey = key
		m.dailyLossPct = 0
	}
}

func (m *Manager) todayKey() int {
	t := m.now()
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

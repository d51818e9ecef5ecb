// Package mirror implements the exchange state mirror: the in-memory,
// periodically-reconciled view of balances, open orders, tickers, books,
// and trades that every strategy reads and mutates through. It is the
// central contract between the exchange adapter and the strategy layer.
package mirror

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
)

// Config carries the exchange-account settings the mirror needs: fee rate,
// fiat currency, and whether to run in simulation mode.
type Config struct {
	ExchangeID      string
	Simulation      bool
	Fee             decimal.Decimal
	FiatCurrency    string
	ForceAutoCancel bool
	MaxSyncAge      int64 // milliseconds
	Reserves        map[string]decimal.Decimal
	MinDealAmounts  map[string]decimal.Decimal
}

// EventRecorder persists structured lifecycle events raised by the mirror.
// Satisfied by *internal/events.Recorder.
type EventRecorder interface {
	Record(ctx context.Context, exchangeID, eventType string, data map[string]any)
}

func (c Config) reserveOf(currency string) decimal.Decimal {
	if v, ok := c.Reserves[currency]; ok {
		return v
	}
	return decimal.Zero
}

// MinDealAmountOf returns the configured minimum deal amount for a market.
func (c Config) MinDealAmountOf(market string) decimal.Decimal {
	if v, ok := c.MinDealAmounts[market]; ok {
		return v
	}
	return decimal.Zero
}

// State is the exchange state mirror. All exported methods are safe for
// concurrent use; callers never need their own lock around mirror calls.
type State struct {
	cfg    Config
	client exchange.Client
	log    observability.Logger

	mu sync.RWMutex

	balances map[string]*model.Balance // currency -> balance
	tickers  map[string]model.Ticker   // market -> ticker
	books    map[string]model.OrderBook
	trades   map[string][]model.Trade

	openOrders      map[string]map[string]*model.Order // market -> id -> order
	closedOrders    map[string]map[string]*model.Order
	cancelledOrders map[string]map[string]*model.Order

	lockdown bool

	events   chan Event
	recorder EventRecorder
}

// New constructs a mirror bound to client, using cfg for accounting
// defaults. log may be nil, in which case observability.Log() is used.
func New(cfg Config, client exchange.Client, log observability.Logger) *State {
	if log == nil {
		log = observability.Log()
	}
	return &State{
		cfg:             cfg,
		client:          client,
		log:             log,
		balances:        make(map[string]*model.Balance),
		tickers:         make(map[string]model.Ticker),
		books:           make(map[string]model.OrderBook),
		trades:          make(map[string][]model.Trade),
		openOrders:      make(map[string]map[string]*model.Order),
		closedOrders:    make(map[string]map[string]*model.Order),
		cancelledOrders: make(map[string]map[string]*model.Order),
		events:          make(chan Event, 256),
	}
}

// Events returns the channel the mirror publishes lifecycle events on
// (order created/filled/cancelled, reconciliation mismatches, lockdown).
func (s *State) Events() <-chan Event {
	return s.events
}

// SetRecorder wires an EventRecorder that persists every emitted event
// alongside the in-process Events() channel. Must be called before the
// mirror starts handling requests; nil disables persistence.
func (s *State) SetRecorder(r EventRecorder) {
	s.recorder = r
}

func (s *State) emit(evt Event) {
	select {
	case s.events <- evt:
	default:
		s.log.Error("mirror event dropped, channel full", observability.Field{Key: "type", Value: evt.Type})
	}
	if s.recorder != nil {
		go s.recorder.Record(context.Background(), s.cfg.ExchangeID, string(evt.Type), eventData(evt))
	}
}

func eventData(evt Event) map[string]any {
	data := map[string]any{"market": evt.Market}
	if evt.Order != nil {
		data["orderId"] = evt.Order.ID
		data["side"] = string(evt.Order.Side)
	}
	return data
}

// SetLockdown toggles the circuit breaker; while set, every mutating entry
// point fails fast with errs.CodeLockdown.
func (s *State) SetLockdown(on bool) {
	s.mu.Lock()
	s.lockdown = on
	s.mu.Unlock()
	if on {
		s.emit(Event{Type: EventLockdown})
	}
}

func (s *State) isLockedDown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lockdown
}

func (s *State) balanceLocked(currency string) *model.Balance {
	b, ok := s.balances[currency]
	if !ok {
		b = &model.Balance{Currency: currency}
		s.balances[currency] = b
	}
	return b
}

// Balance returns a snapshot of a currency's balance.
func (s *State) Balance(currency string) model.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.balances[currency]; ok {
		return *b
	}
	return model.Balance{Currency: currency}
}

// Ticker returns the last-synced ticker for a market.
func (s *State) Ticker(market string) (model.Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickers[market]
	return t, ok
}

// OrderBook returns the last-synced order book for a market.
func (s *State) OrderBook(market string) (model.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[market]
	return b, ok
}

// OpenOrders returns a snapshot of every open order for a market.
func (s *State) OpenOrders(market string) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0, len(s.openOrders[market]))
	for _, o := range s.openOrders[market] {
		out = append(out, *o)
	}
	return out
}

// MinDealAmount returns the configured minimum deal amount for a market.
func (s *State) MinDealAmount(market string) decimal.Decimal {
	return s.cfg.MinDealAmountOf(market)
}

// LastClosedOrder returns the most recently closed order on the given side
// for a market, or nil if there is none.
func (s *State) LastClosedOrder(market string, side model.OrderSide) *model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *model.Order
	for _, o := range s.closedOrders[market] {
		if o.Side != side {
			continue
		}
		if best == nil || o.TimestampClosed > best.TimestampClosed {
			cp := *o
			best = &cp
		}
	}
	return best
}

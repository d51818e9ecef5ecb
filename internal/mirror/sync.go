package mirror

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
)

// SyncBalance deep-merges the remote balance snapshot into local state:
// known currencies are updated, simulation-only currencies untouched by the
// remote response are left alone.
func (s *State) SyncBalance(ctx context.Context) bool {
	remote, err := s.client.FetchBalance(ctx)
	if err != nil {
		s.log.Error("mirror: syncBalance failed", observability.Field{Key: "error", Value: err.Error()})
		return false
	}
	s.mu.Lock()
	for currency, entry := range remote {
		b := s.balanceLocked(currency)
		b.Free = entry.Free
		b.Used = entry.Used
	}
	s.mu.Unlock()
	return true
}

// SyncTickers deep-merges remote ticker snapshots into local state.
func (s *State) SyncTickers(ctx context.Context, markets []string) bool {
	remote, err := s.client.FetchTickers(ctx, markets)
	if err != nil {
		s.log.Error("mirror: syncTickers failed", observability.Field{Key: "error", Value: err.Error()})
		return false
	}
	s.mu.Lock()
	for market, t := range remote {
		s.tickers[market] = t
	}
	s.mu.Unlock()
	return true
}

// SyncOrderBook deep-merges remote order-book snapshots into local state.
func (s *State) SyncOrderBook(ctx context.Context, markets []string) bool {
	remote, err := s.client.FetchOrderBook(ctx, markets, 0)
	if err != nil {
		s.log.Error("mirror: syncOrderBook failed", observability.Field{Key: "error", Value: err.Error()})
		return false
	}
	s.mu.Lock()
	for market, b := range remote {
		s.books[market] = b
	}
	s.mu.Unlock()
	return true
}

// SyncTrades deep-merges remote trade snapshots into local state, appending
// rather than overwriting so earlier prints are preserved.
func (s *State) SyncTrades(ctx context.Context, markets []string, since int64) bool {
	remote, err := s.client.FetchTrades(ctx, markets, since, 0)
	if err != nil {
		s.log.Error("mirror: syncTrades failed", observability.Field{Key: "error", Value: err.Error()})
		return false
	}
	s.mu.Lock()
	for market, trades := range remote {
		s.trades[market] = append(s.trades[market], trades...)
	}
	s.mu.Unlock()
	return true
}

// Trades returns a snapshot of the locally-synced trade history for a market.
func (s *State) Trades(market string) []model.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Trade, len(s.trades[market]))
	copy(out, s.trades[market])
	return out
}

// GetTotalBalance converts every currency with a positive total into the
// fiat currency via its market/fiat ticker bid (1:1 for the fiat currency
// itself). If a required ticker is missing and ignoreMissing is false, it
// returns (zero, false).
func (s *State) GetTotalBalance(includeReserve bool, currencies []string, ignoreMissing bool) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if currencies == nil {
		currencies = make([]string, 0, len(s.balances))
		for c := range s.balances {
			currencies = append(currencies, c)
		}
	}

	total := decimal.Zero
	for _, currency := range currencies {
		b, ok := s.balances[currency]
		if !ok {
			continue
		}
		amount := b.ExposedFree().Add(b.Used)
		if includeReserve {
			amount = amount.Add(s.cfg.reserveOf(currency))
		}
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if currency == s.cfg.FiatCurrency {
			total = total.Add(amount)
			continue
		}
		market := currency + "/" + s.cfg.FiatCurrency
		ticker, ok := s.tickers[market]
		if !ok {
			if ignoreMissing {
				continue
			}
			return decimal.Zero, false
		}
		total = total.Add(amount.Mul(decimal.NewFromFloat(ticker.Bid)))
	}
	return total, true
}

package model

import "github.com/shopspring/decimal"

// OrderBookLevel is a single price/amount entry on one side of a book.
type OrderBookLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// OrderBook is a depth snapshot for one market.
type OrderBook struct {
	Bids []OrderBookLevel
	Asks []OrderBookLevel
}

// BestBid returns the highest bid level, or (zero, false) if the book is empty.
func (b OrderBook) BestBid() (OrderBookLevel, bool) {
	if len(b.Bids) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask level, or (zero, false) if the book is empty.
func (b OrderBook) BestAsk() (OrderBookLevel, bool) {
	if len(b.Asks) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Asks[0], true
}

// SecondBestBid returns the second-highest bid level, or (zero, false) if
// fewer than two levels are present.
func (b OrderBook) SecondBestBid() (OrderBookLevel, bool) {
	if len(b.Bids) < 2 {
		return OrderBookLevel{}, false
	}
	return b.Bids[1], true
}

// SecondBestAsk returns the second-lowest ask level, or (zero, false) if
// fewer than two levels are present.
func (b OrderBook) SecondBestAsk() (OrderBookLevel, bool) {
	if len(b.Asks) < 2 {
		return OrderBookLevel{}, false
	}
	return b.Asks[1], true
}

// Trade is a single executed print on a market, used for entry-gate volume
// balance.
type Trade struct {
	Timestamp int64
	Market    string
	Side      OrderSide
	Price     decimal.Decimal
	Amount    decimal.Decimal
}

// Exchange is the persisted configuration and credentials envelope for a
// single remote-exchange account. The live order/balance/ticker state it
// drives is held separately by internal/mirror.State, which is rebuilt (or
// restored) each run rather than round-tripped through this struct.
type Exchange struct {
	ID              string
	Name            string
	Credentials     string // opaque, interpreted by the ExchangeClient adapter
	FiatCurrency    string
	FeeRate         decimal.Decimal
	Simulation      bool
	Lockdown        bool
	ForceAutoCancel bool
	Reserves        map[string]decimal.Decimal
	MinDealAmounts  map[string]decimal.Decimal
	MaxSyncAge      int64 // milliseconds
	LogLevel        string
}

// ReserveOf returns the configured reserve for a currency, or zero if unset.
func (e Exchange) ReserveOf(currency string) decimal.Decimal {
	if e.Reserves == nil {
		return decimal.Zero
	}
	if v, ok := e.Reserves[currency]; ok {
		return v
	}
	return decimal.Zero
}

// MinDealAmountOf returns the configured minimum deal amount for a market,
// or zero if unset.
func (e Exchange) MinDealAmountOf(market string) decimal.Decimal {
	if e.MinDealAmounts == nil {
		return decimal.Zero
	}
	if v, ok := e.MinDealAmounts[market]; ok {
		return v
	}
	return decimal.Zero
}

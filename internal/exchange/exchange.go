// Package exchange defines the ExchangeClient port: the narrow surface the
// state mirror uses to talk to a remote venue, independent of which venue
// it is. Concrete adapters (internal/exchange/binance) implement Client;
// internal/mirror depends only on this package.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/model"
)

// CreateOrderParams are the caller-supplied inputs to Client.CreateOrder.
// Price is nil for market orders.
type CreateOrderParams struct {
	Market string
	Type   model.OrderType
	Side   model.OrderSide
	Amount decimal.Decimal
	Price  *decimal.Decimal
}

// CancelOrderParams identifies an order to cancel; some venues require the
// market and side in addition to the ID, which the adapter encapsulates.
type CancelOrderParams struct {
	ID     string
	Market string
	Side   model.OrderSide
}

// BalanceEntry is one currency's free/used balance as reported by the venue.
type BalanceEntry struct {
	Free decimal.Decimal
	Used decimal.Decimal
}

// Client is the ExchangeClient port. Every method fails with an *errs.E
// carrying CodeNetwork, CodeRateLimited, CodeBadResponse, or
// CodeMarketUnknown.
type Client interface {
	// LoadMarkets refreshes symbol metadata from the venue. cmd/gatewayd
	// invokes this once at startup; no periodic refresh is scheduled.
	LoadMarkets(ctx context.Context) error

	// GetMarkets lists BASE/QUOTE symbols, optionally filtered to those
	// quoted in fiat.
	GetMarkets(ctx context.Context, fiat string) ([]string, error)

	// GetMinDealAmount returns the market's minimum order amount.
	GetMinDealAmount(ctx context.Context, market string) (decimal.Decimal, error)

	// FetchBalance returns free/used balances for every currency the
	// account holds.
	FetchBalance(ctx context.Context) (map[string]BalanceEntry, error)

	// FetchTickers returns a point-in-time quote snapshot per market. If the
	// venue supports a batch endpoint the adapter uses it; otherwise it fans
	// out per-market requests concurrently.
	FetchTickers(ctx context.Context, markets []string) (map[string]model.Ticker, error)

	// FetchOrderBook returns a depth snapshot per market, to the requested
	// depth (0 for the venue default).
	FetchOrderBook(ctx context.Context, markets []string, depth int) (map[string]model.OrderBook, error)

	// FetchTrades returns recent prints per market since the given time
	// (zero for venue default), capped at limit (0 for venue default).
	FetchTrades(ctx context.Context, markets []string, since int64, limit int) (map[string][]model.Trade, error)

	// FetchOpenOrders returns open orders, optionally filtered to one market
	// (empty string for all markets).
	FetchOpenOrders(ctx context.Context, market string) ([]model.Order, error)

	// FetchOHLCV returns candles for a market/timeframe. The adapter MUST
	// fail soft (nil, nil) on rate-limit or unknown-market conditions rather
	// than propagating an error; callers must handle a nil result.
	FetchOHLCV(ctx context.Context, market, timeframe string, since int64, limit int) ([]model.Candle, error)

	// CreateOrder submits an order and returns the venue's order ID. Amount
	// and price are rounded by the adapter to the market's native
	// precision before submission.
	CreateOrder(ctx context.Context, params CreateOrderParams) (string, error)

	// CancelOrder cancels a previously submitted order.
	CancelOrder(ctx context.Context, params CancelOrderParams) error
}

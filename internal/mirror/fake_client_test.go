package mirror

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/model"
)

// fakeClient is a minimal exchange.Client stub for mirror tests; simulation
// mode never calls most of these, so only FetchOHLCV and FetchOpenOrders
// return configured data.
type fakeClient struct {
	candles []model.Candle
	openOrders []model.Order
}

func (f *fakeClient) LoadMarkets(ctx context.Context) error { return nil }
func (f *fakeClient) GetMarkets(ctx context.Context, fiat string) ([]string, error) {
	return nil, nil
}
func (f *fakeClient) GetMinDealAmount(ctx context.Context, market string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeClient) FetchBalance(ctx context.Context) (map[string]exchange.BalanceEntry, error) {
	return nil, nil
}
func (f *fakeClient) FetchTickers(ctx context.Context, markets []string) (map[string]model.Ticker, error) {
	return nil, nil
}
func (f *fakeClient) FetchOrderBook(ctx context.Context, markets []string, depth int) (map[string]model.OrderBook, error) {
	return nil, nil
}
func (f *fakeClient) FetchTrades(ctx context.Context, markets []string, since int64, limit int) (map[string][]model.Trade, error) {
	return nil, nil
}
func (f *fakeClient) FetchOpenOrders(ctx context.Context, market string) ([]model.Order, error) {
	return f.openOrders, nil
}
func (f *fakeClient) FetchOHLCV(ctx context.Context, market, timeframe string, since int64, limit int) ([]model.Candle, error) {
	return f.candles, nil
}
func (f *fakeClient) CreateOrder(ctx context.Context, params exchange.CreateOrderParams) (string, error) {
	return "remote-id", nil
}
func (f *fakeClient) CancelOrder(ctx context.Context, params exchange.CancelOrderParams) error {
	return nil
}

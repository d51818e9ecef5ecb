package allocator

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/model"
)

// stubClient is a minimal exchange.Client fake, one market at a time: the
// candle/ticker fixtures are keyed by market symbol so a single fake client
// can drive a multi-market universe.
type stubClient struct {
	markets    []string
	tickers    map[string]model.Ticker
	hourCandle map[string][]model.Candle
	dayCandle  map[string][]model.Candle
}

func (f *stubClient) LoadMarkets(ctx context.Context) error { return nil }
func (f *stubClient) GetMarkets(ctx context.Context, fiat string) ([]string, error) {
	return f.markets, nil
}
func (f *stubClient) GetMinDealAmount(ctx context.Context, market string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *stubClient) FetchBalance(ctx context.Context) (map[string]exchange.BalanceEntry, error) {
	return nil, nil
}
func (f *stubClient) FetchTickers(ctx context.Context, markets []string) (map[string]model.Ticker, error) {
	return f.tickers, nil
}
func (f *stubClient) FetchOrderBook(ctx context.Context, markets []string, depth int) (map[string]model.OrderBook, error) {
	return nil, nil
}
func (f *stubClient) FetchTrades(ctx context.Context, markets []string, since int64, limit int) (map[string][]model.Trade, error) {
	return nil, nil
}
func (f *stubClient) FetchOpenOrders(ctx context.Context, market string) ([]model.Order, error) {
	return nil, nil
}
func (f *stubClient) FetchOHLCV(ctx context.Context, market, timeframe string, since int64, limit int) ([]model.Candle, error) {
	if timeframe == "1h" {
		return f.hourCandle[market], nil
	}
	return f.dayCandle[market], nil
}
func (f *stubClient) CreateOrder(ctx context.Context, params exchange.CreateOrderParams) (string, error) {
	return "remote-id", nil
}
func (f *stubClient) CancelOrder(ctx context.Context, params exchange.CancelOrderParams) error {
	return nil
}

func flatHourCandles(n int, price, volume float64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = model.Candle{Timestamp: int64(i), Open: price, High: price, Low: price, Close: price, Volume: volume}
	}
	return out
}

func risingDayCandles(n int, start, step float64) []model.Candle {
	out := make([]model.Candle, n)
	price := start
	for i := range out {
		out[i] = model.Candle{Timestamp: int64(i), Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 100}
		price += step
	}
	return out
}

func TestAllocateSelectsQualifyingMarket(t *testing.T) {
	client := &stubClient{
		markets: []string{"BTC/USDT"},
		tickers: map[string]model.Ticker{
			"BTC/USDT": {Last: 100, QuoteVolume: 1000},
		},
		hourCandle: map[string][]model.Candle{"BTC/USDT": flatHourCandles(hoursPerWeek, 100, 10)},
		dayCandle:  map[string][]model.Candle{"BTC/USDT": risingDayCandles(30, 90, 1)},
	}
	a := New(client, nil, Options{})
	agent := &model.TradingAgent{FiatCurrency: "USDT", StrategyState: map[string]*model.MarketState{}}

	if err := a.Allocate(context.Background(), agent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ms, ok := agent.StrategyState["BTC/USDT"]
	if !ok || !ms.CanTrade {
		t.Fatalf("expected BTC/USDT marked tradeable, got %+v", ms)
	}
	if ms.Trend == 0 {
		t.Error("expected non-zero trend for a trending market")
	}
}

func TestAllocateRejectsLowVolumeMarket(t *testing.T) {
	client := &stubClient{
		markets: []string{"XYZ/USDT"},
		tickers: map[string]model.Ticker{
			"XYZ/USDT": {Last: 100, QuoteVolume: 1},
		},
	}
	a := New(client, nil, Options{})
	agent := &model.TradingAgent{
		FiatCurrency:  "USDT",
		StrategyState: map[string]*model.MarketState{"XYZ/USDT": {Market: "XYZ/USDT", CanTrade: true}},
	}

	if err := a.Allocate(context.Background(), agent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ms := agent.StrategyState["XYZ/USDT"]
	if ms.CanTrade {
		t.Error("expected low-volume market to be marked untradeable")
	}
}

func TestAllocateRejectsMarketWithTooManyNoVolumeHours(t *testing.T) {
	hours := flatHourCandles(hoursPerWeek, 100, 10)
	for i := range hours[:hoursPerWeek/2+1] {
		hours[i].Volume = 0
	}
	client := &stubClient{
		markets: []string{"BTC/USDT"},
		tickers: map[string]model.Ticker{
			"BTC/USDT": {Last: 100, QuoteVolume: 1000},
		},
		hourCandle: map[string][]model.Candle{"BTC/USDT": hours},
		dayCandle:  map[string][]model.Candle{"BTC/USDT": risingDayCandles(30, 90, 1)},
	}
	a := New(client, nil, Options{})
	agent := &model.TradingAgent{FiatCurrency: "USDT", StrategyState: map[string]*model.MarketState{}}

	if err := a.Allocate(context.Background(), agent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms, ok := agent.StrategyState["BTC/USDT"]; ok && ms.CanTrade {
		t.Error("expected market with over 10% zero-volume hours to be untradeable")
	}
}

func TestAllocateExcludesBlacklistedMarket(t *testing.T) {
	client := &stubClient{
		markets: []string{"BTC/USDT", "ETH/USDT"},
		tickers: map[string]model.Ticker{
			"BTC/USDT": {Last: 100, QuoteVolume: 1000},
			"ETH/USDT": {Last: 100, QuoteVolume: 1000},
		},
		hourCandle: map[string][]model.Candle{
			"BTC/USDT": flatHourCandles(hoursPerWeek, 100, 10),
			"ETH/USDT": flatHourCandles(hoursPerWeek, 100, 10),
		},
		dayCandle: map[string][]model.Candle{
			"BTC/USDT": risingDayCandles(30, 90, 1),
			"ETH/USDT": risingDayCandles(30, 90, 1),
		},
	}
	a := New(client, nil, Options{})
	agent := &model.TradingAgent{
		FiatCurrency:  "USDT",
		Blacklist:     []string{"ETH/USDT"},
		StrategyState: map[string]*model.MarketState{},
	}

	if err := a.Allocate(context.Background(), agent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := agent.StrategyState["ETH/USDT"]; ok {
		t.Error("expected blacklisted market to never receive state")
	}
	if ms, ok := agent.StrategyState["BTC/USDT"]; !ok || !ms.CanTrade {
		t.Error("expected non-blacklisted market to be evaluated")
	}
}

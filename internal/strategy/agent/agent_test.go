package agent

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/mirror"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/strategy/entry"
	"github.com/coachpo/marketmaker/internal/strategy/exit"
	"github.com/coachpo/marketmaker/internal/strategy/marketmaker"
)

type stubClient struct {
	candles []model.Candle
}

func (f *stubClient) LoadMarkets(ctx context.Context) error { return nil }
func (f *stubClient) GetMarkets(ctx context.Context, fiat string) ([]string, error) {
	return nil, nil
}
func (f *stubClient) GetMinDealAmount(ctx context.Context, market string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *stubClient) FetchBalance(ctx context.Context) (map[string]exchange.BalanceEntry, error) {
	return nil, nil
}
func (f *stubClient) FetchTickers(ctx context.Context, markets []string) (map[string]model.Ticker, error) {
	return nil, nil
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
	return f.candles, nil
}
func (f *stubClient) CreateOrder(ctx context.Context, params exchange.CreateOrderParams) (string, error) {
	return "remote-id", nil
}
func (f *stubClient) CancelOrder(ctx context.Context, params exchange.CancelOrderParams) error {
	return nil
}

func TestRunPausedAgentNoOp(t *testing.T) {
	m := mirror.New(mirror.Config{Simulation: true, FiatCurrency: "USDT"}, &stubClient{}, nil)
	r := New(m, &stubClient{}, nil, Options{})
	ag := &model.TradingAgent{ID: "a1", Paused: true, FiatCurrency: "USDT"}
	if err := r.Run(context.Background(), ag); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type recordedEvent struct {
	exchangeID, eventType string
	data                  map[string]any
}

type stubRecorder struct {
	events []recordedEvent
}

func (r *stubRecorder) Record(ctx context.Context, exchangeID, eventType string, data map[string]any) {
	r.events = append(r.events, recordedEvent{exchangeID: exchangeID, eventType: eventType, data: data})
}

func TestApplyDrawdownGuardPausesOnBreach(t *testing.T) {
	m := mirror.New(mirror.Config{Simulation: true, FiatCurrency: "USDT"}, &stubClient{}, nil)
	r := New(m, &stubClient{}, nil, Options{MaxDrawdown: 0.2})
	rec := &stubRecorder{}
	r.Recorder = rec
	ag := &model.TradingAgent{ID: "a1", ExchangeID: "ex1", PeakMarketAmount: decimal.NewFromInt(1000)}
	r.applyDrawdownGuard(context.Background(), ag, decimal.NewFromInt(700))
	if !ag.Paused {
		t.Error("expected agent paused after a 30% drawdown against a 20% max")
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected exactly one recorded event, got %d", len(rec.events))
	}
	evt := rec.events[0]
	if evt.eventType != "max_drawdown_reached" {
		t.Errorf("expected max_drawdown_reached, got %q", evt.eventType)
	}
	if evt.exchangeID != "ex1" {
		t.Errorf("expected exchange id ex1, got %q", evt.exchangeID)
	}
	if evt.data["peak"] != 1000.0 || evt.data["currentTotal"] != 700.0 {
		t.Errorf("expected {peak:1000, currentTotal:700}, got %+v", evt.data)
	}
}

type tickerStubClient struct {
	stubClient
	ticker model.Ticker
}

func (f *tickerStubClient) FetchTickers(ctx context.Context, markets []string) (map[string]model.Ticker, error) {
	out := make(map[string]model.Ticker, len(markets))
	for _, m := range markets {
		out[m] = f.ticker
	}
	return out, nil
}

func TestRunForMarketConsultsMarketOptions(t *testing.T) {
	client := &tickerStubClient{ticker: model.Ticker{Bid: 100}}
	m := mirror.New(mirror.Config{
		Simulation:     true,
		FiatCurrency:   "USDT",
		MinDealAmounts: map[string]decimal.Decimal{"BTC/USDT": decimal.NewFromInt(1)},
	}, client, nil)
	m.SyncTickers(context.Background(), []string{"BTC/USDT"})

	r := New(m, client, nil, Options{})

	var calls int
	var seenMarket string
	r.MarketOptions = func(market string) (entry.Options, exit.Options, marketmaker.Options) {
		calls++
		seenMarket = market
		return entry.Options{}, exit.Options{}, marketmaker.Options{}
	}

	ag := &model.TradingAgent{
		ID:           "a1",
		FiatCurrency: "USDT",
		StrategyState: map[string]*model.MarketState{
			"BTC/USDT": {AgentState: model.AgentStateIdle, Trend: 0.5, PriceLevel: 0.3},
		},
	}

	if err := r.Run(context.Background(), ag); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected MarketOptions to be consulted once, got %d", calls)
	}
	if seenMarket != "BTC/USDT" {
		t.Errorf("expected MarketOptions called with BTC/USDT, got %q", seenMarket)
	}
}

func TestRunForMarketDefaultsWithoutMarketOptions(t *testing.T) {
	client := &tickerStubClient{ticker: model.Ticker{Bid: 100}}
	m := mirror.New(mirror.Config{
		Simulation:     true,
		FiatCurrency:   "USDT",
		MinDealAmounts: map[string]decimal.Decimal{"BTC/USDT": decimal.NewFromInt(1)},
	}, client, nil)
	m.SyncTickers(context.Background(), []string{"BTC/USDT"})

	r := New(m, client, nil, Options{Entry: entry.Options{MinimumTrend: 0.2}})

	ag := &model.TradingAgent{
		ID:           "a1",
		FiatCurrency: "USDT",
		StrategyState: map[string]*model.MarketState{
			"BTC/USDT": {AgentState: model.AgentStateIdle, Trend: 0.5, PriceLevel: 0.3},
		},
	}

	if err := r.Run(context.Background(), ag); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDrawdownGuardTracksNewPeak(t *testing.T) {
	m := mirror.New(mirror.Config{Simulation: true, FiatCurrency: "USDT"}, &stubClient{}, nil)
	r := New(m, &stubClient{}, nil, Options{MaxDrawdown: 0.2})
	ag := &model.TradingAgent{ID: "a1", PeakMarketAmount: decimal.NewFromInt(1000)}
	r.applyDrawdownGuard(context.Background(), ag, decimal.NewFromInt(1200))
	if !ag.PeakMarketAmount.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("expected peak updated to 1200, got %v", ag.PeakMarketAmount)
	}
	if ag.Paused {
		t.Error("expected agent not paused when balance exceeds prior peak")
	}
}

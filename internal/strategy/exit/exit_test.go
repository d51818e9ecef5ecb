package exit

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/model"
)

func TestEvaluateBelowMinDealNoAction(t *testing.T) {
	in := Input{
		BaseBalance:   model.Balance{Free: decimal.NewFromInt(0)},
		MinDealAmount: decimal.NewFromInt(1),
	}
	act := Evaluate(in, Options{})
	if act.ShouldExit {
		t.Error("should not exit below min deal amount")
	}
}

func TestEvaluateBackfillsEntryPriceFromLastClosedBuy(t *testing.T) {
	in := Input{
		BaseBalance:   model.Balance{Free: decimal.NewFromInt(5)},
		MinDealAmount: decimal.NewFromInt(1),
		Now:           1_000_000,
		LastClosedBuy: &model.Order{Price: decimal.NewFromInt(50), TimestampClosed: 500},
		Ticker:        model.Ticker{Bid: 60, Ask: 61},
	}
	act := Evaluate(in, Options{})
	if !act.EntryPrice.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected backfilled entry price 50, got %v", act.EntryPrice)
	}
	if act.EntryTimestamp != 500 {
		t.Errorf("expected backfilled entry timestamp 500, got %v", act.EntryTimestamp)
	}
}

func TestEvaluateTakeProfitRSITriggersExit(t *testing.T) {
	dayCandles := make([]model.Candle, 0, 20)
	price := 100.0
	for i := 0; i < 20; i++ {
		dayCandles = append(dayCandles, model.Candle{
			Open: price, High: price + 1, Low: price - 1, Close: price + 1,
		})
		price += 1
	}
	in := Input{
		BaseBalance:    model.Balance{Free: decimal.NewFromInt(5)},
		MinDealAmount:  decimal.NewFromInt(1),
		Now:            2_000_000,
		EntryPrice:     decimal.NewFromInt(90),
		EntryTimestamp: 1_000_000,
		Ticker:         model.Ticker{Bid: 118, Ask: 130},
		DayCandles:     dayCandles,
	}
	act := Evaluate(in, Options{})
	if !act.ShouldExit {
		t.Error("expected monotone uptrend to push RSI to 100 and trigger take-profit exit")
	}
	if !act.CancelAll {
		t.Error("expected cancel-all on exit")
	}
}

func TestEvaluateNoExitWhenFlat(t *testing.T) {
	dayCandles := make([]model.Candle, 0, 30)
	for i := 0; i < 30; i++ {
		dayCandles = append(dayCandles, model.Candle{Open: 100, High: 101, Low: 99, Close: 100})
	}
	in := Input{
		BaseBalance:    model.Balance{Free: decimal.NewFromInt(5)},
		MinDealAmount:  decimal.NewFromInt(1),
		Now:            1_000_000,
		EntryPrice:     decimal.NewFromInt(100),
		EntryTimestamp: 999_000,
		Ticker:         model.Ticker{Bid: 100, Ask: 100},
		DayCandles:     dayCandles,
		HourCandles:    dayCandles,
	}
	act := Evaluate(in, Options{})
	if act.ShouldExit {
		t.Error("expected no exit trigger on flat market immediately after entry")
	}
}

func TestEvaluateStickySellCancelsWhenNoLongerTriggered(t *testing.T) {
	dayCandles := make([]model.Candle, 0, 30)
	for i := 0; i < 30; i++ {
		dayCandles = append(dayCandles, model.Candle{Open: 100, High: 101, Low: 99, Close: 100})
	}
	in := Input{
		BaseBalance:    model.Balance{Free: decimal.NewFromInt(5)},
		MinDealAmount:  decimal.NewFromInt(1),
		Now:            1_000_000,
		EntryPrice:     decimal.NewFromInt(100),
		EntryTimestamp: 999_000,
		Ticker:         model.Ticker{Bid: 100, Ask: 100},
		DayCandles:     dayCandles,
		HourCandles:    dayCandles,
		HasStickySell:  true,
		CanTrade:       true,
	}
	act := Evaluate(in, Options{})
	if !act.CancelAll || !act.TransitionHasPosition {
		t.Error("expected cancel-all and transition back to HasPosition when exit no longer triggered")
	}
}

func TestComputeStopPrice(t *testing.T) {
	got := ComputeStopPrice(100, 2, 3)
	if got != 94 {
		t.Errorf("got %v, want 94", got)
	}
}

package marketmaker

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/model"
)

func baseInput() Input {
	hourCandles := make([]model.Candle, 0, 25)
	for i := 0; i < 25; i++ {
		hourCandles = append(hourCandles, model.Candle{Open: 100, High: 101, Low: 99, Close: 100})
	}
	return Input{
		Ticker:        model.Ticker{Bid: 99.5, Ask: 100.5, BaseVolume: 1000},
		HourCandles:   hourCandles,
		BaseBalance:   model.Balance{Free: decimal.NewFromInt(5)},
		QuoteBalance:  model.Balance{Free: decimal.NewFromInt(10000)},
		TargetBalance: decimal.NewFromInt(10),
	}
}

func TestEvaluateBothSidesOpenNoAction(t *testing.T) {
	in := baseInput()
	in.HasOpenBuy = true
	in.HasOpenSell = true
	act := Evaluate(in, Options{})
	if act.CancelAll || act.Buy.Place || act.Sell.Place {
		t.Error("expected no-op when both sides already resting")
	}
}

func TestEvaluateNeitherSideOpenPlacesBoth(t *testing.T) {
	in := baseInput()
	act := Evaluate(in, Options{MinDealAmount: decimal.NewFromFloat(0.01)})
	if !act.CancelAll {
		t.Fatal("expected cancel-all on mismatch")
	}
	if !act.Buy.Place {
		t.Error("expected buy side to be placed")
	}
	if !act.Sell.Place {
		t.Error("expected sell side to be placed")
	}
	if !act.Buy.Price.LessThan(act.Sell.Price) {
		t.Errorf("expected bid < ask, got bid=%v ask=%v", act.Buy.Price, act.Sell.Price)
	}
}

func TestEvaluateCapsSellByBaseFree(t *testing.T) {
	in := baseInput()
	in.BaseBalance = model.Balance{Free: decimal.NewFromFloat(0.001)}
	act := Evaluate(in, Options{MinDealAmount: decimal.NewFromInt(1)})
	if act.Sell.Place {
		t.Error("expected sell to be rejected below min deal amount once capped by base free")
	}
}

func TestEvaluateCoolOffCapsBidBelowLastSellPrice(t *testing.T) {
	in := baseInput()
	in.Now = 1_000_000
	in.LastClosedSell = &model.Order{Price: decimal.NewFromFloat(99.0), TimestampClosed: 999_000}
	act := Evaluate(in, Options{MinDealAmount: decimal.NewFromFloat(0.01)})
	bidFloat, _ := act.Buy.Price.Float64()
	if bidFloat > 99.0*(1-0.005) {
		t.Errorf("expected bid capped below last sell price cool-off band, got %v", bidFloat)
	}
}

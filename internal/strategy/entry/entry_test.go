package entry

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/model"
)

func TestEvaluateAlreadyInMarketNoAction(t *testing.T) {
	in := Input{
		BaseBalance:   model.Balance{Free: decimal.NewFromInt(5)},
		MinDealAmount: decimal.NewFromInt(1),
	}
	act := Evaluate(in, Options{})
	if act.ShouldEnter {
		t.Error("should not attempt entry when already holding base balance")
	}
}

func TestEvaluateNoTargetBalanceNoAction(t *testing.T) {
	in := Input{
		TargetBalance: decimal.Zero,
		MinDealAmount: decimal.NewFromInt(1),
	}
	act := Evaluate(in, Options{})
	if act.ShouldEnter {
		t.Error("should not attempt entry with zero target balance")
	}
}

func TestEvaluateCannotEnterMoreMarkets(t *testing.T) {
	in := Input{
		TargetBalance:       decimal.NewFromInt(10),
		CanEnterMoreMarkets: false,
		MinDealAmount:       decimal.NewFromInt(1),
	}
	act := Evaluate(in, Options{})
	if act.ShouldEnter {
		t.Error("should not attempt entry when canEnterMoreMarkets is false")
	}
}

func TestEvaluateStickyBuyCancelsWhenEntryNoLongerPossible(t *testing.T) {
	in := Input{
		HasStickyBuy: true,
		Trend:        0, // below default minimum 0.1
	}
	act := Evaluate(in, Options{})
	if !act.CancelAll || !act.TransitionIdle {
		t.Error("expected cancel-all and idle transition when entry is no longer possible")
	}
}

func TestEvaluateStickyBuyCancelsOnExcessivePriceLevel(t *testing.T) {
	in := Input{
		HasStickyBuy: true,
		Trend:        0.5,
		PriceLevel:   0.9, // above default maximum 0.6
	}
	act := Evaluate(in, Options{})
	if !act.CancelAll || !act.TransitionIdle {
		t.Error("expected cancel-all and idle transition when price level exceeds maximum")
	}
}

func TestVolumeBalanceNoTradesPasses(t *testing.T) {
	if v := volumeBalance(nil, 20); v != 0 {
		t.Errorf("expected 0 for no trades, got %v", v)
	}
}

func TestVolumeBalanceComputesRatio(t *testing.T) {
	trades := []model.Trade{
		{Side: model.OrderSideBuy, Amount: decimal.NewFromInt(3)},
		{Side: model.OrderSideSell, Amount: decimal.NewFromInt(1)},
	}
	v := volumeBalance(trades, 20)
	if v != 0.5 {
		t.Errorf("got %v, want 0.5", v)
	}
}

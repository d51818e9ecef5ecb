package config

import (
	"testing"

	"github.com/coachpo/marketmaker/internal/strategy/marketmaker"
)

func TestForMarketMergesPerMarketOverride(t *testing.T) {
	defaults := StrategyOptions{
		MinimumTrend: 0.1,
		MaxDrawdown:  0.2,
		MarketMaker:  marketmaker.Options{Sigma: 0.05, InventorySteps: 8},
		MarketSettings: map[string]StrategyOptions{
			"BTC/USDT": {
				MaxDrawdown: 0.35,
				MarketMaker: marketmaker.Options{Sigma: 0.08},
			},
		},
	}

	effective, err := defaults.ForMarket("BTC/USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if effective.MinimumTrend != 0.1 {
		t.Errorf("expected unset field to fall back to default, got %v", effective.MinimumTrend)
	}
	if effective.MaxDrawdown != 0.35 {
		t.Errorf("expected per-market override to win, got %v", effective.MaxDrawdown)
	}
	if effective.MarketMaker.Sigma != 0.08 {
		t.Errorf("expected nested override to win, got %v", effective.MarketMaker.Sigma)
	}
	if effective.MarketMaker.InventorySteps != 8 {
		t.Errorf("expected nested default to survive merge, got %v", effective.MarketMaker.InventorySteps)
	}
	if effective.MarketSettings != nil {
		t.Error("expected resolved options to not carry a nested marketSettings map")
	}
}

func TestForMarketWithoutOverrideReturnsDefaults(t *testing.T) {
	defaults := StrategyOptions{MinimumTrend: 0.15}
	effective, err := defaults.ForMarket("ETH/USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if effective.MinimumTrend != 0.15 {
		t.Errorf("expected defaults untouched, got %v", effective.MinimumTrend)
	}
}

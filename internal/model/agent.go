package model

import "github.com/shopspring/decimal"

// AgentState is the finite state of a single (agent, market) pair in the
// market-making state machine.
type AgentState string

const (
	AgentStateIdle           AgentState = "idle"
	AgentStateTryingToEnter  AgentState = "trying_to_enter"
	AgentStateHasPosition    AgentState = "has_position"
	AgentStateTryingToLeave  AgentState = "trying_to_leave"
)

// ModelParams holds the per-market GBM/Guéant quoting parameters the
// strategy layer fits and reuses across ticks.
type ModelParams struct {
	Sigma float64
	Mu    float64
	Gamma float64

	ABuy float64
	KBuy float64

	ASell float64
	KSell float64
}

// MarketState is the persisted per-market slice of a TradingAgent's
// strategyState.
type MarketState struct {
	Market          string
	Ratio           float64
	EntryPrice      decimal.Decimal
	EntryTimestamp  int64
	AgentState      AgentState
	Trend           float64
	PriceLevel      float64
	CanTrade        bool
	Params          ModelParams
}

// TradingAgent is the persisted configuration and per-market state for one
// exchange account's market-making activity.
type TradingAgent struct {
	ID             string
	ExchangeID     string
	Strategy       string
	StrategyState  map[string]*MarketState // keyed by market
	Paused         bool
	MaxDrawdown    float64
	PeakMarketAmount decimal.Decimal

	MinimumVolume            float64
	MinimumAverageVolume     float64
	MinimumFiatPrice         float64
	MaxPercentageHoursNoVolume float64
	Blacklist                []string
	FiatCurrency             string
}

// ActiveMarkets returns the markets whose state is present, in no
// particular order; callers needing determinism should sort.
func (a *TradingAgent) ActiveMarkets() []string {
	if a == nil || len(a.StrategyState) == 0 {
		return nil
	}
	out := make([]string, 0, len(a.StrategyState))
	for m := range a.StrategyState {
		out = append(out, m)
	}
	return out
}

// IsBlacklisted reports whether market appears in the agent's blacklist.
func (a *TradingAgent) IsBlacklisted(market string) bool {
	for _, b := range a.Blacklist {
		if b == market {
			return true
		}
	}
	return false
}

// DefaultMaxDrawdown is used when an agent has not configured one.
const DefaultMaxDrawdown = 0.2

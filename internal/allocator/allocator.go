// Package allocator implements the portfolio allocator: it selects, from
// an agent's fiat-denominated market universe, the subset worth trading by
// volume, price, and GBM-fitness filters, and assigns each survivor its
// initial trend/priceLevel so the trading agent can pick it up on its next
// run.
package allocator

import (
	"context"
	"sort"

	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/indicator"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
	"github.com/coachpo/marketmaker/internal/quant"
)

// hoursPerWeek is the 24·7 1h-candle window the no-volume-hours filter is
// evaluated over.
const hoursPerWeek = 24 * 7

// Options configures the allocator's filter thresholds. Where the agent
// carries an equivalent field (MinimumVolume, MinimumAverageVolume,
// MinimumFiatPrice, MaxPercentageHoursNoVolume), a non-zero agent value
// takes precedence; otherwise the Options value applies, with zero Options
// fields replaced by the package defaults noted below.
type Options struct {
	MinimumVolume              float64 // default 70
	MinimumAverageVolume       float64
	MinimumFiatPrice           float64
	MaxPercentageHoursNoVolume float64 // default 0.1
	DayCandlesRequired         int     // default 30
	EMAPeriod                  int     // default 5
	TrendPeriod                int     // default 20, RSI/VDX window for priceLevel assignment
}

func (o Options) withDefaults() Options {
	if o.MinimumVolume == 0 {
		o.MinimumVolume = 70
	}
	if o.MaxPercentageHoursNoVolume == 0 {
		o.MaxPercentageHoursNoVolume = 0.1
	}
	if o.DayCandlesRequired == 0 {
		o.DayCandlesRequired = 30
	}
	if o.EMAPeriod == 0 {
		o.EMAPeriod = 5
	}
	if o.TrendPeriod == 0 {
		o.TrendPeriod = 20
	}
	return o
}

// Allocator runs the market-selection pass for one agent's exchange client.
type Allocator struct {
	client exchange.Client
	log    observability.Logger
	opts   Options
}

// New constructs an Allocator. log may be nil, in which case
// observability.Log() is used.
func New(client exchange.Client, log observability.Logger, opts Options) *Allocator {
	if log == nil {
		log = observability.Log()
	}
	return &Allocator{client: client, log: log, opts: opts.withDefaults()}
}

// Allocate rebuilds agent.StrategyState to mark each market in the agent's
// fiat universe canTrade=true or false per the filter chain, and seeds
// trend/priceLevel for every survivor. It mutates agent in place; callers
// persist the result.
func (a *Allocator) Allocate(ctx context.Context, agent *model.TradingAgent) error {
	markets, err := a.client.GetMarkets(ctx, agent.FiatCurrency)
	if err != nil {
		return err
	}
	markets = excludeBlacklisted(markets, agent)
	if len(markets) == 0 {
		return nil
	}
	sort.Strings(markets)

	tickers, err := a.client.FetchTickers(ctx, markets)
	if err != nil {
		return err
	}

	minVolume := a.thresholdMinimumVolume(agent)
	minFiatPrice := a.thresholdMinimumFiatPrice(agent)
	minAvgVolume := a.thresholdMinimumAverageVolume(agent)
	maxNoVolumeHours := a.thresholdMaxNoVolumeHours(agent)

	if agent.StrategyState == nil {
		agent.StrategyState = make(map[string]*model.MarketState)
	}

	for _, market := range markets {
		ticker, ok := tickers[market]
		if !ok {
			a.markUntradeable(agent, market)
			continue
		}
		if ticker.QuoteVolume < minVolume {
			a.markUntradeable(agent, market)
			continue
		}
		if ticker.Last < minFiatPrice {
			a.markUntradeable(agent, market)
			continue
		}

		hourCandles, err := a.client.FetchOHLCV(ctx, market, "1h", 0, hoursPerWeek)
		if err != nil || len(hourCandles) < hoursPerWeek {
			a.markUntradeable(agent, market)
			continue
		}
		if noVolumeFraction(hourCandles) > maxNoVolumeHours {
			a.markUntradeable(agent, market)
			continue
		}
		if _, err := quant.ComputeGBMParameters(hourCandles); err != nil {
			a.markUntradeable(agent, market)
			continue
		}

		dayCandles, err := a.client.FetchOHLCV(ctx, market, "1d", 0, a.opts.DayCandlesRequired)
		if err != nil || len(dayCandles) < a.opts.DayCandlesRequired {
			a.markUntradeable(agent, market)
			continue
		}

		avgVolume := indicator.Tail(indicator.EMA(quoteVolumeEstimates(dayCandles), a.opts.EMAPeriod))
		if avgVolume < minAvgVolume {
			a.markUntradeable(agent, market)
			continue
		}

		ms := agent.StrategyState[market]
		if ms == nil {
			ms = &model.MarketState{Market: market}
			agent.StrategyState[market] = ms
		}
		ms.CanTrade = true
		ms.Trend = indicator.Tail(indicator.VDX(
			model.Highs(dayCandles), model.Lows(dayCandles), model.Closes(dayCandles), model.Volumes(dayCandles), a.opts.TrendPeriod))
		ms.PriceLevel = indicator.Tail(indicator.RSI(model.Closes(dayCandles), a.opts.TrendPeriod)) / 100

		a.log.Debug("allocator: market selected",
			observability.Field{Key: "market", Value: market},
			observability.Field{Key: "trend", Value: ms.Trend},
			observability.Field{Key: "priceLevel", Value: ms.PriceLevel},
		)
	}

	return nil
}

// markUntradeable flips an existing market-state entry's CanTrade to false.
// It does not create state for markets the agent has never traded; that
// stays the trading agent's sticky-membership decision.
func (a *Allocator) markUntradeable(agent *model.TradingAgent, market string) {
	if ms, ok := agent.StrategyState[market]; ok {
		ms.CanTrade = false
	}
}

func excludeBlacklisted(markets []string, agent *model.TradingAgent) []string {
	out := make([]string, 0, len(markets))
	for _, m := range markets {
		if agent.IsBlacklisted(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (a *Allocator) thresholdMinimumVolume(agent *model.TradingAgent) float64 {
	if agent.MinimumVolume > 0 {
		return agent.MinimumVolume
	}
	return a.opts.MinimumVolume
}

func (a *Allocator) thresholdMinimumFiatPrice(agent *model.TradingAgent) float64 {
	if agent.MinimumFiatPrice > 0 {
		return agent.MinimumFiatPrice
	}
	return a.opts.MinimumFiatPrice
}

func (a *Allocator) thresholdMinimumAverageVolume(agent *model.TradingAgent) float64 {
	if agent.MinimumAverageVolume > 0 {
		return agent.MinimumAverageVolume
	}
	return a.opts.MinimumAverageVolume
}

func (a *Allocator) thresholdMaxNoVolumeHours(agent *model.TradingAgent) float64 {
	if agent.MaxPercentageHoursNoVolume > 0 {
		return agent.MaxPercentageHoursNoVolume
	}
	return a.opts.MaxPercentageHoursNoVolume
}

func noVolumeFraction(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 1
	}
	var zero int
	for _, c := range candles {
		if c.Volume == 0 {
			zero++
		}
	}
	return float64(zero) / float64(len(candles))
}

func quoteVolumeEstimates(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.QuoteVolumeEstimate()
	}
	return out
}

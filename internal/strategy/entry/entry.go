// Package entry implements the Entry strategy: the Idle and TryingToEnter
// half of the per-market state machine, deciding when to commit quote
// balance toward a new position.
package entry

import (
	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/indicator"
	"github.com/coachpo/marketmaker/internal/model"
)

// Options configures the entry gate. Zero values fall back to the defaults
// noted per field.
type Options struct {
	MinimumTrend             float64 // default 0.1
	MaximumPriceLevel        float64 // default 0.6
	MinimumReturnsPeriod     int     // default 14
	MinimumReturns           float64 // default 0.01
	MAPeriodVolume           int     // default 14
	EMAPeriodDailyRetracement int    // default 20
	EMAPeriodDaily           int     // default 14 (ATR period)
	ATRRetracementMultiplier float64 // default 1.0
	EMAPeriodFast            int     // default 12
	EMAPeriodMid             int     // default 26
	VolumeBalancePeriod      int     // default 20
	MinimumNotional          float64
}

func (o Options) withDefaults() Options {
	if o.MinimumTrend == 0 {
		o.MinimumTrend = 0.1
	}
	if o.MaximumPriceLevel == 0 {
		o.MaximumPriceLevel = 0.6
	}
	if o.MinimumReturnsPeriod == 0 {
		o.MinimumReturnsPeriod = 14
	}
	if o.MinimumReturns == 0 {
		o.MinimumReturns = 0.01
	}
	if o.MAPeriodVolume == 0 {
		o.MAPeriodVolume = 14
	}
	if o.EMAPeriodDailyRetracement == 0 {
		o.EMAPeriodDailyRetracement = 20
	}
	if o.EMAPeriodDaily == 0 {
		o.EMAPeriodDaily = 14
	}
	if o.ATRRetracementMultiplier == 0 {
		o.ATRRetracementMultiplier = 1.0
	}
	if o.EMAPeriodFast == 0 {
		o.EMAPeriodFast = 12
	}
	if o.EMAPeriodMid == 0 {
		o.EMAPeriodMid = 26
	}
	if o.VolumeBalancePeriod == 0 {
		o.VolumeBalancePeriod = 20
	}
	return o
}

// Input bundles everything the entry gate needs for one market on one run.
type Input struct {
	Ticker     model.Ticker
	Trend      float64
	PriceLevel float64

	BaseBalance  model.Balance
	QuoteBalance model.Balance
	TargetBalance decimal.Decimal

	MinDealAmount decimal.Decimal

	DayCandles  []model.Candle // >= 30
	HourCandles []model.Candle // >= 60
	Trades      []model.Trade

	HasStickyBuy        bool
	CanEnterMoreMarkets bool
}

// Action is what the entry gate decided to do this run.
type Action struct {
	ShouldEnter   bool
	Amount        decimal.Decimal
	Price         decimal.Decimal
	CancelAll     bool
	TransitionIdle bool
}

// Evaluate runs the Entry procedure for one market and returns the action
// to take, or the zero Action if nothing should change.
func Evaluate(in Input, opts Options) Action {
	opts = opts.withDefaults()

	if in.HasStickyBuy {
		if !entryPossible(in, opts) {
			return Action{CancelAll: true, TransitionIdle: true}
		}
		return Action{}
	}

	if in.BaseBalance.Total().GreaterThanOrEqual(in.MinDealAmount) {
		return Action{}
	}

	if in.TargetBalance.LessThanOrEqual(decimal.Zero) || !in.CanEnterMoreMarkets || !entryPossible(in, opts) {
		return Action{}
	}

	amount := decimal.Max(decimal.Zero, in.TargetBalance.Sub(in.BaseBalance.Total()))
	quoteBudgetInBase := decimal.Zero
	if in.Ticker.Bid > 0 {
		quoteBudgetInBase = in.QuoteBalance.ExposedFree().Div(decimal.NewFromFloat(in.Ticker.Bid))
	}
	amount = decimal.Min(amount, quoteBudgetInBase)

	minRequired := in.MinDealAmount
	if in.Ticker.Bid > 0 && opts.MinimumNotional > 0 {
		minNotionalInBase := decimal.NewFromFloat(opts.MinimumNotional / in.Ticker.Bid)
		minRequired = decimal.Max(in.MinDealAmount, minNotionalInBase)
	}
	if amount.LessThan(minRequired) {
		return Action{}
	}

	return Action{
		ShouldEnter: true,
		Amount:      amount,
		Price:       decimal.NewFromFloat(in.Ticker.Bid),
		CancelAll:   true,
	}
}

// entryPossible evaluates every clause of the entry gate; all must hold.
func entryPossible(in Input, opts Options) bool {
	if in.Trend < opts.MinimumTrend {
		return false
	}
	if in.PriceLevel > opts.MaximumPriceLevel {
		return false
	}
	if len(in.DayCandles) < 1 {
		return false
	}

	dayMinusLast := in.DayCandles[:len(in.DayCandles)-1]
	closes := model.Closes(dayMinusLast)
	returns := indicator.LogReturns(closes)
	if len(returns) < opts.MinimumReturnsPeriod {
		return false
	}
	recent := returns[len(returns)-opts.MinimumReturnsPeriod:]
	if indicator.Mean(recent) < opts.MinimumReturns {
		return false
	}
	atLeast := opts.MinimumReturnsPeriod / 3
	count := 0
	for _, r := range recent {
		if r >= opts.MinimumReturns {
			count++
		}
	}
	if count < atLeast {
		return false
	}

	volumes := model.Volumes(in.DayCandles)
	if len(volumes) < 2 {
		return false
	}
	withoutLast := volumes[:len(volumes)-1]
	tailVolume := indicator.Tail(withoutLast)
	maVolume := indicator.MA(volumes, opts.MAPeriodVolume)
	if tailVolume < indicator.Tail(maVolume) {
		return false
	}

	dailyCloses := model.Closes(in.DayCandles)
	emaDaily := indicator.EMA(dailyCloses, opts.EMAPeriodDailyRetracement)
	atrDaily := indicator.ATR(model.Highs(in.DayCandles), model.Lows(in.DayCandles), dailyCloses, opts.EMAPeriodDaily)
	retracementLine := indicator.Tail(emaDaily) - indicator.Tail(atrDaily)*opts.ATRRetracementMultiplier
	if in.Ticker.Bid >= retracementLine {
		return false
	}

	hourCloses := model.Closes(in.HourCandles)
	emaFast := indicator.Tail(indicator.EMA(hourCloses, opts.EMAPeriodFast))
	emaMid := indicator.Tail(indicator.EMA(hourCloses, opts.EMAPeriodMid))
	if emaFast >= emaMid {
		return false
	}

	if volumeBalance(in.Trades, opts.VolumeBalancePeriod) < 0 {
		return false
	}

	return true
}

// volumeBalance returns (buy-sell)/(buy+sell) over the last `period` trades,
// or 0 (pass) if there are no trades.
func volumeBalance(trades []model.Trade, period int) float64 {
	if len(trades) == 0 {
		return 0
	}
	if period > 0 && len(trades) > period {
		trades = trades[len(trades)-period:]
	}
	var buy, sell float64
	for _, t := range trades {
		amt, _ := t.Amount.Float64()
		if t.Side == model.OrderSideBuy {
			buy += amt
		} else {
			sell += amt
		}
	}
	total := buy + sell
	if total == 0 {
		return 0
	}
	return (buy - sell) / total
}

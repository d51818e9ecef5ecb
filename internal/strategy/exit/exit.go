// Package exit implements the Exit strategy: the HasPosition and
// TryingToLeave half of the per-market state machine, deciding when to
// unwind an open position.
package exit

import (
	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/indicator"
	"github.com/coachpo/marketmaker/internal/model"
)

// Options configures the exit gate.
type Options struct {
	TakeProfitRSIThreshold    float64 // default 80
	MinNextQuoteDifference    float64 // default 0.005
	TakeProfitATRMultiplier   float64 // default 3.0
	ReturnBasedExitAfterMs    int64   // default 24h
	MAPeriodReturns           int     // default 14
	ReturnThreshold           float64 // default 0
	EMAPeriodSlow             int     // default 20
	MinimumNotional           float64
}

func (o Options) withDefaults() Options {
	if o.TakeProfitRSIThreshold == 0 {
		o.TakeProfitRSIThreshold = 80
	}
	if o.MinNextQuoteDifference == 0 {
		o.MinNextQuoteDifference = 0.005
	}
	if o.TakeProfitATRMultiplier == 0 {
		o.TakeProfitATRMultiplier = 3.0
	}
	if o.ReturnBasedExitAfterMs == 0 {
		o.ReturnBasedExitAfterMs = 24 * 60 * 60 * 1000
	}
	if o.MAPeriodReturns == 0 {
		o.MAPeriodReturns = 14
	}
	if o.EMAPeriodSlow == 0 {
		o.EMAPeriodSlow = 20
	}
	return o
}

// Input bundles what the exit gate needs for one market on one run.
type Input struct {
	Now            int64
	Ticker         model.Ticker
	BaseBalance    model.Balance
	MinDealAmount  decimal.Decimal
	EntryPrice     decimal.Decimal
	EntryTimestamp int64

	// LastClosedBuy backfills EntryPrice/EntryTimestamp when unset.
	LastClosedBuy *model.Order

	DayCandles  []model.Candle // >= 30
	HourCandles []model.Candle

	HasStickySell bool
	CanTrade      bool
}

// Action is what the exit gate decided to do this run.
type Action struct {
	ShouldExit        bool
	Amount            decimal.Decimal
	CancelAll         bool
	TransitionHasPosition bool
	EntryPrice        decimal.Decimal
	EntryTimestamp    int64
}

// Evaluate runs the Exit procedure for one market and returns the action to
// take, or the zero Action if nothing should change. Exit only runs once
// the position clears the minimum deal/notional floor.
func Evaluate(in Input, opts Options) Action {
	opts = opts.withDefaults()

	minRequired := in.MinDealAmount
	if in.Ticker.Ask > 0 && opts.MinimumNotional > 0 {
		minNotionalInBase := decimal.NewFromFloat(opts.MinimumNotional / in.Ticker.Ask)
		minRequired = decimal.Max(in.MinDealAmount, minNotionalInBase)
	}
	if in.BaseBalance.Total().LessThanOrEqual(minRequired) {
		return Action{}
	}

	entryPrice := in.EntryPrice
	entryTimestamp := in.EntryTimestamp
	backfilled := false
	if entryPrice.IsZero() || entryTimestamp == 0 {
		if in.LastClosedBuy != nil {
			entryPrice = in.LastClosedBuy.Price
			entryTimestamp = in.LastClosedBuy.TimestampClosed
		} else {
			entryPrice = decimal.NewFromFloat(in.Ticker.Last)
			entryTimestamp = in.Now
		}
		backfilled = true
	}

	if in.HasStickySell {
		if !exitTriggered(in, opts, entryPrice, entryTimestamp) && in.CanTrade {
			return Action{CancelAll: true, TransitionHasPosition: true, EntryPrice: entryPrice, EntryTimestamp: entryTimestamp}
		}
		if backfilled {
			return Action{EntryPrice: entryPrice, EntryTimestamp: entryTimestamp}
		}
		return Action{}
	}

	if !exitTriggered(in, opts, entryPrice, entryTimestamp) {
		if backfilled {
			return Action{EntryPrice: entryPrice, EntryTimestamp: entryTimestamp}
		}
		return Action{}
	}

	return Action{
		ShouldExit:     true,
		Amount:         in.BaseBalance.ExposedFree(),
		CancelAll:      true,
		EntryPrice:     entryPrice,
		EntryTimestamp: entryTimestamp,
	}
}

func exitTriggered(in Input, opts Options, entryPrice decimal.Decimal, entryTimestamp int64) bool {
	return takeProfitRSI(in, opts, entryPrice) ||
		takeProfitATR(in, opts, entryPrice) ||
		returnBasedExit(in, opts, entryTimestamp)
}

func takeProfitRSI(in Input, opts Options, entryPrice decimal.Decimal) bool {
	if len(in.DayCandles) == 0 {
		return false
	}
	closes := model.Closes(in.DayCandles)
	rsi := indicator.Tail(indicator.RSI(closes, 14))
	if rsi < opts.TakeProfitRSIThreshold {
		return false
	}
	entry, _ := entryPrice.Float64()
	return in.Ticker.Ask > entry*(1+opts.MinNextQuoteDifference)
}

func takeProfitATR(in Input, opts Options, entryPrice decimal.Decimal) bool {
	if len(in.DayCandles) == 0 {
		return false
	}
	atr := indicator.Tail(indicator.ATR(model.Highs(in.DayCandles), model.Lows(in.DayCandles), model.Closes(in.DayCandles), 20))
	entry, _ := entryPrice.Float64()
	return in.Ticker.Ask >= entry+opts.TakeProfitATRMultiplier*atr
}

func returnBasedExit(in Input, opts Options, entryTimestamp int64) bool {
	if in.Now < entryTimestamp+opts.ReturnBasedExitAfterMs {
		return false
	}
	if len(in.DayCandles) == 0 {
		return false
	}
	closes := model.Closes(in.DayCandles)
	returns := indicator.LogReturns(closes)
	ma := indicator.Tail(indicator.MA(returns, opts.MAPeriodReturns))
	if ma > opts.ReturnThreshold {
		return false
	}
	if len(in.HourCandles) == 0 {
		return false
	}
	emaSlow := indicator.Tail(indicator.EMA(model.Closes(in.HourCandles), opts.EMAPeriodSlow))
	return in.Ticker.Average() > emaSlow
}

// ComputeStopPrice returns the trailing-stop price below which an ask would
// trigger a stop. Evaluate does not call it and no Options field enables
// it, so no exit path uses a trailing stop (see DESIGN.md).
func ComputeStopPrice(highSinceEntry, atr, volatilityMultiplier float64) float64 {
	return highSinceEntry - atr*volatilityMultiplier
}

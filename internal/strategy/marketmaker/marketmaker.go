// Package marketmaker implements the market-making core: per-market
// two-sided quoting once Entry/Exit have settled the agent into HasPosition.
package marketmaker

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/indicator"
	"github.com/coachpo/marketmaker/internal/model"
)

// Options configures the quoting core. Zero values fall back to the
// defaults noted per field.
type Options struct {
	Sigma                       float64 // default 0.05
	Mu                          float64 // default 0
	InventorySteps              int     // default 8
	SpreadFixedTerm             float64 // default 0.005
	SpreadSigmaMultiplier       float64 // default 0.1
	RiskAversionCorrection      float64 // default 0.1
	MinDealAmount               decimal.Decimal
	MinimumNotionalValue        float64
	MinNextQuoteDifference      float64 // default 0.005
	DynamicAmountDropoff        float64 // default 20
	EMAPeriodSlow               int     // default 20
	TradingRangeSigmaMultiplier float64 // default 1
	TradeVolumeCap              float64 // default 0.01
	CoolOffPeriod               time.Duration // default 2h
	AutoCancelAtFillPercentage  float64
}

func (o Options) withDefaults() Options {
	if o.Sigma == 0 {
		o.Sigma = 0.05
	}
	if o.InventorySteps == 0 {
		o.InventorySteps = 8
	}
	if o.SpreadFixedTerm == 0 {
		o.SpreadFixedTerm = 0.005
	}
	if o.SpreadSigmaMultiplier == 0 {
		o.SpreadSigmaMultiplier = 0.1
	}
	if o.RiskAversionCorrection == 0 {
		o.RiskAversionCorrection = 0.1
	}
	if o.MinNextQuoteDifference == 0 {
		o.MinNextQuoteDifference = 0.005
	}
	if o.DynamicAmountDropoff == 0 {
		o.DynamicAmountDropoff = 20
	}
	if o.EMAPeriodSlow == 0 {
		o.EMAPeriodSlow = 20
	}
	if o.TradingRangeSigmaMultiplier == 0 {
		o.TradingRangeSigmaMultiplier = 1
	}
	if o.TradeVolumeCap == 0 {
		o.TradeVolumeCap = 0.01
	}
	if o.CoolOffPeriod == 0 {
		o.CoolOffPeriod = 2 * time.Hour
	}
	if o.AutoCancelAtFillPercentage == 0 {
		o.AutoCancelAtFillPercentage = 1
	}
	return o
}

// Input bundles what the quoting core needs for one market on one run.
type Input struct {
	Now int64

	Ticker        model.Ticker
	HourCandles   []model.Candle
	BaseBalance   model.Balance
	QuoteBalance  model.Balance
	TargetBalance decimal.Decimal

	HasOpenBuy  bool
	HasOpenSell bool

	LastClosedSell *model.Order
	LastClosedBuy  *model.Order
}

// Side is one leg of a two-sided quote.
type Side struct {
	Place  bool
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Action is what the quoting core decided for this run.
type Action struct {
	CancelAll bool
	Buy       Side
	Sell      Side
	AutoCancelAtFillPercentage float64
}

// Evaluate runs the market-maker procedure for one market and returns the
// quoting action to take, or the zero Action if both sides are already
// resting and nothing needs to change.
func Evaluate(in Input, opts Options) Action {
	opts = opts.withDefaults()

	if in.HasOpenBuy && in.HasOpenSell {
		return Action{}
	}

	hourCloses := model.Closes(in.HourCandles)
	emaSlow := indicator.Tail(indicator.EMA(hourCloses, opts.EMAPeriodSlow))
	mid := in.Ticker.Average()

	bid, ask := quotePrices(in, opts, mid)
	bid, ask = applyCoolOff(in, opts, bid, ask)

	buyAmount, sellAmount := dealAmounts(in, opts, mid, emaSlow)

	canBuy, buyPrice, buyAmountDec := capBuy(in, bid, buyAmount, opts)
	canSell, sellPrice, sellAmountDec := capSell(in, ask, sellAmount, opts)

	mismatch := canBuy != in.HasOpenBuy || canSell != in.HasOpenSell
	if !mismatch {
		return Action{}
	}

	return Action{
		CancelAll:                  true,
		Buy:                        Side{Place: canBuy, Price: buyPrice, Amount: buyAmountDec},
		Sell:                       Side{Place: canSell, Price: sellPrice, Amount: sellAmountDec},
		AutoCancelAtFillPercentage: opts.AutoCancelAtFillPercentage,
	}
}

func quotePrices(in Input, opts Options, mid float64) (bid, ask float64) {
	baseTotal, _ := in.BaseBalance.Total().Float64()
	targetBalance, _ := in.TargetBalance.Float64()

	var offset float64
	if targetBalance != 0 {
		offset = (baseTotal - targetBalance) / targetBalance
	}

	s := opts.SpreadFixedTerm + opts.SpreadSigmaMultiplier*opts.Sigma
	bid = mid - (mid*s*(1+offset))/2
	ask = mid + (mid*s*(1-offset))/2

	rac := math.Exp(math.Log(2)*math.Abs(offset)) * opts.RiskAversionCorrection * opts.Sigma
	if offset > 0 {
		bid *= 1 - rac
	} else {
		ask *= 1 + rac
	}
	return bid, ask
}

func applyCoolOff(in Input, opts Options, bid, ask float64) (float64, float64) {
	if in.LastClosedSell != nil && in.Now-in.LastClosedSell.TimestampClosed < opts.CoolOffPeriod.Milliseconds() {
		price, _ := in.LastClosedSell.Price.Float64()
		cap := price * (1 - opts.MinNextQuoteDifference)
		if bid > cap {
			bid = cap
		}
	}
	if in.LastClosedBuy != nil && in.Now-in.LastClosedBuy.TimestampClosed < opts.CoolOffPeriod.Milliseconds() {
		price, _ := in.LastClosedBuy.Price.Float64()
		floor := price * (1 + opts.MinNextQuoteDifference)
		if ask < floor {
			ask = floor
		}
	}
	return bid, ask
}

func dealAmounts(in Input, opts Options, mid, emaSlow float64) (buy, sell float64) {
	targetBalance, _ := in.TargetBalance.Float64()
	deal := targetBalance / float64(opts.InventorySteps)
	if cap := opts.TradeVolumeCap * in.Ticker.BaseVolume; cap < deal {
		deal = cap
	}

	var priceLevel float64
	if emaSlow != 0 {
		priceLevel = mid/emaSlow - 1
	}

	buy = deal
	sell = deal
	if priceLevel > 0 {
		buy = deal * math.Exp(-priceLevel*opts.DynamicAmountDropoff)
	}
	if priceLevel < 0 {
		sell = deal * math.Exp(priceLevel*opts.DynamicAmountDropoff)
	}
	return buy, sell
}

func capBuy(in Input, bid, amount float64, opts Options) (bool, decimal.Decimal, decimal.Decimal) {
	if bid <= 0 {
		return false, decimal.Zero, decimal.Zero
	}
	minRequired := opts.MinDealAmount
	if opts.MinimumNotionalValue > 0 {
		minNotionalInBase := decimal.NewFromFloat(opts.MinimumNotionalValue / bid)
		minRequired = decimal.Max(opts.MinDealAmount, minNotionalInBase)
	}
	quoteFree, _ := in.QuoteBalance.ExposedFree().Float64()
	capped := amount
	if quoteFreeInBase := quoteFree / bid; quoteFreeInBase < capped {
		capped = quoteFreeInBase
	}
	amt := decimal.NewFromFloat(capped)
	if amt.LessThan(minRequired) {
		return false, decimal.Zero, decimal.Zero
	}
	return true, decimal.NewFromFloat(bid), amt
}

func capSell(in Input, ask, amount float64, opts Options) (bool, decimal.Decimal, decimal.Decimal) {
	if ask <= 0 {
		return false, decimal.Zero, decimal.Zero
	}
	minRequired := opts.MinDealAmount
	if opts.MinimumNotionalValue > 0 {
		minNotionalInBase := decimal.NewFromFloat(opts.MinimumNotionalValue / ask)
		minRequired = decimal.Max(opts.MinDealAmount, minNotionalInBase)
	}
	baseFree, _ := in.BaseBalance.ExposedFree().Float64()
	capped := amount
	if baseFree < capped {
		capped = baseFree
	}
	amt := decimal.NewFromFloat(capped)
	if amt.LessThan(minRequired) {
		return false, decimal.Zero, decimal.Zero
	}
	return true, decimal.NewFromFloat(ask), amt
}

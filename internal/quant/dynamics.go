package quant

import (
	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/model"
)

// DynamicsCandlesRequired is the number of 15m candles computeMarketDynamicsParameters
// needs (N in the spread-precision first-passage-time regression).
const DynamicsCandlesRequired = 1000

// SpreadPrecision and StepCount parameterize the price grid used by the
// first-passage-time regression: S steps of size ΔP = open0*(p/(2S)).
const (
	SpreadPrecision = 0.03
	StepCount       = 100
)

// DynamicsParameters holds the fitted intensity parameters A and k from
// logλ[s] = ln(A) − k·s·ΔP, one pair per side.
type DynamicsParameters struct {
	ABuy, KBuy   float64
	ASell, KSell float64
}

// ComputeMarketDynamicsParameters fits order-arrival intensity parameters
// from first-passage times of the mid price through a grid of distances,
// taking mid prices from the first half of the candle window and sampling
// the extremes of every later candle.
func ComputeMarketDynamicsParameters(candles []model.Candle) (DynamicsParameters, error) {
	if len(candles) < DynamicsCandlesRequired {
		return DynamicsParameters{}, errs.New("quant.ComputeMarketDynamicsParameters", errs.CodeInsufficientData,
			errs.WithMessage("need at least 1000 15m candles to fit market dynamics parameters"),
		)
	}
	window := candles[len(candles)-DynamicsCandlesRequired:]
	n := len(window)
	half := n / 2
	deltaP := window[0].Open * (SpreadPrecision / (2 * StepCount))

	buySum := make([]float64, StepCount+1)
	buyCount := make([]float64, StepCount+1)
	sellSum := make([]float64, StepCount+1)
	sellCount := make([]float64, StepCount+1)

	for i := 0; i < half && i+1 < n; i++ {
		mid := 0.5*window[i].Close + 0.5*window[i+1].Close
		buyHit := make([]bool, StepCount+1)
		sellHit := make([]bool, StepCount+1)
		for c := i + 1; c < n; c++ {
			tau := float64(c-i) / 96 // 15m bars per day = 96
			for s := 1; s <= StepCount; s++ {
				threshold := float64(s) * deltaP
				if !buyHit[s] && mid-window[c].Low > threshold {
					buyHit[s] = true
					buySum[s] += tau
					buyCount[s]++
				}
				if !sellHit[s] && window[c].High-mid > threshold {
					sellHit[s] = true
					sellSum[s] += tau
					sellCount[s]++
				}
			}
		}
	}

	aBuy, kBuy := fitIntensity(buySum, buyCount, deltaP)
	aSell, kSell := fitIntensity(sellSum, sellCount, deltaP)
	return DynamicsParameters{ABuy: aBuy, KBuy: kBuy, ASell: aSell, KSell: kSell}, nil
}

// fitIntensity runs the logλ[s] = b − k·s·ΔP linear regression over the
// steps with nonzero aggregate passage time, returning A = exp(b) and k.
func fitIntensity(sum, count []float64, deltaP float64) (a, k float64) {
	var xs, ys []float64
	for s := 1; s < len(sum); s++ {
		if sum[s] <= 0 || count[s] <= 0 {
			continue
		}
		lambda := count[s] / sum[s]
		xs = append(xs, float64(s)*deltaP)
		ys = append(ys, logSafe(lambda))
	}
	b, slope := simpleLinearRegression(xs, ys)
	return expSafe(b), -slope
}

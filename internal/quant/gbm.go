// Package quant implements the statistical estimators and optimal-quoting
// formula that drive the market-making strategy: Geometric Brownian Motion
// parameter estimation, market first-passage-time dynamics, and the
// Guéant–Lehalle–Fernandez-Tapia quoting distances.
package quant

import (
	"math"
	"strconv"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/indicator"
	"github.com/coachpo/marketmaker/internal/model"
)

// GBMHoursRequired is the number of 1h candles computeGBMParameters needs
// (24 hours * 7 days).
const GBMHoursRequired = 24 * 7

// GBMParameters holds the annualized-style GBM drift and volatility
// estimated from hourly log-returns, day-scaled per the quoting model.
type GBMParameters struct {
	Sigma float64
	Mu    float64
}

// ComputeGBMParameters estimates σ and μ from the last GBMHoursRequired 1h
// candles: σ = std_unbiased(logReturns)·√24, μ = mean(logReturns)·24 + ½σ².
func ComputeGBMParameters(candles []model.Candle) (GBMParameters, error) {
	if len(candles) < GBMHoursRequired {
		return GBMParameters{}, errs.New("quant.ComputeGBMParameters", errs.CodeInsufficientData,
			errs.WithMessage("need at least 168 1h candles to estimate GBM parameters"),
			errs.WithField("have", strconv.Itoa(len(candles))),
		)
	}
	window := candles[len(candles)-GBMHoursRequired:]
	closes := model.Closes(window)
	returns := indicator.LogReturns(closes)
	// logReturns[0] is always 0 by construction; exclude it from the
	// estimator so it does not bias the mean/stddev toward zero.
	sample := returns[1:]
	sigma := indicator.StdDevUnbiased(sample) * math.Sqrt(24)
	mu := indicator.Mean(sample)*24 + 0.5*sigma*sigma
	return GBMParameters{Sigma: sigma, Mu: mu}, nil
}

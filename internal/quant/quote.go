package quant

import "math"

// SideIntensity is the fitted order-arrival intensity (A, k) for one side
// of the book, as produced by ComputeMarketDynamicsParameters.
type SideIntensity struct {
	A, K float64
}

// Quote is the midpoint-relative bid/ask produced by computeQuote, with the
// spread it implies.
type Quote struct {
	Bid    float64
	Ask    float64
	Spread float64
}

// ComputeSpread returns the raw bid/ask distances from mid implied by the
// Guéant–Lehalle–Fernandez-Tapia formula for inventory q (signed,
// unit-inventory steps), without applying the crossing safeguard.
//
// sqrtTerm = √(σ²γ / (2kA) · (1+γ/k)^(1+k/γ)); lnTerm = (1/γ)·ln(1+γ/k).
// bidMultiplier = (2q+1)/2 (+ −μ/(γσ²) if driftAware); bidDistance =
// lnTerm_buy + bidMultiplier·sqrtTerm_buy. askMultiplier mirrors it with the
// opposite inventory sign and drift term.
func ComputeSpread(sigma, mu, gamma float64, buy, sell SideIntensity, q int, driftAware bool) (bidDistance, askDistance float64, ok bool) {
	if sigma <= 0 || gamma <= 0 {
		return 0, 0, false
	}
	bidDist, bidOK := sideDistance(sigma, gamma, buy)
	askDist, askOK := sideDistance(sigma, gamma, sell)
	if !bidOK || !askOK {
		return 0, 0, false
	}

	var drift float64
	if driftAware && sigma != 0 {
		drift = mu / (gamma * sigma * sigma)
	}

	bidMultiplier := (2*float64(q) + 1) / 2
	askMultiplier := -(2*float64(q) - 1) / 2
	if driftAware {
		bidMultiplier -= drift
		askMultiplier += drift
	}

	bidDistance = bidDist.lnTerm + bidMultiplier*bidDist.sqrtTerm
	askDistance = askDist.lnTerm + askMultiplier*askDist.sqrtTerm
	return bidDistance, askDistance, true
}

type sideDistanceTerms struct {
	sqrtTerm float64
	lnTerm   float64
}

func sideDistance(sigma, gamma float64, side SideIntensity) (sideDistanceTerms, bool) {
	if side.K <= 0 || side.A <= 0 {
		return sideDistanceTerms{}, false
	}
	ratio := gamma / side.K
	base := 1 + ratio
	exponent := 1 + side.K/gamma
	inner := (sigma * sigma * gamma) / (2 * side.K * side.A) * math.Pow(base, exponent)
	if inner < 0 {
		return sideDistanceTerms{}, false
	}
	sqrtTerm := math.Sqrt(inner)
	lnTerm := (1 / gamma) * math.Log(base)
	return sideDistanceTerms{sqrtTerm: sqrtTerm, lnTerm: lnTerm}, true
}

// ComputeQuote derives the absolute bid/ask prices from mid and the
// Guéant distances, clamped so neither quote ever crosses the mid: bid is
// never above mid, ask is never below it.
func ComputeQuote(sigma, mu, gamma float64, buy, sell SideIntensity, mid float64, q int, driftAware bool) Quote {
	bidDistance, askDistance, ok := ComputeSpread(sigma, mu, gamma, buy, sell, q, driftAware)
	if !ok || mid <= 0 {
		return Quote{}
	}
	bid := math.Min(mid, mid-bidDistance)
	ask := math.Max(mid, mid+askDistance)
	return Quote{Bid: bid, Ask: ask, Spread: ask - bid}
}

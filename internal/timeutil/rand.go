package timeutil

import (
	"math"
	"math/rand/v2"
)

// RandomBetween returns a uniformly distributed float64 in [lo, hi).
func RandomBetween(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rand.Float64()*(hi-lo)
}

// Gaussian approximates a Normal(mu, sigma) sample via the Irwin-Hall method:
// the sum of n uniform(0,1) draws, centered and scaled, converges to a
// standard normal as n grows. n=6 is the engine's default, matching the
// precision the original quoting model was tuned against.
func Gaussian(mu, sigma float64, n int) float64 {
	if n <= 0 {
		n = 6
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += rand.Float64()
	}
	mean := float64(n) / 2
	variance := float64(n) / 12
	z := (sum - mean) / math.Sqrt(variance)
	return mu + sigma*z
}

package indicator

import "math"

// LogReturns computes the log-return series of a close price series: 0 at
// index 0, then ln(close[i]/close[i-1]).
func LogReturns(close []float64) []float64 {
	out := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		if close[i-1] <= 0 || close[i] <= 0 {
			out[i] = 0
			continue
		}
		out[i] = math.Log(close[i] / close[i-1])
	}
	return out
}

// Mean returns the arithmetic mean of x, or 0 for an empty series.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// StdDevUnbiased returns the sample (n-1 denominator) standard deviation of
// x, or 0 for fewer than two samples.
func StdDevUnbiased(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}
	mean := Mean(x)
	var sumSq float64
	for _, v := range x {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Tail returns the last element of x, or 0 for an empty series.
func Tail(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return x[len(x)-1]
}

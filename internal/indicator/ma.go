// Package indicator implements technical indicators over ordered float64
// sequences, each returning a result series the same length as its input.
package indicator

// MA computes the simple moving average of x with window p. At index i the
// window covers min(i+1, p) trailing samples, so the series has no warm-up
// gap at the front.
func MA(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	if p <= 0 {
		p = 1
	}
	var sum float64
	for i := range x {
		sum += x[i]
		window := i + 1
		if window > p {
			sum -= x[i-p]
			window = p
		}
		out[i] = sum / float64(window)
	}
	return out
}

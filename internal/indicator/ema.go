package indicator

// EMA computes the exponential moving average of x with period p, using
// smoothing factor k = 2/(p+1). The series seeds at x[0] rather than an MA
// warm-up, so there is no leading zero-value segment.
func EMA(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	if p <= 0 {
		p = 1
	}
	k := 2 / (float64(p) + 1)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = x[i]*k + out[i-1]*(1-k)
	}
	return out
}

// VolumeEMA computes EMA(x*v, p) / EMA(v, p) elementwise, the volume-weighted
// EMA used by the entry/exit retracement and trend gates.
func VolumeEMA(x, v []float64, p int) []float64 {
	n := len(x)
	if len(v) < n {
		n = len(v)
	}
	xv := make([]float64, n)
	for i := 0; i < n; i++ {
		xv[i] = x[i] * v[i]
	}
	emaXV := EMA(xv, p)
	emaV := EMA(v[:n], p)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if emaV[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = emaXV[i] / emaV[i]
	}
	return out
}

package indicator

// RSI computes the Relative Strength Index over a close series with period p
// (default 14 when p<=0), using 100 - 100/(1+rs). See DESIGN.md for a note
// on a precedence variant of this formula that was considered and rejected.
func RSI(close []float64, p int) []float64 {
	if p <= 0 {
		p = 14
	}
	n := len(close)
	up := make([]float64, n)
	dn := make([]float64, n)
	for i := 1; i < n; i++ {
		delta := close[i] - close[i-1]
		if delta > 0 {
			up[i] = delta
		} else {
			dn[i] = -delta
		}
	}
	emaUp := EMA(up, p)
	emaDn := EMA(dn, p)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if emaDn[i] == 0 {
			out[i] = 100
			continue
		}
		rs := emaUp[i] / emaDn[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

package indicator

// ATR computes the Average True Range over high/low/close series with
// period p (default 14 when p<=0). tr[0] is simply high[0]-low[0]; later
// values take the max of the day's range and the two gap distances from the
// prior close.
func ATR(high, low, close []float64, p int) []float64 {
	if p <= 0 {
		p = 14
	}
	n := len(high)
	if len(low) < n {
		n = len(low)
	}
	if len(close) < n {
		n = len(close)
	}
	tr := make([]float64, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			tr[i] = high[i] - low[i]
			continue
		}
		rangeHL := high[i] - low[i]
		gapHigh := absF(high[i] - close[i-1])
		gapLow := absF(low[i] - close[i-1])
		tr[i] = maxF(rangeHL, maxF(gapHigh, gapLow))
	}
	return EMA(tr, p)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

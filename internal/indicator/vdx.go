package indicator

// VDX computes the volume-weighted directional movement index over
// high/low/close/volume series with period p (default 14 when p<=0).
//
// Bull/bear points follow the classic Wilder directional-movement
// construction (up-move vs down-move, whichever dominates and is
// positive), normalized by the bar's close rather than raw price so the
// result is comparable across instruments; the volume-weighted EMA then
// plays the role Wilder's smoothed +DI/-DI play in the unweighted
// indicator. VDX is in [-1, 1]: positive when directional movement is
// dominated by up-moves, negative when dominated by down-moves.
func VDX(high, low, close, volume []float64, p int) []float64 {
	plus, minus := vdi(high, low, close, volume, p)
	n := len(plus)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		denom := plus[i] + minus[i]
		if denom == 0 {
			out[i] = 0
			continue
		}
		out[i] = (plus[i] - minus[i]) / denom
	}
	return out
}

// VDIPlus returns the volume-weighted positive directional indicator series.
func VDIPlus(high, low, close, volume []float64, p int) []float64 {
	plus, _ := vdi(high, low, close, volume, p)
	return plus
}

// VDIMin returns the volume-weighted negative directional indicator series.
func VDIMin(high, low, close, volume []float64, p int) []float64 {
	_, minus := vdi(high, low, close, volume, p)
	return minus
}

func vdi(high, low, close, volume []float64, p int) ([]float64, []float64) {
	if p <= 0 {
		p = 14
	}
	n := len(high)
	for _, s := range [][]float64{low, close, volume} {
		if len(s) < n {
			n = len(s)
		}
	}
	bull := make([]float64, n)
	bear := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := high[i] - high[i-1]
		downMove := low[i-1] - low[i]
		if close[i] == 0 {
			continue
		}
		if upMove > downMove && upMove > 0 {
			bull[i] = upMove / close[i]
		}
		if downMove > upMove && downMove > 0 {
			bear[i] = downMove / close[i]
		}
	}
	plus := VolumeEMA(bull, volume[:n], p)
	minus := VolumeEMA(bear, volume[:n], p)
	return plus, minus
}

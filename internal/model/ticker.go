package model

// Ticker is a point-in-time quote snapshot for a market.
type Ticker struct {
	Timestamp   int64
	Bid         float64
	Ask         float64
	Last        float64
	BaseVolume  float64
	QuoteVolume float64
}

// Average returns the midpoint of the bid/ask spread.
func (t Ticker) Average() float64 {
	return (t.Bid + t.Ask) / 2
}

// Spread returns the absolute bid/ask spread.
func (t Ticker) Spread() float64 {
	return t.Ask - t.Bid
}

package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBalanceExposedFreeAndTotal(t *testing.T) {
	b := Balance{Currency: "BTC", Free: dec("10"), Used: dec("2"), Locked: dec("3")}
	if !b.ExposedFree().Equal(dec("7")) {
		t.Errorf("ExposedFree() = %s, want 7", b.ExposedFree())
	}
	if !b.Total().Equal(dec("9")) {
		t.Errorf("Total() = %s, want 9", b.Total())
	}
}

func TestBalanceExposedFreeClampsAtZero(t *testing.T) {
	b := Balance{Currency: "BTC", Free: dec("1"), Used: dec("0"), Locked: dec("5")}
	if !b.ExposedFree().IsZero() {
		t.Errorf("ExposedFree() = %s, want 0", b.ExposedFree())
	}
}

func TestOrderFillRatio(t *testing.T) {
	o := Order{Amount: dec("10"), Filled: dec("4")}
	if ratio := o.FillRatio(); ratio != 0.4 {
		t.Errorf("FillRatio() = %v, want 0.4", ratio)
	}
}

func TestOrderFillRatioZeroAmount(t *testing.T) {
	o := Order{Amount: decimal.Zero, Filled: decimal.Zero}
	if ratio := o.FillRatio(); ratio != 0 {
		t.Errorf("FillRatio() = %v, want 0", ratio)
	}
}

func TestCandleQuoteVolumeEstimate(t *testing.T) {
	c := Candle{Open: 100, High: 110, Low: 90, Close: 100, Volume: 2}
	got := c.QuoteVolumeEstimate()
	want := 2.0 * (100 + 110 + 90 + 100) / 4
	if got != want {
		t.Errorf("QuoteVolumeEstimate() = %v, want %v", got, want)
	}
}

func TestTickerAverageAndSpread(t *testing.T) {
	tk := Ticker{Bid: 99, Ask: 101}
	if tk.Average() != 100 {
		t.Errorf("Average() = %v, want 100", tk.Average())
	}
	if tk.Spread() != 2 {
		t.Errorf("Spread() = %v, want 2", tk.Spread())
	}
}

func TestOrderBookBestLevels(t *testing.T) {
	ob := OrderBook{
		Bids: []OrderBookLevel{{Price: dec("50"), Amount: dec("1")}, {Price: dec("49"), Amount: dec("2")}},
		Asks: []OrderBookLevel{{Price: dec("51"), Amount: dec("1")}, {Price: dec("52"), Amount: dec("2")}},
	}
	bid, ok := ob.BestBid()
	if !ok || !bid.Price.Equal(dec("50")) {
		t.Errorf("BestBid() = %v, %v", bid, ok)
	}
	ask, ok := ob.BestAsk()
	if !ok || !ask.Price.Equal(dec("51")) {
		t.Errorf("BestAsk() = %v, %v", ask, ok)
	}
	second, ok := ob.SecondBestBid()
	if !ok || !second.Price.Equal(dec("49")) {
		t.Errorf("SecondBestBid() = %v, %v", second, ok)
	}
}

func TestOrderBookEmpty(t *testing.T) {
	var ob OrderBook
	if _, ok := ob.BestBid(); ok {
		t.Error("expected no best bid on empty book")
	}
	if _, ok := ob.BestAsk(); ok {
		t.Error("expected no best ask on empty book")
	}
}

func TestJobIsDue(t *testing.T) {
	past := Job{}
	if !past.IsDue(past.NextRunAt) {
		t.Error("zero-value job with zero NextRunAt should be due immediately")
	}
}

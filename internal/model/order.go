package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide identifies which side of the book an order rests on.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType identifies the order's execution semantics.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderStatus identifies the order's lifecycle position in the mirror.
type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "open"
	OrderStatusClosed OrderStatus = "closed"
)

// Order is the mirror's view of a single exchange order. ID, Market, Type,
// Side, Price, and Amount are set at creation and never mutated afterward;
// Status, Filled, Remaining, Fee, and TimestampClosed change as the mirror
// reconciles with the remote exchange.
type Order struct {
	ID        string
	Created   int64
	Market    string
	Type      OrderType
	Side      OrderSide
	Price     decimal.Decimal
	Amount    decimal.Decimal
	Fee       decimal.Decimal

	Status          OrderStatus
	Filled          decimal.Decimal
	Remaining       decimal.Decimal
	TimestampClosed int64

	// AutoCancel is the absolute order age, in milliseconds, after which the
	// mirror cancels the order regardless of fill state. Zero disables it.
	AutoCancel int64
	// AutoCancelAtFillPercentage cancels the order once Filled/Amount reaches
	// this fraction. Must be in (0,1]; defaults to 1 (only at full fill).
	AutoCancelAtFillPercentage float64
	// AutoCancelAtPriceLevel cancels a buy once best-ask exceeds the level, or
	// a sell once best-bid drops below it.
	AutoCancelAtPriceLevel decimal.Decimal
	// Sticky keeps the order at the top of its side of the book via
	// cancel-and-replace as level-1 moves away from it.
	Sticky bool
}

// Age returns the order's age in milliseconds as of now (epoch millis).
func (o Order) Age(nowMs int64) int64 {
	return nowMs - o.Created
}

// FillRatio returns Filled/Amount, or 0 if Amount is zero.
func (o Order) FillRatio() float64 {
	if o.Amount.IsZero() {
		return 0
	}
	ratio, _ := o.Filled.Div(o.Amount).Float64()
	return ratio
}

// NowMs returns the current time as epoch milliseconds, the clock the mirror
// uses for order ages and auto-cancel comparisons.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

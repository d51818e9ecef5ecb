package model

import "github.com/shopspring/decimal"

// Balance tracks a currency's raw exchange-reported amounts plus the
// strategy layer's own reservation intent.
//
// Free and Used mirror what the remote exchange reports. Locked is set
// locally by the strategy layer to reserve funds against a configured
// floor (see internal/mirror). The exposed free balance masks the raw
// free amount by the locked reservation.
type Balance struct {
	Currency string
	Free     decimal.Decimal
	Used     decimal.Decimal
	Locked   decimal.Decimal
}

// ExposedFree returns max(0, raw.Free - Locked).
func (b Balance) ExposedFree() decimal.Decimal {
	free := b.Free.Sub(b.Locked)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}

// Total returns ExposedFree() + Used.
func (b Balance) Total() decimal.Decimal {
	return b.ExposedFree().Add(b.Used)
}

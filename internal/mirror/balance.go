package mirror

import "github.com/shopspring/decimal"

// deposit increases a currency's free balance. Caller holds s.mu.
func (s *State) deposit(currency string, delta decimal.Decimal) {
	b := s.balanceLocked(currency)
	b.Free = b.Free.Add(delta)
}

// withdraw decreases a currency's free balance. Caller holds s.mu.
func (s *State) withdraw(currency string, delta decimal.Decimal) {
	b := s.balanceLocked(currency)
	b.Free = b.Free.Sub(delta)
}

// withdrawFromUsed decreases a currency's used balance. Caller holds s.mu.
func (s *State) withdrawFromUsed(currency string, delta decimal.Decimal) {
	b := s.balanceLocked(currency)
	b.Used = b.Used.Sub(delta)
}

// reserve moves delta (clamped to the free amount above the configured
// reserve floor) from free to used. Caller holds s.mu. Returns the amount
// actually reserved.
func (s *State) reserve(currency string, delta decimal.Decimal) decimal.Decimal {
	b := s.balanceLocked(currency)
	headroom := b.Free.Sub(s.cfg.reserveOf(currency))
	if headroom.IsNegative() {
		headroom = decimal.Zero
	}
	actual := decimal.Min(delta, headroom)
	if actual.IsNegative() {
		actual = decimal.Zero
	}
	b.Free = b.Free.Sub(actual)
	b.Used = b.Used.Add(actual)
	return actual
}

// release moves delta (clamped to the used amount) from used back to free.
// Caller holds s.mu. Returns the amount actually released.
func (s *State) release(currency string, delta decimal.Decimal) decimal.Decimal {
	b := s.balanceLocked(currency)
	actual := decimal.Min(delta, b.Used)
	if actual.IsNegative() {
		actual = decimal.Zero
	}
	b.Used = b.Used.Sub(actual)
	b.Free = b.Free.Add(actual)
	return actual
}

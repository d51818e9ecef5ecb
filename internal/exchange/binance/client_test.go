package binance

import "testing"

func TestSymbolOf(t *testing.T) {
	cases := map[string]string{
		"BTC/USDT": "BTCUSDT",
		"ETH/BTC":  "ETHBTC",
		"BTCUSDT":  "BTCUSDT",
	}
	for in, want := range cases {
		if got := symbolOf(in); got != want {
			t.Errorf("symbolOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrecisionOf(t *testing.T) {
	cases := map[string]int32{
		"0.00100000": 3,
		"1.00000000": 0,
		"0.00000001": 8,
	}
	for in, want := range cases {
		if got := precisionOf(in); got != want {
			t.Errorf("precisionOf(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseDecimalOrZero(t *testing.T) {
	if got := parseDecimalOrZero("not-a-number"); !got.IsZero() {
		t.Errorf("expected zero for malformed input, got %v", got)
	}
	if got := parseDecimalOrZero("1.5"); got.String() != "1.5" {
		t.Errorf("got %v, want 1.5", got)
	}
}

func TestSignDeterministic(t *testing.T) {
	a := sign("secret", "payload")
	b := sign("secret", "payload")
	if a != b {
		t.Errorf("sign should be deterministic for the same inputs")
	}
	if sign("secret", "payload") == sign("other", "payload") {
		t.Errorf("sign should depend on the secret")
	}
}

func TestFloatOrZero(t *testing.T) {
	if v := floatOrZero("bad"); v != 0 {
		t.Errorf("expected 0 for malformed float, got %v", v)
	}
	if v := floatOrZero("3.5"); v != 3.5 {
		t.Errorf("got %v, want 3.5", v)
	}
}

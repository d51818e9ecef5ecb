package timeutil

import "testing"

func TestPeriodToMs(t *testing.T) {
	cases := map[string]int64{
		"1s":  1_000,
		"1m":  60_000,
		"1h":  3_600_000,
		"1d":  86_400_000,
		"2d":  172_800_000,
		" 5M": 300_000,
		"15m": 900_000,
	}
	for input, want := range cases {
		got, err := PeriodToMs(input)
		if err != nil {
			t.Fatalf("PeriodToMs(%q): unexpected error: %v", input, err)
		}
		if got != want {
			t.Errorf("PeriodToMs(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestPeriodToMsInvalid(t *testing.T) {
	for _, input := range []string{"", "1", "m", "1x", "h5"} {
		if _, err := PeriodToMs(input); err == nil {
			t.Errorf("PeriodToMs(%q): expected error", input)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("Clamp(5,0,10) = %v", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Errorf("Clamp(-1,0,10) = %v", got)
	}
	if got := Clamp(11, 0, 10); got != 10 {
		t.Errorf("Clamp(11,0,10) = %v", got)
	}
}

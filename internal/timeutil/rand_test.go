package timeutil

import "testing"

func TestRandomBetweenBounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := RandomBetween(2, 5)
		if v < 2 || v >= 5 {
			t.Fatalf("RandomBetween(2,5) out of bounds: %v", v)
		}
	}
}

func TestRandomBetweenDegenerate(t *testing.T) {
	if got := RandomBetween(5, 5); got != 5 {
		t.Errorf("RandomBetween(5,5) = %v, want 5", got)
	}
}

func TestGaussianCentered(t *testing.T) {
	const n = 20000
	var sum float64
	for i := 0; i < n; i++ {
		sum += Gaussian(0, 1, 6)
	}
	mean := sum / n
	if mean < -0.1 || mean > 0.1 {
		t.Errorf("Gaussian(0,1,6) sample mean = %v, want near 0", mean)
	}
}

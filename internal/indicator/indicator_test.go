package indicator

import (
	"math"
	"testing"
)

func constantSeries(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestMAConstant(t *testing.T) {
	x := constantSeries(5, 10)
	ma := MA(x, 3)
	for i, v := range ma {
		if v != 5 {
			t.Errorf("MA[%d] = %v, want 5", i, v)
		}
	}
}

func TestEMAOfMAOfConstantEqualsConstant(t *testing.T) {
	x := constantSeries(7, 20)
	ma := MA(x, 5)
	ema := EMA(ma, 5)
	for i, v := range ema {
		if math.Abs(v-7) > 1e-9 {
			t.Errorf("EMA(MA(constant))[%d] = %v, want 7", i, v)
		}
	}
}

func TestEMASeedsAtFirstValue(t *testing.T) {
	x := []float64{10, 20, 30}
	ema := EMA(x, 2)
	if ema[0] != 10 {
		t.Errorf("EMA[0] = %v, want 10", ema[0])
	}
}

func TestRSIMonotoneIncreasingIs100(t *testing.T) {
	close := make([]float64, 30)
	for i := range close {
		close[i] = float64(i + 1)
	}
	rsi := RSI(close, 14)
	for i := 5; i < len(rsi); i++ {
		if math.Abs(rsi[i]-100) > 1e-6 {
			t.Errorf("RSI[%d] = %v, want 100 for monotone increasing closes", i, rsi[i])
		}
	}
}

func TestRSIMonotoneDecreasingIsZero(t *testing.T) {
	close := make([]float64, 30)
	for i := range close {
		close[i] = float64(30 - i)
	}
	rsi := RSI(close, 14)
	for i := 5; i < len(rsi); i++ {
		if rsi[i] > 1e-6 {
			t.Errorf("RSI[%d] = %v, want ~0 for monotone decreasing closes", i, rsi[i])
		}
	}
}

func TestLogReturnsFirstIsZero(t *testing.T) {
	r := LogReturns([]float64{100, 110, 99})
	if r[0] != 0 {
		t.Errorf("LogReturns[0] = %v, want 0", r[0])
	}
	if math.Abs(r[1]-math.Log(110.0/100.0)) > 1e-9 {
		t.Errorf("LogReturns[1] = %v", r[1])
	}
}

func TestATRFirstIsRange(t *testing.T) {
	high := []float64{10, 12, 13}
	low := []float64{8, 9, 10}
	close := []float64{9, 11, 12}
	atr := ATR(high, low, close, 14)
	if atr[0] != 2 {
		t.Errorf("ATR[0] = %v, want 2", atr[0])
	}
}

func TestVDXBounded(t *testing.T) {
	high := []float64{10, 11, 12, 11, 10, 9, 8, 9, 10, 11}
	low := []float64{9, 10, 11, 10, 9, 8, 7, 8, 9, 10}
	close := []float64{9.5, 10.5, 11.5, 10.5, 9.5, 8.5, 7.5, 8.5, 9.5, 10.5}
	volume := constantSeries(100, 10)
	vdx := VDX(high, low, close, volume, 5)
	for i, v := range vdx {
		if v < -1.0001 || v > 1.0001 {
			t.Errorf("VDX[%d] = %v out of [-1,1]", i, v)
		}
	}
}

func TestStdDevUnbiased(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := StdDevUnbiased(x)
	want := 2.13809
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("StdDevUnbiased = %v, want ~%v", got, want)
	}
}

func TestTailEmpty(t *testing.T) {
	if Tail(nil) != 0 {
		t.Error("Tail(nil) should be 0")
	}
}

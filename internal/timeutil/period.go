// Package timeutil provides period parsing and small numeric helpers shared
// by the indicator, quant, and mirror packages.
package timeutil

import (
	"strconv"
	"strings"

	"github.com/coachpo/marketmaker/internal/errs"
)

const (
	msPerSecond = 1_000
	msPerMinute = 60_000
	msPerHour   = 3_600_000
	msPerDay    = 86_400_000
)

// PeriodToMs parses a period literal such as "1s", "5m", "4h", or "2d" into
// milliseconds. The unit is the trailing letter; the prefix is a base-10
// integer.
func PeriodToMs(period string) (int64, error) {
	trimmed := strings.ToLower(strings.TrimSpace(period))
	if trimmed == "" {
		return 0, errs.New("timeutil.PeriodToMs", errs.CodeInput, errs.WithMessage("empty period"))
	}
	unit := trimmed[len(trimmed)-1]
	var scale int64
	switch unit {
	case 's':
		scale = msPerSecond
	case 'm':
		scale = msPerMinute
	case 'h':
		scale = msPerHour
	case 'd':
		scale = msPerDay
	default:
		return 0, errs.New("timeutil.PeriodToMs", errs.CodeInput, errs.WithMessage("unknown period unit"), errs.WithField("period", period))
	}
	numeric := trimmed[:len(trimmed)-1]
	if numeric == "" {
		return 0, errs.New("timeutil.PeriodToMs", errs.CodeInput, errs.WithMessage("missing numeric prefix"), errs.WithField("period", period))
	}
	n, err := strconv.ParseInt(numeric, 10, 64)
	if err != nil {
		return 0, errs.New("timeutil.PeriodToMs", errs.CodeInput, errs.WithMessage("invalid numeric prefix"), errs.WithField("period", period))
	}
	return n * scale, nil
}

// MustPeriodToMs panics if period cannot be parsed. Used for compile-time-known defaults.
func MustPeriodToMs(period string) int64 {
	ms, err := PeriodToMs(period)
	if err != nil {
		panic(err)
	}
	return ms
}

// Clamp restricts v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

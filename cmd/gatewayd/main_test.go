package main

import (
	"testing"
	"time"
)

func TestPeriodDurationParsesLiteral(t *testing.T) {
	got := periodDuration("5m", time.Hour)
	if got != 5*time.Minute {
		t.Errorf("expected 5m, got %v", got)
	}
}

func TestPeriodDurationFallsBackOnError(t *testing.T) {
	got := periodDuration("not-a-period", 30*time.Second)
	if got != 30*time.Second {
		t.Errorf("expected fallback to default, got %v", got)
	}
}

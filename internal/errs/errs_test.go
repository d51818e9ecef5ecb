package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("mirror.createOrder", CodeInput, WithMessage("test message"))
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if err.Error() == "" {
		t.Error("expected non-empty error string")
	}
}

func TestErrorString(t *testing.T) {
	err := New("orchestrator.dispatch", CodeNotFound, WithMessage("route not found"))
	str := err.Error()
	if !strings.Contains(str, "orchestrator.dispatch") || !strings.Contains(str, "route not found") {
		t.Errorf("expected op and message in error string, got %q", str)
	}
}

func TestWithMessage(t *testing.T) {
	err := New("test", CodeInput, WithMessage("custom message"))
	if !strings.Contains(err.Error(), "custom message") {
		t.Error("expected custom message in error string")
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []Code{
		CodeInput,
		CodeNotFound,
		CodeConflict,
		CodeLockdown,
		CodeReconciliationMismatch,
		CodeInsufficientData,
		CodeReservationViolation,
		CodeMarketUnknown,
		CodeBadResponse,
		CodeRateLimited,
		CodeNetwork,
	}
	for _, code := range codes {
		if string(code) == "" {
			t.Errorf("expected non-empty code string for %v", code)
		}
	}
}

func TestWithField(t *testing.T) {
	err := New("mirror.cancelOrder", CodeLockdown, WithField("market", "BTC/USDT"))
	if !strings.Contains(err.Error(), "market=") {
		t.Errorf("expected field in error string, got %q", err.Error())
	}
}

func TestWithFieldEmptyKey(t *testing.T) {
	err := New("test", CodeInput, WithField("  ", "value"))
	if err.Fields != nil {
		t.Error("expected nil fields for empty key")
	}
}

func TestWithCause(t *testing.T) {
	cause := New("original", CodeNetwork, WithMessage("network error"))
	err := New("wrapper", CodeInput, WithCause(cause))
	if err.Unwrap() != cause {
		t.Error("expected unwrapped error to match cause")
	}
}

func TestUnwrapNil(t *testing.T) {
	err := New("test", CodeInput)
	if err.Unwrap() != nil {
		t.Error("expected nil for no cause")
	}
}

func TestIsUnwraps(t *testing.T) {
	base := New("mirror.sync", CodeNetwork, WithMessage("timeout"))
	if !Is(base, CodeNetwork) {
		t.Error("expected base error to match CodeNetwork")
	}
	if Is(base, CodeLockdown) {
		t.Error("did not expect match on a different code")
	}

	plain := errors.New("not an *E")
	if Is(plain, CodeNetwork) {
		t.Error("expected plain errors to not match any code")
	}
}

func TestNilReceiver(t *testing.T) {
	var e *E
	if e.Error() != "<nil>" {
		t.Errorf("expected <nil> for nil receiver, got %q", e.Error())
	}
}

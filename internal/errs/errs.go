// Package errs provides the structured error taxonomy shared across the
// market-making engine: exchange adapters, the state mirror, strategies,
// and the job orchestrator all wrap failures in an *E so callers can
// branch on Code without parsing messages.
package errs

import (
	"sort"
	"strconv"
	"strings"
)

// Code identifies an error category from the engine's error taxonomy.
type Code string

const (
	// CodeInput marks missing identifiers or malformed arguments.
	CodeInput Code = "input_error"
	// CodeNotFound marks an exchange/agent/market absent from persistence.
	CodeNotFound Code = "entity_not_found"
	// CodeNetwork marks a transport-level failure talking to the remote exchange.
	CodeNetwork Code = "network_error"
	// CodeRateLimited marks a request rejected by the venue's rate limiter.
	CodeRateLimited Code = "rate_limited"
	// CodeBadResponse marks a malformed or unexpected venue response.
	CodeBadResponse Code = "bad_response"
	// CodeMarketUnknown marks an operation against an unrecognised market symbol.
	CodeMarketUnknown Code = "market_unknown"
	// CodeReconciliationMismatch marks an open-order count disagreement between
	// the local mirror and the remote exchange.
	CodeReconciliationMismatch Code = "reconciliation_mismatch"
	// CodeInsufficientData marks an indicator computation starved of candles.
	CodeInsufficientData Code = "insufficient_data"
	// CodeLockdown marks a mutating call rejected by the administrative circuit breaker.
	CodeLockdown Code = "lockdown"
	// CodeReservationViolation marks an attempt to spend below a configured reserve.
	CodeReservationViolation Code = "reservation_violation"
	// CodeConflict marks an optimistic-save version conflict in persistence.
	CodeConflict Code = "conflict"
	// CodeUnavailable marks a dependency that is temporarily unable to accept work.
	CodeUnavailable Code = "unavailable"
)

// E captures structured error information produced across the engine.
type E struct {
	Op      string
	Code    Code
	Message string
	Fields  map[string]string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the operation and error code.
func New(op string, code Code, opts ...Option) *E {
	e := &E{Op: strings.TrimSpace(op), Code: code}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) { e.Message = trimmed }
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) { e.cause = err }
}

// WithField attaches a single diagnostic key/value pair.
func WithField(key, value string) Option {
	return func(e *E) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if e.Fields == nil {
			e.Fields = make(map[string]string, 1)
		}
		e.Fields[key] = value
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 4+len(e.Fields))
	op := e.Op
	if op == "" {
		op = "unknown"
	}
	parts = append(parts, "op="+op)
	parts = append(parts, "code="+string(e.Code))
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+strconv.Quote(e.Fields[k]))
		}
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}
	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// Is reports whether err carries the given Code, unwrapping as needed.
func Is(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*E); ok {
			return e.Code == code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

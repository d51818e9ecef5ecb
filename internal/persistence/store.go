// Package persistence defines the abstract document store the engine's
// entities (exchange, tradingagent, candle, event, job) are saved through.
// Concrete backends live in subpackages (memory for tests, postgres for
// production); internal/orchestrator and internal/events depend only on
// this package.
package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/coachpo/marketmaker/internal/errs"
)

// Kind identifies an entity type within the store.
type Kind string

const (
	KindExchange     Kind = "exchange"
	KindTradingAgent Kind = "tradingagent"
	KindTracker      Kind = "tracker"
	KindCandle       Kind = "candle"
	KindEvent        Kind = "event"
	KindJob          Kind = "job"
)

// Key identifies one document.
type Key struct {
	Kind Kind
	ID   string
}

// Validate reports whether k is well-formed.
func (k Key) Validate() error {
	if strings.TrimSpace(string(k.Kind)) == "" {
		return errs.New("persistence/key", errs.CodeInput, errs.WithMessage("kind required"))
	}
	if strings.TrimSpace(k.ID) == "" {
		return errs.New("persistence/key", errs.CodeInput, errs.WithMessage("id required"))
	}
	return nil
}

// Document is a single versioned, JSON-encoded entity.
type Document struct {
	Key       Key
	Version   int64
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the abstract document store contract. Put always succeeds by
// overwriting (version resets to 1 on first write, increments on every
// subsequent Put); CompareAndSwap fails with errs.CodeConflict when
// prevVersion does not match the document currently stored.
type Store interface {
	Get(ctx context.Context, key Key) (Document, error)
	Put(ctx context.Context, doc Document) (Document, error)
	CompareAndSwap(ctx context.Context, prevVersion int64, doc Document) (Document, error)
	Delete(ctx context.Context, key Key) error
	List(ctx context.Context, kind Kind) ([]Document, error)
}

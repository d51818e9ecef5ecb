// Package events persists the engine's user-visible occurrences — order
// lifecycle transitions, reconciliation mismatches, risk-guard triggers —
// as the append-only audit trail spec.md §6/§7 describe: structured
// {type, timestamp, exchangeId, data} documents under
// persistence.KindEvent. A successful persist writes no log line; failed
// persists are logged at error level and queued in a dead-letter buffer and retried on the next Flush rather
// than dropped.
package events

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
	"github.com/coachpo/marketmaker/internal/persistence"
)

// Recorder persists model.Event documents through a persistence.Store and
// retries failed writes from a bounded dead-letter queue.
type Recorder struct {
	store persistence.Store
	log   observability.Logger
	dlq   *observability.DeadLetterQueue
}

// New constructs a Recorder bound to store. log may be nil, in which case
// observability.Log() is used. dlqCapacity bounds the retry buffer; <=0 is
// unbounded.
func New(store persistence.Store, log observability.Logger, dlqCapacity int) *Recorder {
	if log == nil {
		log = observability.Log()
	}
	return &Recorder{store: store, log: log, dlq: observability.NewDeadLetterQueue(dlqCapacity)}
}

// Record persists one structured event. Persist failures are logged at
// error level, counted through observability.Telemetry(), and queued in
// the dead-letter buffer for the next Flush.
func (r *Recorder) Record(ctx context.Context, exchangeID, eventType string, data map[string]any) {
	evt := model.Event{
		Type:       eventType,
		Timestamp:  model.NowMs(),
		ExchangeID: exchangeID,
		Data:       data,
	}
	if err := r.persist(ctx, evt); err != nil {
		observability.Telemetry().IncCounter("events_dropped", 1, map[string]string{"type": eventType})
		r.log.Error("event persist failed, queued for retry",
			observability.Field{Key: "type", Value: eventType},
			observability.Field{Key: "exchange", Value: exchangeID},
			observability.Field{Key: "error", Value: err.Error()})
		r.dlq.Offer(evt)
		return
	}
	observability.Telemetry().IncCounter("events_published", 1, map[string]string{"type": eventType})
}

func (r *Recorder) persist(ctx context.Context, evt model.Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return errs.New("events.persist", errs.CodeInput, errs.WithCause(err))
	}
	doc := persistence.Document{
		Key:  persistence.Key{Kind: persistence.KindEvent, ID: uuid.NewString()},
		Data: raw,
	}
	_, err = r.store.Put(ctx, doc)
	return err
}

// Flush retries every queued dead-letter event against the store. Events
// that fail again are re-queued; the individual failures are joined into
// one aggregate error via observability.AggregateErrors.
func (r *Recorder) Flush(ctx context.Context) error {
	pending := r.dlq.Drain()
	if len(pending) == 0 {
		return nil
	}
	var failures []error
	for _, evt := range pending {
		if err := r.persist(ctx, evt); err != nil {
			r.dlq.Offer(evt)
			failures = append(failures, err)
		}
	}
	return observability.AggregateErrors("events.Flush", failures)
}

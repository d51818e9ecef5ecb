package observability

import (
	"sync"

	"github.com/coachpo/marketmaker/internal/model"
)

// DeadLetterQueue buffers events that failed to persist so a later retry
// can replay them instead of losing them outright.
type DeadLetterQueue struct {
	mu       sync.Mutex
	capacity int
	events   []model.Event
}

// NewDeadLetterQueue creates a DLQ with the provided capacity. Capacity <=0 implies unbounded.
func NewDeadLetterQueue(capacity int) *DeadLetterQueue {
	queue := new(DeadLetterQueue)
	queue.capacity = capacity
	queue.events = make([]model.Event, 0)
	return queue
}

// Offer records a failed-persist event in the DLQ.
func (q *DeadLetterQueue) Offer(event model.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && len(q.events) >= q.capacity {
		// Drop oldest event to make space for new record.
		copy(q.events[0:], q.events[1:])
		q.events[len(q.events)-1] = cloneEvent(event)
		return
	}
	q.events = append(q.events, cloneEvent(event))
}

// Drain retrieves and clears all queued events.
func (q *DeadLetterQueue) Drain() []model.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := make([]model.Event, len(q.events))
	copy(drained, q.events)
	q.events = q.events[:0]
	return drained
}

// Len returns the number of queued events.
func (q *DeadLetterQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func cloneEvent(evt model.Event) model.Event {
	clone := evt
	if len(evt.Data) > 0 {
		dataCopy := make(map[string]any, len(evt.Data))
		for k, v := range evt.Data {
			dataCopy[k] = v
		}
		clone.Data = dataCopy
	}
	return clone
}

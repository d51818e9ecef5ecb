package mirror

import "github.com/coachpo/marketmaker/internal/model"

// EventType names a mirror lifecycle event.
type EventType string

const (
	EventLimitOrderCreated      EventType = "limit_order_created"
	EventMarketOrderCreated     EventType = "market_order_created"
	EventLimitOrderCancelled    EventType = "limit_order_cancelled"
	EventMarketOrderCancelled   EventType = "market_order_cancelled"
	EventLimitOrderFulfilled    EventType = "limit_order_fulfilled"
	EventReconciliationMismatch EventType = "reconciliation_mismatch"
	EventLockdown               EventType = "lockdown"
)

// Event is a single mirror lifecycle notification, published on State.Events().
type Event struct {
	Type   EventType
	Market string
	Order  *model.Order
}

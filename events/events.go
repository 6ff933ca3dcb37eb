// Package events provides the typed publish/subscribe channel that keeps
// sibling back-office views in sync. Every consumer of an event subject
// is statically known; payloads are concrete structs, not ad-hoc names.
package events

import "time"

// Subject identifies an event stream on the bus.
type Subject string

const (
	// SubjectOrdersLoaded fires after the board pulls a fresh order
	// collection from the backend.
	SubjectOrdersLoaded Subject = "orders.loaded"
	// SubjectOrderChanged fires whenever an order's local state changes:
	// a drag transition, a reconciling correction, or a rollback.
	SubjectOrderChanged Subject = "orders.changed"
	// SubjectTransitionFailed fires when a drag transition's backend
	// write fails and the order was rolled back. This is the only event
	// meant to interrupt the user.
	SubjectTransitionFailed Subject = "orders.transition_failed"
	// SubjectTranslatorsChanged fires when the translator roster is
	// edited elsewhere in the back office.
	SubjectTranslatorsChanged Subject = "translators.changed"
)

// Event is a typed bus payload.
type Event interface {
	EventSubject() Subject
}

// OrdersLoaded reports a completed board load.
type OrdersLoaded struct {
	Count    int       `json:"count"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (OrdersLoaded) EventSubject() Subject { return SubjectOrdersLoaded }

// Change origins for OrderChanged.
const (
	OriginTransition = "transition"
	OriginReconcile  = "reconcile"
	OriginRollback   = "rollback"
)

// OrderChanged reports a local state change for one order.
type OrderChanged struct {
	RequestID string `json:"request_id,omitempty"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Stage     string `json:"stage"`
	Version   int64  `json:"version"`
	Origin    string `json:"origin"`
}

func (OrderChanged) EventSubject() Subject { return SubjectOrderChanged }

// TransitionFailed reports a rolled-back drag transition.
type TransitionFailed struct {
	RequestID string `json:"request_id"`
	OrderID   string `json:"order_id"`
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
	Reason    string `json:"reason"`
}

func (TransitionFailed) EventSubject() Subject { return SubjectTransitionFailed }

// TranslatorsChanged reports a translator roster edit.
type TranslatorsChanged struct {
	ChangedAt time.Time `json:"changed_at"`
}

func (TranslatorsChanged) EventSubject() Subject { return SubjectTranslatorsChanged }

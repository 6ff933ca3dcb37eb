// Package orders defines the order domain model and the client for the
// remote order-management backend. Orders are owned by that backend; this
// service only lists them and writes status corrections back.
package orders

import (
	"encoding/json"
	"time"
)

// Status is a persisted workflow status as stored by the order backend.
// The set is closed; this service never invents new values, it only
// chooses among these when writing.
type Status string

const (
	// StatusNew marks a freshly registered, unpaid order.
	StatusNew Status = "do_wykonania"
	// StatusPaid marks an order explicitly flagged as paid.
	StatusPaid Status = "oplacone"
	// StatusInProgress marks an order under certification/translation.
	StatusInProgress Status = "do_poswiadczenia"
	// StatusReady marks a finished order awaiting pickup.
	StatusReady Status = "do_wydania"
	// StatusVerbal is a legacy status for orders taken verbally. It has
	// no visual column of its own and folds into in-progress.
	StatusVerbal Status = "ustne"
	// StatusClosed marks an issued, terminal order.
	StatusClosed Status = "closed"
)

// Known reports whether s is one of the closed set of backend statuses.
func (s Status) Known() bool {
	switch s {
	case StatusNew, StatusPaid, StatusInProgress, StatusReady, StatusVerbal, StatusClosed:
		return true
	}
	return false
}

// TransactionType distinguishes money in from money out.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction is a single money movement recorded against an order.
type Transaction struct {
	Type   TransactionType `json:"type"`
	Amount float64         `json:"amount"`
}

// DeliveryMethodParcelLocker is the courier locker network. A delivery
// with this method and a confirmed delivered_at timestamp is treated as
// proof the order was issued.
const DeliveryMethodParcelLocker = "courier-locker-network"

// Delivery describes how an order is (or was) handed over.
type Delivery struct {
	Method      string     `json:"method"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// Order is the slice of the backend order record this service reads.
// Everything except Status is read-only here.
type Order struct {
	ID           string        `json:"id"`
	Status       Status        `json:"status"`
	Transactions []Transaction `json:"transactions,omitempty"`
	Delivery     *Delivery     `json:"delivery,omitempty"`
	Deadline     *time.Time    `json:"deadline,omitempty"`
}

// orderWire mirrors Order plus the legacy plural deliveries field some
// backend endpoints still return.
type orderWire struct {
	ID           string        `json:"id"`
	Status       Status        `json:"status"`
	Transactions []Transaction `json:"transactions"`
	Delivery     *Delivery     `json:"delivery"`
	Deliveries   []Delivery    `json:"deliveries"`
	Deadline     *time.Time    `json:"deadline"`
}

// UnmarshalJSON decodes an order, accepting either the singular delivery
// object or the legacy deliveries array (first entry wins).
func (o *Order) UnmarshalJSON(data []byte) error {
	var w orderWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.ID = w.ID
	o.Status = w.Status
	o.Transactions = w.Transactions
	o.Deadline = w.Deadline
	o.Delivery = w.Delivery
	if o.Delivery == nil && len(w.Deliveries) > 0 {
		d := w.Deliveries[0]
		o.Delivery = &d
	}
	return nil
}

// Clone returns a deep copy of the order. The coordinator snapshots
// orders before optimistic updates and must restore them byte-for-byte.
func (o Order) Clone() Order {
	c := o
	if o.Transactions != nil {
		c.Transactions = make([]Transaction, len(o.Transactions))
		copy(c.Transactions, o.Transactions)
	}
	if o.Delivery != nil {
		d := *o.Delivery
		if o.Delivery.DeliveredAt != nil {
			ts := *o.Delivery.DeliveredAt
			d.DeliveredAt = &ts
		}
		c.Delivery = &d
	}
	if o.Deadline != nil {
		ts := *o.Deadline
		c.Deadline = &ts
	}
	return c
}

// HasIncome reports whether at least one income transaction is recorded.
func (o Order) HasIncome() bool {
	for _, t := range o.Transactions {
		if t.Type == TransactionIncome {
			return true
		}
	}
	return false
}

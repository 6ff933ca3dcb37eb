package board

import (
	"time"

	"github.com/linguaworks/orderdesk/orders"
)

// DeliveryFact is a confirmed parcel-locker handover.
type DeliveryFact struct {
	Method      string
	DeliveredAt time.Time
}

// SideFacts are the independently recorded signals that can advance an
// order past its persisted status: a payment and a confirmed delivery.
// They are extracted once per order at load time so the projector works
// on a narrow, fully typed input instead of probing optional shapes.
type SideFacts struct {
	Income   bool
	Delivery *DeliveryFact
}

// Delivered reports whether a confirmed delivery fact is present.
func (f SideFacts) Delivered() bool {
	return f.Delivery != nil
}

// ExtractFacts computes the side facts for one order. Only a
// parcel-locker delivery with a set delivered_at timestamp counts as a
// delivery fact; any recorded income transaction counts as payment.
func ExtractFacts(o orders.Order) SideFacts {
	facts := SideFacts{Income: o.HasIncome()}
	if d := o.Delivery; d != nil && d.Method == orders.DeliveryMethodParcelLocker && d.DeliveredAt != nil {
		facts.Delivery = &DeliveryFact{
			Method:      d.Method,
			DeliveredAt: *d.DeliveredAt,
		}
	}
	return facts
}

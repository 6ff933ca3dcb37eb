package board

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/linguaworks/orderdesk/events"
	"github.com/linguaworks/orderdesk/orders"
)

// fakeStore is an in-memory stand-in for the order backend.
type fakeStore struct {
	mu     sync.Mutex
	orders map[string]orders.Order

	listErr error
	// failUpdates maps order ids to the error their update should return.
	failUpdates map[string]error
	// onUpdate, when set, runs before an update is applied. Tests use it
	// to block a write mid-flight.
	onUpdate func(id string, status orders.Status)

	updates []updateCall
}

type updateCall struct {
	ID     string
	Status orders.Status
}

func newFakeStore(seed ...orders.Order) *fakeStore {
	s := &fakeStore{
		orders:      make(map[string]orders.Order),
		failUpdates: make(map[string]error),
	}
	for _, o := range seed {
		s.orders[o.ID] = o.Clone()
	}
	return s
}

func (s *fakeStore) List(ctx context.Context, filter orders.Filter) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]orders.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, status orders.Status) (orders.Order, error) {
	s.mu.Lock()
	hook := s.onUpdate
	s.mu.Unlock()
	if hook != nil {
		hook(id, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, updateCall{ID: id, Status: status})
	if err := s.failUpdates[id]; err != nil {
		return orders.Order{}, err
	}
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return o.Clone(), nil
}

func (s *fakeStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

func (s *fakeStore) updatesFor(id string) []updateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []updateCall
	for _, u := range s.updates {
		if u.ID == id {
			out = append(out, u)
		}
	}
	return out
}

func (s *fakeStore) status(id string) orders.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id].Status
}

// collector gathers bus events for one subject.
type collector struct {
	mu  sync.Mutex
	evs []events.Event
}

func collect(bus *events.Bus, subject events.Subject) *collector {
	c := &collector{}
	bus.Subscribe(subject, func(ev events.Event) {
		c.mu.Lock()
		c.evs = append(c.evs, ev)
		c.mu.Unlock()
	})
	return c
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.evs)
}

func (c *collector) at(i int) events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evs[i]
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// Convenience order constructors.

func plainOrder(id string, status orders.Status) orders.Order {
	return orders.Order{ID: id, Status: status}
}

func paidOrder(id string, status orders.Status) orders.Order {
	return orders.Order{
		ID:     id,
		Status: status,
		Transactions: []orders.Transaction{
			{Type: orders.TransactionIncome, Amount: 120},
		},
	}
}

func deliveredOrder(id string, status orders.Status) orders.Order {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return orders.Order{
		ID:     id,
		Status: status,
		Delivery: &orders.Delivery{
			Method:      orders.DeliveryMethodParcelLocker,
			DeliveredAt: &at,
		},
	}
}

var errBackendDown = fmt.Errorf("backend unavailable")

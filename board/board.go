package board

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/linguaworks/orderdesk/events"
	"github.com/linguaworks/orderdesk/orders"
)

// Entry is one card: the order as last seen plus everything derived
// from it at load time.
type Entry struct {
	Order orders.Order
	Facts SideFacts
	Stage Stage
	// Version is a monotonic token for optimistic concurrency: it is
	// bumped on every local mutation, and a transition carrying an older
	// base version is rejected instead of silently winning by arrival
	// order.
	Version int64
	// InFlight marks a backend write outstanding for this order. It
	// drives the busy affordance only; mutual exclusion comes from the
	// per-order lock.
	InFlight bool
}

// Board holds the single in-memory order collection shared by the
// scanner, the coordinator and the HTTP API.
type Board struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	locks *orderLocks

	store  orders.Store
	bus    *events.Bus
	logger *slog.Logger
}

// New creates an empty board backed by the given store.
func New(store orders.Store, bus *events.Bus, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		entries: make(map[string]*Entry),
		locks:   newOrderLocks(),
		store:   store,
		bus:     bus,
		logger:  logger,
	}
}

// Load replaces the collection with a fresh listing from the backend.
// Side facts are extracted and stages projected once here; orders that
// survive a reload keep their version counter (bumped once, since the
// backend data may have moved underneath).
func (b *Board) Load(ctx context.Context, filter orders.Filter) error {
	listed, err := b.store.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}

	b.mu.Lock()
	next := make(map[string]*Entry, len(listed))
	for _, o := range listed {
		facts := ExtractFacts(o)
		entry := &Entry{
			Order:   o.Clone(),
			Facts:   facts,
			Stage:   Project(o.Status, facts),
			Version: 1,
		}
		if prev, ok := b.entries[o.ID]; ok {
			entry.Version = prev.Version + 1
		}
		next[o.ID] = entry
	}
	b.entries = next
	count := len(next)
	b.mu.Unlock()

	b.logger.Debug("Board loaded", slog.Int("orders", count))
	b.publish(events.OrdersLoaded{Count: count, LoadedAt: time.Now()})
	return nil
}

// Get returns a copy of one entry.
func (b *Board) Get(id string) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.entries[id]
	if !ok {
		return Entry{}, false
	}
	return entry.copy(), true
}

// Snapshot returns copies of all entries, ordered by deadline (orders
// without one last) and id for a stable listing.
func (b *Board) Snapshot() []Entry {
	b.mu.RLock()
	out := make([]Entry, 0, len(b.entries))
	for _, entry := range b.entries {
		out = append(out, entry.copy())
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].Order.Deadline, out[j].Order.Deadline
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return out[i].Order.ID < out[j].Order.ID
	})
	return out
}

// Columns groups the snapshot by stage, one bucket per column.
func (b *Board) Columns() map[Stage][]Entry {
	out := make(map[Stage][]Entry, len(Stages))
	for _, stage := range Stages {
		out[stage] = []Entry{}
	}
	for _, entry := range b.Snapshot() {
		out[entry.Stage] = append(out[entry.Stage], entry)
	}
	return out
}

// Len returns the number of orders on the board.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// applyStatus replaces an order's persisted status locally, reprojects
// its stage and bumps its version. The published change carries origin
// and request id for consumers.
func (b *Board) applyStatus(id string, status orders.Status, origin, requestID string) (Entry, bool) {
	b.mu.Lock()
	entry, ok := b.entries[id]
	if !ok {
		b.mu.Unlock()
		return Entry{}, false
	}
	entry.Order.Status = status
	entry.Stage = Project(status, entry.Facts)
	entry.Version++
	updated := entry.copy()
	b.mu.Unlock()

	b.publish(events.OrderChanged{
		RequestID: requestID,
		OrderID:   id,
		Status:    string(updated.Order.Status),
		Stage:     string(updated.Stage),
		Version:   updated.Version,
		Origin:    origin,
	})
	return updated, true
}

// restore puts back a pre-mutation snapshot exactly, version included:
// the restored state is the one the snapshot's version described.
func (b *Board) restore(id string, snapshot Entry, requestID string) {
	b.mu.Lock()
	entry, ok := b.entries[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	restored := snapshot.copy()
	restored.InFlight = false
	*entry = restored
	b.mu.Unlock()

	b.publish(events.OrderChanged{
		RequestID: requestID,
		OrderID:   id,
		Status:    string(snapshot.Order.Status),
		Stage:     string(snapshot.Stage),
		Version:   snapshot.Version,
		Origin:    events.OriginRollback,
	})
}

func (b *Board) setInFlight(id string, inFlight bool) {
	b.mu.Lock()
	if entry, ok := b.entries[id]; ok {
		entry.InFlight = inFlight
	}
	b.mu.Unlock()
}

func (b *Board) publish(ev events.Event) {
	if b.bus != nil {
		b.bus.Publish(ev)
	}
}

func (e *Entry) copy() Entry {
	c := *e
	c.Order = e.Order.Clone()
	if e.Facts.Delivery != nil {
		d := *e.Facts.Delivery
		c.Facts.Delivery = &d
	}
	return c
}

package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguaworks/orderdesk/events"
	"github.com/linguaworks/orderdesk/orders"
)

func TestBoard_Load(t *testing.T) {
	store := newFakeStore(
		plainOrder("o1", orders.StatusNew),
		paidOrder("o2", orders.StatusNew),
		deliveredOrder("o3", orders.StatusReady),
	)
	b := New(store, nil, nil)

	require.NoError(t, b.Load(context.Background(), orders.Filter{}))
	assert.Equal(t, 3, b.Len())

	e1, ok := b.Get("o1")
	require.True(t, ok)
	assert.Equal(t, StageNew, e1.Stage)
	assert.Equal(t, int64(1), e1.Version)

	e2, _ := b.Get("o2")
	assert.Equal(t, StagePaid, e2.Stage, "income fact advances a new order to the paid column")

	e3, _ := b.Get("o3")
	assert.Equal(t, StageIssued, e3.Stage, "delivery fact advances a ready order to issued")
}

func TestBoard_LoadError(t *testing.T) {
	store := newFakeStore()
	store.listErr = errBackendDown
	b := New(store, nil, nil)
	assert.Error(t, b.Load(context.Background(), orders.Filter{}))
	assert.Equal(t, 0, b.Len())
}

func TestBoard_LoadPublishesEvent(t *testing.T) {
	bus := events.NewBus(nil)
	defer bus.Close()
	loaded := collect(bus, events.SubjectOrdersLoaded)

	b := New(newFakeStore(plainOrder("o1", orders.StatusNew)), bus, nil)
	require.NoError(t, b.Load(context.Background(), orders.Filter{}))

	require.True(t, waitFor(func() bool { return loaded.len() == 1 }))
	ev := loaded.at(0).(events.OrdersLoaded)
	assert.Equal(t, 1, ev.Count)
}

func TestBoard_ReloadBumpsSurvivorVersions(t *testing.T) {
	store := newFakeStore(plainOrder("o1", orders.StatusNew))
	b := New(store, nil, nil)
	ctx := context.Background()

	require.NoError(t, b.Load(ctx, orders.Filter{}))
	require.NoError(t, b.Load(ctx, orders.Filter{}))

	e, _ := b.Get("o1")
	assert.Equal(t, int64(2), e.Version)
}

func TestBoard_SnapshotOrdering(t *testing.T) {
	early := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	a := plainOrder("a", orders.StatusNew)
	a.Deadline = &late
	z := plainOrder("z", orders.StatusNew)
	z.Deadline = &early
	noDeadline := plainOrder("m", orders.StatusNew)

	b := New(newFakeStore(a, z, noDeadline), nil, nil)
	require.NoError(t, b.Load(context.Background(), orders.Filter{}))

	snap := b.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "z", snap[0].Order.ID, "earliest deadline first")
	assert.Equal(t, "a", snap[1].Order.ID)
	assert.Equal(t, "m", snap[2].Order.ID, "orders without a deadline last")
}

func TestBoard_Columns(t *testing.T) {
	b := New(newFakeStore(
		plainOrder("o1", orders.StatusNew),
		plainOrder("o2", orders.StatusVerbal),
		plainOrder("o3", orders.StatusInProgress),
	), nil, nil)
	require.NoError(t, b.Load(context.Background(), orders.Filter{}))

	cols := b.Columns()
	assert.Len(t, cols, len(Stages), "every column present even when empty")
	assert.Len(t, cols[StageNew], 1)
	assert.Len(t, cols[StageInProgress], 2, "verbal orders share the in-progress column")
	assert.Empty(t, cols[StageIssued])
}

// TestBoard_DragScenario walks the whole flow: load, project, drag,
// optimistic apply, settled write.
func TestBoard_DragScenario(t *testing.T) {
	store := newFakeStore(plainOrder("o1", orders.StatusInProgress))
	bus := events.NewBus(nil)
	defer bus.Close()

	b := New(store, bus, nil)
	coordinator := NewCoordinator(b, store, bus, nil)
	ctx := context.Background()

	require.NoError(t, b.Load(ctx, orders.Filter{}))
	e, _ := b.Get("o1")
	require.Equal(t, StageInProgress, e.Stage)

	result, err := coordinator.Move(ctx, MoveRequest{OrderID: "o1", Target: StageReady})
	require.NoError(t, err)
	assert.True(t, result.Moved)
	assert.Equal(t, StageReady, result.Entry.Stage)
	assert.Equal(t, orders.StatusReady, result.Entry.Order.Status)

	// Local and remote state agree after settlement.
	e, _ = b.Get("o1")
	assert.Equal(t, StageReady, e.Stage)
	assert.Equal(t, orders.StatusReady, e.Order.Status)
	assert.False(t, e.InFlight)
	assert.Equal(t, orders.StatusReady, store.status("o1"))
}

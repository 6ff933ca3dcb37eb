package board

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linguaworks/orderdesk/events"
	"github.com/linguaworks/orderdesk/orders"
)

// Coordinator executes user drag transitions: it validates the move,
// applies the optimistic local update so the card lands in its new
// column immediately, issues the backend write, and rolls the order
// back to its exact prior state if the write fails. Any column may move
// to any other; the board trusts the user.
type Coordinator struct {
	board  *Board
	store  orders.Store
	bus    *events.Bus
	logger *slog.Logger
}

// NewCoordinator creates a coordinator over the given board and store.
func NewCoordinator(board *Board, store orders.Store, bus *events.Bus, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		board:  board,
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// MoveRequest is one requested drag.
type MoveRequest struct {
	OrderID string
	Target  Stage
	// BaseVersion is the board version the drag was issued against.
	// Zero skips the check (trusted callers); any other value must match
	// the order's current version or the move is rejected as stale.
	BaseVersion int64
}

// MoveResult reports the outcome of a completed move.
type MoveResult struct {
	// Entry is the order's state after the move settled.
	Entry Entry
	// Moved is false for identity transitions, which issue no write.
	Moved bool
	// RequestID correlates the move with its OrderChanged events.
	RequestID string
}

// Move performs one transition. Writes to the same order are serialized:
// a second drag on an order with a write outstanding queues until the
// first resolves. Failures are not retried; the user re-drags.
func (c *Coordinator) Move(ctx context.Context, req MoveRequest) (MoveResult, error) {
	if !req.Target.Valid() {
		return MoveResult{}, fmt.Errorf("move %s: %w: %q", req.OrderID, ErrUnknownStage, req.Target)
	}
	targetStatus, err := StatusForStage(req.Target)
	if err != nil {
		return MoveResult{}, fmt.Errorf("move %s: %w", req.OrderID, err)
	}

	release := c.board.locks.acquire(req.OrderID)
	defer release()

	entry, ok := c.board.Get(req.OrderID)
	if !ok {
		return MoveResult{}, fmt.Errorf("move %s: %w", req.OrderID, ErrOrderNotFound)
	}
	if req.BaseVersion != 0 && req.BaseVersion != entry.Version {
		transitionsTotal.WithLabelValues(resultRejected).Inc()
		return MoveResult{}, fmt.Errorf("move %s: %w: base %d, current %d",
			req.OrderID, ErrStaleVersion, req.BaseVersion, entry.Version)
	}

	// Identity guard: dropping a card on its own column is a no-op.
	if entry.Stage == req.Target {
		transitionsTotal.WithLabelValues(resultNoop).Inc()
		return MoveResult{Entry: entry, Moved: false}, nil
	}

	snapshot := entry
	requestID := uuid.New().String()

	c.board.setInFlight(req.OrderID, true)
	updated, _ := c.board.applyStatus(req.OrderID, targetStatus, events.OriginTransition, requestID)

	if _, err := c.store.UpdateStatus(ctx, req.OrderID, targetStatus); err != nil {
		c.board.restore(req.OrderID, snapshot, requestID)
		if c.bus != nil {
			c.bus.Publish(events.TransitionFailed{
				RequestID: requestID,
				OrderID:   req.OrderID,
				FromStage: string(snapshot.Stage),
				ToStage:   string(req.Target),
				Reason:    err.Error(),
			})
		}
		transitionsTotal.WithLabelValues(resultFailed).Inc()
		c.logger.Warn("Transition write failed, rolled back",
			slog.String("order_id", req.OrderID),
			slog.String("from", string(snapshot.Stage)),
			slog.String("to", string(req.Target)),
			slog.String("error", err.Error()))
		return MoveResult{}, fmt.Errorf("move %s to %s: %w", req.OrderID, req.Target, err)
	}

	c.board.setInFlight(req.OrderID, false)
	updated.InFlight = false
	transitionsTotal.WithLabelValues(resultApplied).Inc()
	c.logger.Info("Order moved",
		slog.String("order_id", req.OrderID),
		slog.String("from", string(snapshot.Stage)),
		slog.String("to", string(req.Target)))
	return MoveResult{Entry: updated, Moved: true, RequestID: requestID}, nil
}

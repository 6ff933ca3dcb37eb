package board

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/linguaworks/orderdesk/events"
	"github.com/linguaworks/orderdesk/orders"
)

// Scanner is the reconciliation pass run after each board load. It
// detects orders whose persisted status has fallen behind what the side
// facts already prove and silently writes the more advanced status back.
// It is housekeeping, not a user-facing operation: failures are logged
// and swallowed, and the affected order simply keeps its stale stage
// until the next load.
type Scanner struct {
	board  *Board
	store  orders.Store
	logger *slog.Logger

	// maxConcurrent caps parallel corrective writes; 0 means unlimited.
	maxConcurrent int
}

// NewScanner creates a scanner over the given board and store.
func NewScanner(board *Board, store orders.Store, maxConcurrent int, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		board:         board,
		store:         store,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// correction returns the status a reconciling write should set, if any.
// Delivery evidence outranks payment evidence; a status already at or
// past the target needs nothing, which is what makes the pass
// idempotent.
func correction(e Entry) (orders.Status, bool) {
	if e.Facts.Delivered() && e.Order.Status != orders.StatusClosed {
		return orders.StatusClosed, true
	}
	if e.Facts.Income && e.Order.Status != orders.StatusPaid && e.Order.Status != orders.StatusClosed {
		return orders.StatusPaid, true
	}
	return "", false
}

// Run performs one reconciliation pass over the current collection and
// returns the number of corrections applied. All corrective writes run
// concurrently and independently: one order's failure never blocks,
// cancels or taints another's.
func (s *Scanner) Run(ctx context.Context) int {
	var (
		wg      sync.WaitGroup
		applied atomic.Int64
		sem     chan struct{}
	)
	if s.maxConcurrent > 0 {
		sem = make(chan struct{}, s.maxConcurrent)
	}

	for _, entry := range s.board.Snapshot() {
		target, ok := correction(entry)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(id string, from orders.Status, target orders.Status) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			s.reconcile(ctx, id, from, target, &applied)
		}(entry.Order.ID, entry.Order.Status, target)
	}

	wg.Wait()
	return int(applied.Load())
}

// reconcile issues one corrective write, serialized with any concurrent
// transition on the same order through the per-order lock.
func (s *Scanner) reconcile(ctx context.Context, id string, from, target orders.Status, applied *atomic.Int64) {
	release := s.board.locks.acquire(id)
	defer release()

	// Re-check under the lock: a transition may have landed meanwhile.
	entry, ok := s.board.Get(id)
	if !ok {
		return
	}
	target, ok = correction(entry)
	if !ok {
		return
	}

	if _, err := s.store.UpdateStatus(ctx, id, target); err != nil {
		reconcileWrites.WithLabelValues(resultFailed).Inc()
		s.logger.Warn("Reconciling write failed",
			slog.String("order_id", id),
			slog.String("from", string(from)),
			slog.String("to", string(target)),
			slog.String("error", err.Error()))
		return
	}

	s.board.applyStatus(id, target, events.OriginReconcile, "")
	reconcileWrites.WithLabelValues(resultApplied).Inc()
	applied.Add(1)
	s.logger.Info("Reconciled order status",
		slog.String("order_id", id),
		slog.String("from", string(from)),
		slog.String("to", string(target)))
}

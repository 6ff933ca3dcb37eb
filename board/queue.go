package board

import "sync"

// orderLocks serializes mutations per order id. A second transition for
// the same order queues behind the first instead of racing it; different
// orders proceed independently. Locks are created on demand and retained
// for the life of the board, which is bounded by the order collection.
type orderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire blocks until the order's lock is held and returns the release
// function.
func (l *orderLocks) acquire(id string) func() {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

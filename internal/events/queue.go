package events

import "sync"

// queue is an unbounded FIFO of deliveries.
//
// Publishing never blocks the pipeline; a slow subscriber only grows its
// own queue. The signal channel (buffer 1) lets readers wait with select.
type queue struct {
	mu     sync.Mutex
	items  []Delivery
	closed bool
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{
		items:  make([]Delivery, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// push appends d. Returns false if the queue is closed.
func (q *queue) push(d Delivery) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, d)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryPop removes the front delivery without blocking.
func (q *queue) tryPop() (Delivery, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Delivery{}, false
	}
	d := q.items[0]
	q.items[0] = Delivery{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return d, true
}

func (q *queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close wakes every waiter.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Package events delivers notification events to filtered subscribers.
//
// The broker evaluates each subscription's NotificationEventFilter before
// enqueueing, so a subscriber sees exactly the events its filter matches.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/chriszhao1988/iroha/internal/model"
)

// ErrClosed is returned by Next once a subscription is closed and drained.
var ErrClosed = errors.New("subscription closed")

// Delivery is one notification event with its position in the trail.
type Delivery struct {
	ID     string
	Height uint64
	Seq    int64
	Event  model.NotificationEvent
}

// Broker fans notification events out to subscriptions.
// Safe for concurrent use.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
}

// NewBroker returns a broker with no subscriptions.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*Subscription)}
}

// Subscribe registers filter and returns its subscription. A nil filter
// accepts every event.
func (b *Broker) Subscribe(filter model.NotificationEventFilter) *Subscription {
	if filter == nil {
		filter = model.AcceptAllFilter{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &Subscription{id: b.nextID, filter: filter, q: newQueue(), broker: b}
	b.subs[s.id] = s
	return s
}

// Publish delivers d to every subscription whose filter matches its event.
// Returns the number of subscriptions it was delivered to.
func (b *Broker) Publish(d Delivery) int {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	n := 0
	for _, s := range subs {
		if s.filter.Matches(d.Event) && s.q.push(d) {
			n++
		}
	}
	return n
}

// Len returns the number of open subscriptions.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscription receives the deliveries matched by its filter.
type Subscription struct {
	id     int
	filter model.NotificationEventFilter
	q      *queue
	broker *Broker
}

// Filter returns the subscription's filter.
func (s *Subscription) Filter() model.NotificationEventFilter {
	return s.filter
}

// TryNext returns the next pending delivery without blocking.
func (s *Subscription) TryNext() (Delivery, bool) {
	return s.q.tryPop()
}

// Next blocks until a delivery is available, ctx is done, or the
// subscription is closed and drained.
func (s *Subscription) Next(ctx context.Context) (Delivery, error) {
	for {
		if d, ok := s.q.tryPop(); ok {
			return d, nil
		}
		if s.q.isClosed() {
			return Delivery{}, ErrClosed
		}
		select {
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		case <-s.q.signal:
		}
	}
}

// Pending returns the number of queued deliveries.
func (s *Subscription) Pending() int {
	return s.q.len()
}

// Drain returns every queued delivery in order.
func (s *Subscription) Drain() []Delivery {
	out := []Delivery{}
	for {
		d, ok := s.q.tryPop()
		if !ok {
			return out
		}
		out = append(out, d)
	}
}

// Close unsubscribes. Deliveries already queued can still be read.
func (s *Subscription) Close() {
	s.broker.remove(s.id)
	s.q.close()
}

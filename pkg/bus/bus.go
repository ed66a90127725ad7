// Package bus is the in-process delivery registry: recipient id to the live
// subscriptions currently open for it. One Bus per process; it holds nothing
// durable and starts empty after a restart.
package bus

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"Herald/pkg/zlog"

	"go.uber.org/zap"
)

const DefaultBufferSize = 64

var (
	// ErrUnsubscribed ends a subscription closed by its owner.
	ErrUnsubscribed = errors.New("bus: unsubscribed")
	// ErrSlowConsumer ends a subscription whose buffer overflowed.
	ErrSlowConsumer = errors.New("bus: subscriber buffer full")
	// ErrDeliveryPanic ends a subscription whose delivery panicked.
	ErrDeliveryPanic = errors.New("bus: delivery panicked")
)

// Event is one message for a recipient. Payload must be JSON-serialisable.
type Event struct {
	Type    string
	Payload interface{}
}

// Subscription is one live output for a recipient.
type Subscription struct {
	recipientID string
	createdAt   time.Time
	ch          chan Event
	done        chan struct{}

	closeOnce sync.Once
	err       error
}

func (s *Subscription) RecipientID() string  { return s.recipientID }
func (s *Subscription) CreatedAt() time.Time { return s.createdAt }

// C yields events in publish order. It is never closed; select on Done too.
func (s *Subscription) C() <-chan Event { return s.ch }

// Done is closed once the subscription leaves the registry.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err reports why the subscription ended. Only valid after Done is closed.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	ActiveSubscriptions int64  `json:"active_subscriptions"`
	Recipients          int    `json:"recipients"`
	Published           uint64 `json:"published"`
	Delivered           uint64 `json:"delivered"`
	Dropped             uint64 `json:"dropped"`
}

type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}

	bufferSize int

	active    atomic.Int64
	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64

	// onDeliver runs before each per-subscriber send; tests use it to inject faults.
	onDeliver func(*Subscription, Event)
}

func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a new subscription for recipientID. The returned
// function removes it; calling it more than once is harmless.
func (b *Bus) Subscribe(recipientID string) (*Subscription, func()) {
	s := &Subscription{
		recipientID: recipientID,
		createdAt:   time.Now(),
		ch:          make(chan Event, b.bufferSize),
		done:        make(chan struct{}),
	}

	b.mu.Lock()
	set := b.subs[recipientID]
	if set == nil {
		set = make(map[*Subscription]struct{})
		b.subs[recipientID] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()
	b.active.Add(1)

	return s, func() { b.remove(s, ErrUnsubscribed) }
}

// remove takes s out of the registry exactly once.
func (b *Bus) remove(s *Subscription, reason error) {
	s.closeOnce.Do(func() {
		b.mu.Lock()
		if set := b.subs[s.recipientID]; set != nil {
			delete(set, s)
			if len(set) == 0 {
				delete(b.subs, s.recipientID)
			}
		}
		b.mu.Unlock()

		s.err = reason
		close(s.done)
		b.active.Add(-1)
	})
}

// Publish hands ev to every live subscription of recipientID and returns how
// many accepted it. It never blocks: with no subscribers the event is
// dropped, and a subscriber whose buffer is full is disconnected instead.
func (b *Bus) Publish(recipientID string, ev Event) int {
	b.mu.RLock()
	set := b.subs[recipientID]
	targets := make([]*Subscription, 0, len(set))
	for s := range set {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	b.published.Add(1)
	n := 0
	for _, s := range targets {
		if b.deliver(s, ev) {
			n++
		}
	}
	return n
}

func (b *Bus) deliver(s *Subscription, ev Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error("bus delivery panicked",
				zap.String("recipient_id", s.recipientID),
				zap.String("event_type", ev.Type),
				zap.Any("panic", r),
			)
			b.dropped.Add(1)
			b.remove(s, ErrDeliveryPanic)
			ok = false
		}
	}()

	select {
	case <-s.done:
		return false
	default:
	}

	if b.onDeliver != nil {
		b.onDeliver(s, ev)
	}

	select {
	case s.ch <- ev:
		b.delivered.Add(1)
		return true
	default:
		zlog.Warn("bus subscriber too slow, dropping connection",
			zap.String("recipient_id", s.recipientID),
			zap.Int("buffer", cap(s.ch)),
		)
		b.dropped.Add(1)
		b.remove(s, ErrSlowConsumer)
		return false
	}
}

// Subscribers returns the number of live subscriptions for recipientID.
func (b *Bus) Subscribers(recipientID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[recipientID])
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	recipients := len(b.subs)
	b.mu.RUnlock()
	return Stats{
		ActiveSubscriptions: b.active.Load(),
		Recipients:          recipients,
		Published:           b.published.Load(),
		Delivered:           b.delivered.Load(),
		Dropped:             b.dropped.Load(),
	}
}

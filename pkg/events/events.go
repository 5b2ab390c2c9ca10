// Package events provides an in-process broadcast channel for workflow
// state-change notifications. Subscribers observe transitions without
// polling the store; slow subscribers are skipped rather than blocking
// the publisher.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// StateChange describes a single message status transition.
type StateChange struct {
	MessageID uuid.UUID `json:"message_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	At        time.Time `json:"at"`
}

// Broadcaster fans state changes out to all active subscribers.
// The zero value is not usable; create one with New.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan StateChange
	nextID int
	buffer int
}

// New creates a Broadcaster whose subscriber channels hold up to buffer
// undelivered events each.
func New(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 16
	}
	return &Broadcaster{
		subs:   make(map[int]chan StateChange),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release the subscription; the channel is closed on cancel.
func (b *Broadcaster) Subscribe() (<-chan StateChange, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan StateChange, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber with buffer capacity.
// Subscribers whose buffers are full miss the event and must reconcile
// from the store.
func (b *Broadcaster) Publish(e StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

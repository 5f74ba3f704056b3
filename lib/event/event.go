// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO of events delivered by one Producer. Create
// queues with Producer.NewQueue; the zero value is a closed, empty queue.
//
// All methods are safe for concurrent use. A queue is typically drained
// by a single consumer goroutine, but nothing breaks with more.
type Queue[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []T
	open     bool
	producer *Producer[T]
}

// Pop blocks until an event is available or the queue is closed and
// drained. The second return is false only at end-of-stream: the queue
// was closed and every queued event has already been popped.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if len(q.items) > 0 {
			return q.popLocked(), true
		}
		if !q.open {
			var zero T
			return zero, false
		}
		q.cond.Wait()
	}
}

// TryPop returns the first queued event without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// TryPopFor waits up to d for an event.
func (q *Queue[T]) TryPopFor(d time.Duration) (T, bool) {
	return q.TryPopUntil(time.Now().Add(d))
}

// TryPopUntil waits until deadline for an event. Returns false on
// timeout or when the queue is closed and drained.
func (q *Queue[T]) TryPopUntil(deadline time.Time) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var timerStarted bool
	for {
		if len(q.items) > 0 {
			return q.popLocked(), true
		}
		if !q.open || !time.Now().Before(deadline) {
			var zero T
			return zero, false
		}
		if !timerStarted {
			timerStarted = true
			timer := time.AfterFunc(time.Until(deadline), func() {
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			})
			defer timer.Stop()
		}
		q.cond.Wait()
	}
}

// Close detaches the queue from its producer and wakes blocked readers.
// Events already queued remain poppable; once they are drained the pop
// variants report end-of-stream. Closing twice is a no-op.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if !q.open {
		q.mu.Unlock()
		return
	}
	q.open = false
	producer := q.producer
	q.producer = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	if producer != nil {
		producer.remove(q)
	}
}

// push appends an event if the queue is still open.
func (q *Queue[T]) push(e T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.open {
		return
	}
	q.items = append(q.items, e)
	q.cond.Signal()
}

func (q *Queue[T]) popLocked() T {
	e := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return e
}

// Producer fans events out to its open queues.
type Producer[T any] struct {
	mu     sync.Mutex
	queues []*Queue[T]
}

// NewProducer returns an empty producer.
func NewProducer[T any]() *Producer[T] {
	return &Producer[T]{}
}

// NewQueue registers and returns a new open queue. initial events are
// queued before the queue can observe any Notify, so a consumer that
// subscribes mid-session first sees the current state.
func (p *Producer[T]) NewQueue(initial ...T) *Queue[T] {
	q := &Queue[T]{open: true, producer: p}
	q.cond = sync.NewCond(&q.mu)
	q.items = append(q.items, initial...)

	p.mu.Lock()
	p.queues = append(p.queues, q)
	p.mu.Unlock()
	return q
}

// Notify delivers e to every open queue.
func (p *Producer[T]) Notify(e T) {
	p.mu.Lock()
	queues := make([]*Queue[T], len(p.queues))
	copy(queues, p.queues)
	p.mu.Unlock()

	for _, q := range queues {
		q.push(e)
	}
}

// Close closes every queue still attached to the producer.
func (p *Producer[T]) Close() {
	p.mu.Lock()
	queues := make([]*Queue[T], len(p.queues))
	copy(queues, p.queues)
	p.mu.Unlock()

	for _, q := range queues {
		q.Close()
	}
}

// remove detaches q; called from Queue.Close.
func (p *Producer[T]) remove(q *Queue[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, candidate := range p.queues {
		if candidate == q {
			p.queues = append(p.queues[:i], p.queues[i+1:]...)
			return
		}
	}
}

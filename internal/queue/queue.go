// SPDX-License-Identifier:Apache-2.0

// Package queue is the ingress event queue of a protocol engine: a
// mutex and condition variable guarding a FIFO, with a timed blocking
// pop.
package queue

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned by PopBlocking when the deadline passes
	// with the queue still empty.
	ErrTimeout = errors.New("queue wait timed out")
	// ErrClosed is returned once the queue has been closed.
	ErrClosed = errors.New("queue closed")
)

// Kind tags the variant held by an Event.
type Kind int

const (
	KindFrame Kind = iota + 1
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Event is one unit of work for the engine. A frame event owns its
// buffer until Release is called.
type Event struct {
	Kind  Kind
	Frame []byte

	release func([]byte)
}

// NewFrameEvent wraps a received frame. release, if not nil, is handed
// the buffer back once the event has been processed.
func NewFrameEvent(frame []byte, release func([]byte)) *Event {
	return &Event{
		Kind:    KindFrame,
		Frame:   frame,
		release: release,
	}
}

// Release gives the frame buffer back to its owner. Calling it more
// than once is a no-op.
func (e *Event) Release() {
	if e.release != nil {
		e.release(e.Frame)
		e.release = nil
	}
	e.Frame = nil
}

// Queue is an unbounded FIFO of events shared by one or more producers
// and a single consumer.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []*Event
	closed bool
	// woken records a Wake that no waiter has consumed yet.
	woken bool
	// wait numbers each timed wait; a timer firing for an older one is
	// ignored.
	wait uint64
}

// afterFunc arms the wait timer. Tests replace it.
var afterFunc = time.AfterFunc

// New returns an empty queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends evt and wakes the consumer.
func (q *Queue) Push(evt *Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		evt.Release()
		return
	}
	q.events = append(q.events, evt)
	q.cond.Signal()
}

// PopBlocking returns the oldest event. If the queue is empty it waits
// once, until a push, a Wake or the timeout. A wake that finds the
// queue still empty returns (nil, nil) and the caller is expected to
// loop.
func (q *Queue) PopBlocking(timeout time.Duration) (*Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}

	timedOut := false
	if len(q.events) == 0 && !q.woken {
		q.wait++
		wait := q.wait
		t := afterFunc(timeout, func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			if q.wait != wait {
				return
			}
			timedOut = true
			q.cond.Broadcast()
		})
		q.cond.Wait()
		t.Stop()
		q.wait++
	}
	q.woken = false

	if len(q.events) > 0 {
		return q.pop(), nil
	}
	if q.closed {
		return nil, ErrClosed
	}
	if timedOut {
		return nil, ErrTimeout
	}
	return nil, nil
}

// TryPop returns the oldest event without waiting.
func (q *Queue) TryPop() (*Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil, false
	}
	return q.pop(), true
}

// pop must be called with mu held and at least one event queued.
func (q *Queue) pop() *Event {
	evt := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return evt
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Wake unblocks a waiting PopBlocking without queueing anything. If
// nobody is waiting, the next PopBlocking returns without waiting.
func (q *Queue) Wake() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.woken = true
	q.cond.Broadcast()
}

// Close releases every queued event and makes further waits fail with
// ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for _, evt := range q.events {
		evt.Release()
	}
	q.events = nil
	q.cond.Broadcast()
}

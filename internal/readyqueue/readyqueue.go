// Package readyqueue implements the scheduler's ready queue: an
// ordered, singly-linked FIFO of process records threaded through
// each record's intrusive next link.
//
// Queue is not safe for concurrent use; callers serialize access
// under their own lock (the scheduler package's queue mutex).
package readyqueue

import "github.com/schedcore/cpusim/internal/process"

// Queue is an intrusive singly-linked FIFO with O(1) tail-append.
// The zero value is an empty queue.
type Queue struct {
	head, tail *process.Process
}

// IsEmpty reports whether the queue has no linked processes.
func (q *Queue) IsEmpty() bool { return q.head == nil }

// Enqueue stamps p's EnqueueTime and appends it at the tail.
//
// Precondition: p is not currently linked into any queue.
func (q *Queue) Enqueue(p *process.Process, now uint64) {
	p.EnqueueTime = now
	p.SetNext(nil)
	if q.tail == nil {
		q.head, q.tail = p, p
		return
	}
	q.tail.SetNext(p)
	q.tail = p
}

// DequeueHead removes and returns the head of the queue, or (nil,
// false) if the queue is empty.
func (q *Queue) DequeueHead() (*process.Process, bool) {
	p := q.head
	if p == nil {
		return nil, false
	}
	q.head = p.Next()
	if q.head == nil {
		q.tail = nil
	}
	p.SetNext(nil)
	return p, true
}

// Extract unlinks p given its predecessor. prev == nil means p is the
// head. Fixes up tail when p is the tail.
//
// Extract does not verify that p is actually reachable from head via
// prev; callers obtain (p, prev) pairs by walking the queue
// themselves (see policy.Selector implementations).
func (q *Queue) Extract(p, prev *process.Process) {
	if prev == nil {
		q.head = p.Next()
	} else {
		prev.SetNext(p.Next())
	}
	if p == q.tail {
		q.tail = prev
	}
	p.SetNext(nil)
}

// Head returns the current head without removing it, or nil if empty.
// Used by selectors to walk the queue.
func (q *Queue) Head() *process.Process { return q.head }

// Len walks the full chain and counts its elements. O(n); a debug and
// test aid only, never called from a scheduling hot path.
func (q *Queue) Len() int {
	n := 0
	for p := q.head; p != nil; p = p.Next() {
		n++
	}
	return n
}

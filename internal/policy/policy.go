// Package policy implements the four scheduling disciplines: FCFS,
// Priority Aging (PA), Round Robin (RR), and SRTF. Each policy scans
// the ready queue once (RR degenerates to a head-dequeue) and
// extracts its winner.
package policy

import (
	"github.com/schedcore/cpusim/internal/process"
	"github.com/schedcore/cpusim/internal/readyqueue"
)

// Name identifies a policy, matching the CLI's -r/-p/-s flags (the
// zero value Name("") is the unknown-policy fallback).
type Name string

const (
	FCFS Name = "fcfs"
	PA   Name = "pa"
	RR   Name = "rr"
	SRTF Name = "srtf"
)

// InfiniteSlice is the sentinel TimeSlice value meaning "no
// preemption timer."
const InfiniteSlice int64 = -1

// Selector is a per-policy rule for picking the next process to run.
// Implementations are stateless except for policy parameters (PA's
// age weight, RR's quantum) fixed at construction.
type Selector interface {
	Name() Name

	// TimeSlice is the quantum handed to context_switch: ticks for
	// RR, InfiniteSlice otherwise.
	TimeSlice() int64

	// ProbesOnWakeUp reports whether wake_up's preemption probe
	// applies to this policy (true only for PA and SRTF).
	ProbesOnWakeUp() bool

	// Select scans the ready queue, picks a winner under this
	// policy's metric, extracts it, and returns it. Returns (nil,
	// false) if the queue is empty.
	Select(now uint64, q *readyqueue.Queue) (*process.Process, bool)

	// Metric returns the value this policy minimizes for p, used by
	// the wake-up preemption probe to find the worst running
	// occupant. Only meaningful when ProbesOnWakeUp is true.
	Metric(now uint64, p *process.Process) float64
}

// scan walks q once, keeping the process for which better reports
// true against the current best. It returns the winner and the
// winner's predecessor (nil if the winner is the head), so the caller
// can readyqueue.Extract it.
func scan(q *readyqueue.Queue, better func(candidate, best *process.Process) bool) (best, bestPrev *process.Process, found bool) {
	var prev *process.Process
	for p := q.Head(); p != nil; p = p.Next() {
		if !found || better(p, best) {
			best, bestPrev, found = p, prev, true
		}
		prev = p
	}
	return
}

// fallbackSelector is the unknown-policy fallback: FCFS's name, slice
// and probe behaviour, but a plain head-dequeue Select.
type fallbackSelector struct{ fcfsSelector }

func (s *fallbackSelector) Select(now uint64, q *readyqueue.Queue) (*process.Process, bool) {
	return q.DequeueHead()
}

// New constructs the Selector for name. ageWeight and timeSlice are
// only consulted for PA and RR respectively. An unrecognized name
// falls back to plain head-dequeue (spec's unknown-policy fallback),
// returned as *fallbackSelector, which reports itself as FCFS since
// FCFS is equivalent to a head-dequeue over an already-ordered queue.
func New(name Name, ageWeight uint64, timeSliceTicks int64) Selector {
	switch name {
	case PA:
		return &paSelector{ageWeight: ageWeight}
	case RR:
		return &rrSelector{slice: timeSliceTicks}
	case SRTF:
		return &srtfSelector{}
	case FCFS:
		return &fcfsSelector{}
	default:
		return &fallbackSelector{}
	}
}

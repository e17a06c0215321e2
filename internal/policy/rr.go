package policy

import (
	"github.com/schedcore/cpusim/internal/process"
	"github.com/schedcore/cpusim/internal/readyqueue"
)

// rrSelector (Round Robin) reduces to a FIFO head-dequeue; no scan is
// needed or performed. Preemptive on timer; slice is timeSlice ticks.
type rrSelector struct {
	slice int64
}

func (s *rrSelector) Name() Name         { return RR }
func (s *rrSelector) TimeSlice() int64   { return s.slice }
func (s *rrSelector) ProbesOnWakeUp() bool { return false }

// Metric is not meaningful for RR; ProbesOnWakeUp is false so it is
// never consulted.
func (s *rrSelector) Metric(now uint64, p *process.Process) float64 { return 0 }

func (s *rrSelector) Select(now uint64, q *readyqueue.Queue) (*process.Process, bool) {
	return q.DequeueHead()
}

package policy

import (
	"github.com/schedcore/cpusim/internal/process"
	"github.com/schedcore/cpusim/internal/readyqueue"
)

// fcfsSelector minimizes ArrivalTime. Non-preemptive, infinite slice.
type fcfsSelector struct{}

func (s *fcfsSelector) Name() Name         { return FCFS }
func (s *fcfsSelector) TimeSlice() int64   { return InfiniteSlice }
func (s *fcfsSelector) ProbesOnWakeUp() bool { return false }

func (s *fcfsSelector) Metric(now uint64, p *process.Process) float64 {
	return float64(p.ArrivalTime)
}

func (s *fcfsSelector) Select(now uint64, q *readyqueue.Queue) (*process.Process, bool) {
	best, bestPrev, found := scan(q, func(cand, best *process.Process) bool {
		return cand.ArrivalTime < best.ArrivalTime
	})
	if !found {
		return nil, false
	}
	q.Extract(best, bestPrev)
	return best, true
}

package policy

import (
	"github.com/schedcore/cpusim/internal/process"
	"github.com/schedcore/cpusim/internal/readyqueue"
)

// srtfSelector (Shortest Remaining Time First) minimizes
// TotalTimeRemaining. Preemptive on wake-up only; infinite slice.
type srtfSelector struct{}

func (s *srtfSelector) Name() Name         { return SRTF }
func (s *srtfSelector) TimeSlice() int64   { return InfiniteSlice }
func (s *srtfSelector) ProbesOnWakeUp() bool { return true }

func (s *srtfSelector) Metric(now uint64, p *process.Process) float64 {
	return float64(p.RemainingTicks())
}

func (s *srtfSelector) Select(now uint64, q *readyqueue.Queue) (*process.Process, bool) {
	// Strict < alone; the first occurrence of the minimum wins, which
	// by the queue invariant is also the earliest enqueued. No
	// separate tie-break against arrival_time is needed here (unlike
	// PA).
	best, bestPrev, found := scan(q, func(cand, best *process.Process) bool {
		return cand.RemainingTicks() < best.RemainingTicks()
	})
	if !found {
		return nil, false
	}
	q.Extract(best, bestPrev)
	return best, true
}

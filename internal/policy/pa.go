package policy

import (
	"github.com/schedcore/cpusim/internal/process"
	"github.com/schedcore/cpusim/internal/readyqueue"
)

// paSelector (Priority Aging) minimizes
// priority - (now-enqueue_time)*age_weight. Preemptive on wake-up
// only; infinite slice.
type paSelector struct {
	ageWeight uint64
}

func (s *paSelector) Name() Name         { return PA }
func (s *paSelector) TimeSlice() int64   { return InfiniteSlice }
func (s *paSelector) ProbesOnWakeUp() bool { return true }

// Metric computes priority_with_age(now, p). now-EnqueueTime is an
// unsigned tick difference, promoted to float64 before scaling by
// age_weight, per spec's numeric semantics.
func (s *paSelector) Metric(now uint64, p *process.Process) float64 {
	age := now - p.EnqueueTime
	return float64(p.Priority) - float64(age)*float64(s.ageWeight)
}

func (s *paSelector) Select(now uint64, q *readyqueue.Queue) (*process.Process, bool) {
	best, bestPrev, found := scan(q, func(cand, best *process.Process) bool {
		cm, bm := s.Metric(now, cand), s.Metric(now, best)
		if cm != bm {
			return cm < bm
		}
		// Equal metric: explicit tie-break by earlier arrival_time,
		// re-checked because first-better-wins does not coincide
		// with this rule (a later, equal-metric candidate must not
		// displace an earlier-arriving current best, and an earlier
		// candidate must displace a later-arriving current best even
		// though the walk already moved past it).
		return cand.ArrivalTime < best.ArrivalTime
	})
	if !found {
		return nil, false
	}
	q.Extract(best, bestPrev)
	return best, true
}

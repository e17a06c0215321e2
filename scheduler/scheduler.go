// Package scheduler is the scheduling core of a multi-CPU operating
// system simulator: it decides, in response to events raised by a
// harness, which runnable process occupies each simulated CPU.
//
// A Scheduler bundles its Config, ready queue, running table, and
// synchronization primitives into a single value constructed once at
// startup and threaded through every event handler, instead of
// package-level globals: a scheduling core needs to support more than
// one simulated machine per process.
package scheduler

import (
	"sync"

	"github.com/schedcore/cpusim/internal/policy"
	"github.com/schedcore/cpusim/internal/process"
	"github.com/schedcore/cpusim/internal/readyqueue"
	"github.com/schedcore/cpusim/internal/runningtable"
	"github.com/schedcore/cpusim/internal/schedlog"
	"github.com/schedcore/cpusim/internal/trace"
)

// Simulator is the capability the harness exposes to the core: the
// outbound half of the callback fan-in the harness exposes. The
// core never blocks on any of these calls.
type Simulator interface {
	// GetCurrentTime returns the monotonically non-decreasing
	// simulated tick count. Thread-safe.
	GetCurrentTime() uint64

	// ContextSwitch informs the harness which process (nil means
	// idle) to run next on cpuID, with the given slice in ticks
	// (policy.InfiniteSlice for "no preemption timer"). Non-blocking.
	ContextSwitch(cpuID int, chosen *process.Process, sliceTicks int64)

	// ForcePreempt asks the harness to arrange a Preempt(cpuID) call.
	// May be asynchronous.
	ForcePreempt(cpuID int)
}

// Config is constructed once at startup (typically from CLI flags)
// and never mutated afterward.
type Config struct {
	Policy    policy.Name
	CPUCount  int
	AgeWeight uint64 // PA only

	// TimeSliceTicks is RR's quantum. Ignored by every other policy.
	TimeSliceTicks int64
}

// Scheduler is the scheduling core. The zero value is not usable;
// construct with New.
type Scheduler struct {
	cfg Config
	sim Simulator
	sel policy.Selector
	rec *trace.Recorder

	queueMu   sync.Mutex
	queueCond *sync.Cond
	queue     readyqueue.Queue

	currentMu sync.Mutex
	current   *runningtable.Table
}

// New constructs a Scheduler for cfg, wired to sim.
func New(cfg Config, sim Simulator) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		sim:     sim,
		sel:     policy.New(cfg.Policy, cfg.AgeWeight, cfg.TimeSliceTicks),
		current: runningtable.New(cfg.CPUCount),
	}
	s.queueCond = sync.NewCond(&s.queueMu)
	return s
}

// SetRecorder attaches a trace recorder; every context_switch and
// force_preempt the core issues is also appended to it. Optional: a
// nil recorder (the default) disables tracing.
func (s *Scheduler) SetRecorder(r *trace.Recorder) { s.rec = r }

// PolicyName reports the configured policy, mainly for logging and
// tests.
func (s *Scheduler) PolicyName() policy.Name { return s.sel.Name() }

// schedule is the internal step shared by Idle, Preempt, Yield and
// Terminate (WakeUp only enqueues). It must be called with no lock held.
func (s *Scheduler) schedule(cpuID int) {
	now := s.sim.GetCurrentTime()

	s.queueMu.Lock()
	chosen, ok := s.sel.Select(now, &s.queue)
	s.queueMu.Unlock()

	s.currentMu.Lock()
	if ok {
		s.current.Set(cpuID, chosen)
	} else {
		s.current.Set(cpuID, nil)
	}
	s.currentMu.Unlock()

	if ok {
		// Safe outside any lock: by invariant, only this schedule
		// step can observe chosen as Ready at this point, so no
		// concurrent handler can race this write.
		chosen.State = process.Running
	}

	slice := s.sel.TimeSlice()
	var pid uint64
	var name string
	if ok {
		pid, name = chosen.PID, chosen.Name
	}
	schedlog.Logger().Debug().
		Str("handler", "schedule").
		Int("cpu", cpuID).
		Bool("idle", !ok).
		Uint64("pid", pid).
		Int64("slice", slice).
		Msg("context switch")

	s.sim.ContextSwitch(cpuID, chosen, slice)

	if s.rec != nil {
		s.rec.RecordContextSwitch(trace.ContextSwitch{
			Tick:       now,
			CPU:        cpuID,
			Idle:       !ok,
			PID:        pid,
			Name:       name,
			SliceTicks: slice,
		})
	}
}

// Idle is called when the harness has no process to run on cpuID.
func (s *Scheduler) Idle(cpuID int) {
	schedlog.Event("idle", cpuID, 0, nil)

	s.queueMu.Lock()
	for s.queue.IsEmpty() {
		s.queueCond.Wait()
	}
	s.queueMu.Unlock()

	s.schedule(cpuID)
}

// Preempt is called when RR's timer fires, or when the harness honors
// a ForcePreempt request.
func (s *Scheduler) Preempt(cpuID int) {
	s.currentMu.Lock()
	p := s.current.Get(cpuID)
	s.currentMu.Unlock()

	if p != nil {
		schedlog.Event("preempt", cpuID, p.PID, nil)
		p.State = process.Ready
		s.queueMu.Lock()
		s.queue.Enqueue(p, s.sim.GetCurrentTime())
		s.queueCond.Signal()
		s.queueMu.Unlock()
	} else {
		schedlog.Event("preempt", cpuID, 0, nil)
	}

	s.schedule(cpuID)
}

// Yield is called when the running process on cpuID initiates I/O.
// The waiting process is not enqueued; the harness holds it until I/O
// completes. The running-table cell is left populated with the
// waiting process until schedule overwrites it (see
// runningtable.Table.Set's doc comment — this is the explicit
// hand-off point, not an implicit timing assumption).
func (s *Scheduler) Yield(cpuID int) {
	s.currentMu.Lock()
	p := s.current.Get(cpuID)
	if p != nil {
		p.State = process.Waiting
	}
	s.currentMu.Unlock()

	if p != nil {
		schedlog.Event("yield", cpuID, p.PID, nil)
	}

	s.schedule(cpuID)
}

// Terminate is called when the running process on cpuID completes.
// A Terminate on an idle cell is a no-op.
func (s *Scheduler) Terminate(cpuID int) {
	s.currentMu.Lock()
	p := s.current.Clear(cpuID)
	s.currentMu.Unlock()

	if p != nil {
		p.State = process.Terminated
		schedlog.Event("terminate", cpuID, p.PID, nil)
	}

	s.schedule(cpuID)
}

// WakeUp is called when p's I/O completes, or (for a brand-new
// process) the first time the harness raises it into the core. It may
// be invoked by an I/O thread concurrently with any CPU handler.
func (s *Scheduler) WakeUp(p *process.Process) {
	schedlog.Event("wake_up", -1, p.PID, nil)
	p.State = process.Ready

	now := s.sim.GetCurrentTime()
	s.queueMu.Lock()
	s.queue.Enqueue(p, now)
	s.queueCond.Signal()
	s.queueMu.Unlock()

	if !s.sel.ProbesOnWakeUp() {
		// RR relies on its timer; FCFS is non-preemptive.
		return
	}
	s.probePreempt(now, p)
}

// probePreempt finds an idle CPU (do nothing, it will pick the waker
// up on its own) or the running-table cell with the worst metric, and
// force-preempts it if the waker is strictly better. Only called for
// PA and SRTF.
func (s *Scheduler) probePreempt(now uint64, waker *process.Process) {
	s.currentMu.Lock()
	var anyIdle bool
	var worstCPU int
	var worstMetric float64
	var worstFound bool
	s.current.Each(func(cpuID int, occ *process.Process) {
		if occ == nil {
			anyIdle = true
			return
		}
		m := s.sel.Metric(now, occ)
		if !worstFound || m > worstMetric {
			worstMetric, worstCPU, worstFound = m, cpuID, true
		}
	})
	s.currentMu.Unlock()

	if anyIdle || !worstFound {
		return
	}

	if s.sel.Metric(now, waker) < worstMetric {
		s.sim.ForcePreempt(worstCPU)
		if s.rec != nil {
			s.rec.RecordForcePreempt(trace.ForcePreempt{Tick: now, CPU: worstCPU})
		}
	}
}

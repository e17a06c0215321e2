package main

import (
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schedcore/cpusim/internal/cpuaffinity"
	"github.com/schedcore/cpusim/internal/process"
	"github.com/schedcore/cpusim/internal/schedlog"
	"github.com/schedcore/cpusim/internal/trace"
	"github.com/schedcore/cpusim/scheduler"
)

// tickInterval is the real-world duration of one simulated tick. It
// only paces the demo so a human can watch it; the scheduler core
// itself has no notion of wall-clock time.
const tickInterval = 15 * time.Millisecond

// cpuSlot is the harness's per-CPU bookkeeping: what the core last
// told this CPU to run, and the pending force-preempt signal.
type cpuSlot struct {
	mu           sync.Mutex
	assigned     *process.Process
	sliceEndTick uint64 // 0 means no timer (infinite slice)

	forcePreempt chan struct{}
}

// Harness is a minimal, in-process simulator: one goroutine per
// simulated CPU, one I/O-completion goroutine, and a toy process
// generator. It implements scheduler.Simulator.
//
// The harness, the process generator, and Gantt/stats reporting are
// all external collaborators to the scheduling core; this harness
// exists only so cmd/schedsim is a runnable demonstration of it, and
// is deliberately kept small.
type Harness struct {
	sched *scheduler.Scheduler
	rec   *trace.Recorder
	pin   bool

	// allowedCores restricts which real cores -pin may use, in
	// ascending order (set by -cpuset). Simulated CPU i is pinned to
	// allowedCores[i % len(allowedCores)]. Empty means "pin CPU i to
	// real core i", the unrestricted default.
	allowedCores []int

	tick uint64 // atomic

	cpus []*cpuSlot

	ioMu      sync.Mutex
	ioPending map[*process.Process]uint64 // process -> tick at which I/O completes

	rngMu sync.Mutex
	rng   *rand.Rand

	nextPID uint64 // atomic
}

// NewHarness constructs a Harness for cpuCount simulated CPUs. A nil
// or empty allowedCores leaves -pin unrestricted (CPU i pins to real
// core i).
func NewHarness(cpuCount int, rec *trace.Recorder, pin bool, allowedCores []int, seed int64) *Harness {
	cpus := make([]*cpuSlot, cpuCount)
	for i := range cpus {
		cpus[i] = &cpuSlot{forcePreempt: make(chan struct{}, 1)}
	}
	return &Harness{
		rec:          rec,
		pin:          pin,
		allowedCores: allowedCores,
		cpus:         cpus,
		ioPending:    make(map[*process.Process]uint64),
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// attach wires the harness to its scheduler. Done in two steps
// (construct, then attach) because the Scheduler needs the Harness as
// its Simulator and the Harness calls the scheduler's event handlers.
func (h *Harness) attach(s *scheduler.Scheduler) { h.sched = s }

// GetCurrentTime implements scheduler.Simulator.
func (h *Harness) GetCurrentTime() uint64 { return atomic.LoadUint64(&h.tick) }

// ContextSwitch implements scheduler.Simulator.
func (h *Harness) ContextSwitch(cpuID int, chosen *process.Process, sliceTicks int64) {
	cs := h.cpus[cpuID]
	cs.mu.Lock()
	cs.assigned = chosen
	if sliceTicks >= 0 {
		cs.sliceEndTick = atomic.LoadUint64(&h.tick) + uint64(sliceTicks)
	} else {
		cs.sliceEndTick = 0
	}
	cs.mu.Unlock()

	ev := schedlog.Logger().Info().Int("cpu", cpuID)
	if chosen == nil {
		ev.Msg("cpu idle")
		return
	}
	ev.Uint64("pid", chosen.PID).Str("name", chosen.Name).Msg("context switch")
}

// ForcePreempt implements scheduler.Simulator. It is deliberately
// asynchronous: it only signals the target CPU's goroutine, which
// calls Preempt itself the next time it polls.
func (h *Harness) ForcePreempt(cpuID int) {
	select {
	case h.cpus[cpuID].forcePreempt <- struct{}{}:
	default:
		// Already pending; at most one outstanding force-preempt per
		// CPU is meaningful.
	}
}

// runClock advances the shared simulated clock. It never touches a
// process or calls a scheduler handler itself; that is each CPU
// goroutine's and the I/O goroutine's job.
func (h *Harness) runClock(stop <-chan struct{}) {
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			atomic.AddUint64(&h.tick, 1)
		}
	}
}

// runCPU drives simulated CPU cpuID until stop is closed.
func (h *Harness) runCPU(cpuID int, stop <-chan struct{}) {
	if h.pin {
		core := cpuID
		if len(h.allowedCores) > 0 {
			core = h.allowedCores[cpuID%len(h.allowedCores)]
		}
		if err := cpuaffinity.PinSelfToCore(core); err != nil {
			ev := schedlog.Logger().Warn().Int("cpu", cpuID).Int("core", core).Err(err)
			if self, selfErr := cpuaffinity.CPUSetOfSelf(); selfErr == nil {
				ev = ev.Str("current_affinity", cpuaffinity.String(self))
			}
			ev.Msg("-pin: could not set affinity")
		}
	}

	cs := h.cpus[cpuID]
	poll := time.NewTicker(tickInterval / 2)
	defer poll.Stop()

	for {
		select {
		case <-stop:
			return
		default:
		}

		h.sched.Idle(cpuID)

		for {
			cs.mu.Lock()
			p := cs.assigned
			sliceEnd := cs.sliceEndTick
			cs.mu.Unlock()
			if p == nil {
				break // back to Idle()
			}

			select {
			case <-stop:
				return
			case <-cs.forcePreempt:
				h.sched.Preempt(cpuID)
			case <-poll.C:
				h.stepRunning(cpuID, p, sliceEnd)
			}
		}
	}
}

// stepRunning accounts one poll's worth of progress for the process
// currently running on cpuID, and calls the appropriate handler if
// the burst ends, the slice expires, or the process starts I/O.
func (h *Harness) stepRunning(cpuID int, p *process.Process, sliceEnd uint64) {
	tick := atomic.LoadUint64(&h.tick)

	if p.RemainingTicks() == 0 {
		h.sched.Terminate(cpuID)
		return
	}
	if sliceEnd != 0 && tick >= sliceEnd {
		h.sched.Preempt(cpuID)
		return
	}
	if h.rollForIO() {
		h.startIO(p, tick)
		h.sched.Yield(cpuID)
		return
	}

	p.DecrementRemaining()
	atomic.AddUint64(&p.TimeInCPUBurst, 1)
}

// rollForIO is the toy process generator's I/O model: a small
// per-poll chance that the running process starts an I/O burst.
func (h *Harness) rollForIO() bool {
	h.rngMu.Lock()
	defer h.rngMu.Unlock()
	return h.rng.Float64() < 0.04
}

func (h *Harness) startIO(p *process.Process, now uint64) {
	h.rngMu.Lock()
	ioLen := uint64(5 + h.rng.Intn(20))
	h.rngMu.Unlock()

	h.ioMu.Lock()
	h.ioPending[p] = now + ioLen
	h.ioMu.Unlock()
}

// runIO is the I/O-completion thread: it polls for pending I/O whose
// deadline has passed and wakes those processes up.
func (h *Harness) runIO(stop <-chan struct{}) {
	t := time.NewTicker(tickInterval / 2)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			now := atomic.LoadUint64(&h.tick)
			var done []*process.Process
			h.ioMu.Lock()
			for p, deadline := range h.ioPending {
				if now >= deadline {
					done = append(done, p)
					delete(h.ioPending, p)
				}
			}
			h.ioMu.Unlock()

			for _, p := range done {
				h.sched.WakeUp(p)
			}
		}
	}
}

// spawn creates and immediately wakes a brand-new process (its first
// New->Ready transition), using the harness's generator RNG for its
// workload parameters.
func (h *Harness) spawn(name string) *process.Process {
	h.rngMu.Lock()
	priority := uint64(h.rng.Intn(20))
	remaining := uint64(80 + h.rng.Intn(400))
	h.rngMu.Unlock()

	pid := atomic.AddUint64(&h.nextPID, 1)
	now := h.GetCurrentTime()
	p := &process.Process{
		PID:                pid,
		Name:               name,
		Priority:           priority,
		ArrivalTime:        now,
		TotalTimeRemaining: remaining,
	}
	h.sched.WakeUp(p)
	return p
}

// runGenerator creates count processes, staggered over time, then
// exits. The generator is an external collaborator to the scheduling
// core, so this one is intentionally tiny — just enough to drive the
// demo.
func (h *Harness) runGenerator(count int, stop <-chan struct{}) {
	for i := 0; i < count; i++ {
		select {
		case <-stop:
			return
		default:
		}
		h.spawn(generatedName(i))

		h.rngMu.Lock()
		wait := time.Duration(10+h.rng.Intn(40)) * tickInterval
		h.rngMu.Unlock()

		select {
		case <-stop:
			return
		case <-time.After(wait):
		}
	}
}

func generatedName(i int) string {
	return "proc" + strconv.Itoa(i)
}

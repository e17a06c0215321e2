package scheduler_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcore/cpusim/internal/policy"
	"github.com/schedcore/cpusim/internal/process"
	"github.com/schedcore/cpusim/scheduler"
)

// switchCall records one ContextSwitch invocation for assertions.
type switchCall struct {
	cpu   int
	pid   uint64
	idle  bool
	slice int64
}

// fakeSim is a deterministic, channel-observable scheduler.Simulator
// test double: no real clock or goroutines of its own, just recorded
// calls a test can drain and a tick a test fully controls.
type fakeSim struct {
	mu   sync.Mutex
	tick uint64

	switches chan switchCall
	preempts chan int
}

func newFakeSim() *fakeSim {
	return &fakeSim{
		switches: make(chan switchCall, 64),
		preempts: make(chan int, 64),
	}
}

func (f *fakeSim) GetCurrentTime() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tick
}

func (f *fakeSim) setTick(t uint64) {
	f.mu.Lock()
	f.tick = t
	f.mu.Unlock()
}

func (f *fakeSim) ContextSwitch(cpuID int, chosen *process.Process, sliceTicks int64) {
	sc := switchCall{cpu: cpuID, idle: chosen == nil, slice: sliceTicks}
	if chosen != nil {
		sc.pid = chosen.PID
	}
	f.switches <- sc
}

func (f *fakeSim) ForcePreempt(cpuID int) { f.preempts <- cpuID }

func (f *fakeSim) awaitSwitch(t *testing.T) switchCall {
	t.Helper()
	select {
	case sc := <-f.switches:
		return sc
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ContextSwitch")
		return switchCall{}
	}
}

// FCFS runs A, C, B in arrival order.
func TestFCFSOrderEndToEnd(t *testing.T) {
	sim := newFakeSim()
	s := scheduler.New(scheduler.Config{Policy: policy.FCFS, CPUCount: 1}, sim)

	a := &process.Process{PID: 1, ArrivalTime: 0}
	b := &process.Process{PID: 2, ArrivalTime: 2}
	c := &process.Process{PID: 3, ArrivalTime: 1}
	s.WakeUp(a)
	s.WakeUp(b)
	s.WakeUp(c)

	s.Idle(0)
	sc := sim.awaitSwitch(t)
	assert.Equal(t, uint64(1), sc.pid)
	assert.Equal(t, policy.InfiniteSlice, sc.slice)

	s.Terminate(0)
	sc = sim.awaitSwitch(t)
	assert.Equal(t, uint64(3), sc.pid)

	s.Terminate(0)
	sc = sim.awaitSwitch(t)
	assert.Equal(t, uint64(2), sc.pid)

	s.Terminate(0)
	sc = sim.awaitSwitch(t)
	assert.True(t, sc.idle)
}

// RR hands the CPU around A, B, A on a two-process ready queue under
// repeated timer preemption.
func TestRRQuantumHandoff(t *testing.T) {
	sim := newFakeSim()
	s := scheduler.New(scheduler.Config{Policy: policy.RR, CPUCount: 1, TimeSliceTicks: 4}, sim)

	a := &process.Process{PID: 1}
	b := &process.Process{PID: 2}
	s.WakeUp(a)
	s.WakeUp(b)

	s.Idle(0)
	sc := sim.awaitSwitch(t)
	assert.Equal(t, uint64(1), sc.pid)
	assert.Equal(t, int64(4), sc.slice)

	s.Preempt(0) // A's quantum expires; A re-enqueued behind B
	sc = sim.awaitSwitch(t)
	assert.Equal(t, uint64(2), sc.pid)

	s.Preempt(0) // B's quantum expires; A comes back around
	sc = sim.awaitSwitch(t)
	assert.Equal(t, uint64(1), sc.pid)
}

// PA's wake-up probe force-preempts a running occupant when a
// newly-woken process has a strictly better metric.
func TestPAWakeUpPreemptsWorseOccupant(t *testing.T) {
	sim := newFakeSim()
	s := scheduler.New(scheduler.Config{Policy: policy.PA, CPUCount: 1, AgeWeight: 1}, sim)

	low := &process.Process{PID: 1, Priority: 10}
	s.WakeUp(low)
	s.Idle(0)
	_ = sim.awaitSwitch(t) // low is now running on CPU 0, metric 10

	// A much more urgent (lower priority number) process wakes up on
	// the same tick, so aging plays no part in the comparison: its
	// metric (1) is strictly better than the running occupant's (10).
	urgent := &process.Process{PID: 2, Priority: 1}
	s.WakeUp(urgent)

	select {
	case cpu := <-sim.preempts:
		assert.Equal(t, 0, cpu)
	case <-time.After(time.Second):
		t.Fatal("expected ForcePreempt for strictly more urgent waker")
	}
}

// SRTF wake-up preemption picks the worse of two running occupants
// across CPUs (here CPU 0), never the better one.
func TestSRTFWakeUpPreemptsWorstCPU(t *testing.T) {
	sim := newFakeSim()
	s := scheduler.New(scheduler.Config{Policy: policy.SRTF, CPUCount: 2}, sim)

	long := &process.Process{PID: 1, TotalTimeRemaining: 500}
	short := &process.Process{PID: 2, TotalTimeRemaining: 50}
	s.WakeUp(long)
	s.Idle(0)
	_ = sim.awaitSwitch(t)
	s.WakeUp(short)
	s.Idle(1)
	_ = sim.awaitSwitch(t)

	// Both CPUs now occupied: CPU0 has the 500-remaining process (the
	// worst SRTF metric), CPU1 has the 50-remaining one. A waker with
	// less remaining time than the worst occupant must force-preempt
	// CPU0, never CPU1.
	waker := &process.Process{PID: 3, TotalTimeRemaining: 10}
	s.WakeUp(waker)

	select {
	case cpu := <-sim.preempts:
		assert.Equal(t, 0, cpu)
	case <-time.After(time.Second):
		t.Fatal("expected ForcePreempt on the longer-remaining CPU")
	}
}

// Idle blocks on an empty ready queue until a concurrent wake_up
// unblocks it.
func TestIdleBlocksUntilWakeUp(t *testing.T) {
	sim := newFakeSim()
	s := scheduler.New(scheduler.Config{Policy: policy.FCFS, CPUCount: 1}, sim)

	done := make(chan struct{})
	go func() {
		s.Idle(0)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Idle returned before any process was ever woken up")
	case <-time.After(50 * time.Millisecond):
	}

	p := &process.Process{PID: 1}
	s.WakeUp(p)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Idle did not unblock after WakeUp")
	}
	sc := sim.awaitSwitch(t)
	assert.Equal(t, uint64(1), sc.pid)
}

// FCFS never triggers force_preempt, even when a much later,
// "more important"-looking process wakes up while another runs —
// FCFS has no preemption concept at all.
func TestFCFSNeverForcePreempts(t *testing.T) {
	sim := newFakeSim()
	s := scheduler.New(scheduler.Config{Policy: policy.FCFS, CPUCount: 1}, sim)

	a := &process.Process{PID: 1, Priority: 10, TotalTimeRemaining: 1000}
	s.WakeUp(a)
	s.Idle(0)
	_ = sim.awaitSwitch(t)

	b := &process.Process{PID: 2, Priority: 1, ArrivalTime: 50, TotalTimeRemaining: 1}
	s.WakeUp(b)

	select {
	case cpu := <-sim.preempts:
		t.Fatalf("FCFS must never force-preempt, got ForcePreempt(%d)", cpu)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTerminateOnIdleCellIsNoOp(t *testing.T) {
	sim := newFakeSim()
	s := scheduler.New(scheduler.Config{Policy: policy.FCFS, CPUCount: 1}, sim)

	require.NotPanics(t, func() { s.Terminate(0) })
	sc := sim.awaitSwitch(t)
	assert.True(t, sc.idle)
}

func TestYieldLeavesWaitingProcessOffQueue(t *testing.T) {
	sim := newFakeSim()
	s := scheduler.New(scheduler.Config{Policy: policy.FCFS, CPUCount: 1}, sim)

	a := &process.Process{PID: 1}
	s.WakeUp(a)
	s.Idle(0)
	_ = sim.awaitSwitch(t)

	s.Yield(0)
	sc := sim.awaitSwitch(t)
	assert.True(t, sc.idle, "yielding process must not be re-enqueued, CPU goes idle")
	assert.Equal(t, process.Waiting, a.State)
}

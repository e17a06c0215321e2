package process_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schedcore/cpusim/internal/process"
)

func TestLifecycleString(t *testing.T) {
	cases := map[process.Lifecycle]string{
		process.New:        "new",
		process.Ready:      "ready",
		process.Running:    "running",
		process.Waiting:    "waiting",
		process.Terminated: "terminated",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
	assert.Contains(t, process.Lifecycle(99).String(), "99")
}

func TestNextLinkDefaultsNil(t *testing.T) {
	p := &process.Process{PID: 1}
	assert.Nil(t, p.Next())
	other := &process.Process{PID: 2}
	p.SetNext(other)
	assert.Same(t, other, p.Next())
}

func TestRemainingTicksConcurrentDecrement(t *testing.T) {
	p := &process.Process{TotalTimeRemaining: 1000}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.DecrementRemaining()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(0), p.RemainingTicks())
}

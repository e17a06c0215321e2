package runningtable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schedcore/cpusim/internal/process"
	"github.com/schedcore/cpusim/internal/runningtable"
)

func TestNewAllIdle(t *testing.T) {
	tbl := runningtable.New(4)
	assert.Equal(t, 4, tbl.Len())
	for i := 0; i < 4; i++ {
		assert.Nil(t, tbl.Get(i))
	}
}

func TestSetReturnsPrevious(t *testing.T) {
	tbl := runningtable.New(2)
	a := &process.Process{PID: 1}
	prev := tbl.Set(0, a)
	assert.Nil(t, prev)
	assert.Same(t, a, tbl.Get(0))

	b := &process.Process{PID: 2}
	prev = tbl.Set(0, b)
	assert.Same(t, a, prev)
	assert.Same(t, b, tbl.Get(0))
}

func TestClear(t *testing.T) {
	tbl := runningtable.New(1)
	a := &process.Process{PID: 1}
	tbl.Set(0, a)
	prev := tbl.Clear(0)
	assert.Same(t, a, prev)
	assert.Nil(t, tbl.Get(0))

	prev = tbl.Clear(0)
	assert.Nil(t, prev)
}

func TestEach(t *testing.T) {
	tbl := runningtable.New(3)
	a := &process.Process{PID: 1}
	tbl.Set(1, a)

	seen := map[int]*process.Process{}
	tbl.Each(func(cpuID int, p *process.Process) {
		seen[cpuID] = p
	})
	assert.Len(t, seen, 3)
	assert.Nil(t, seen[0])
	assert.Same(t, a, seen[1])
	assert.Nil(t, seen[2])
}

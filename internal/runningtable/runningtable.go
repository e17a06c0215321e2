// Package runningtable implements the scheduler's running-process
// table: a fixed-width array mapping each CPU index to its current
// process, or to idle (nil).
//
// Table is not safe for concurrent use; callers serialize access
// under their own lock (the scheduler package's running-table mutex).
package runningtable

import "github.com/schedcore/cpusim/internal/process"

// Table holds one cell per simulated CPU.
type Table struct {
	cells []*process.Process
}

// New returns a Table with cpuCount cells, all idle.
func New(cpuCount int) *Table {
	return &Table{cells: make([]*process.Process, cpuCount)}
}

// Len returns the number of CPUs the table covers.
func (t *Table) Len() int { return len(t.cells) }

// Get returns the process occupying cpuID, or nil if idle.
func (t *Table) Get(cpuID int) *process.Process { return t.cells[cpuID] }

// Set writes p (possibly nil, meaning idle) into cell cpuID and
// returns the previous occupant. The caller is responsible for
// transitioning p's lifecycle state; Set only manages the table's
// bookkeeping.
//
// When called from the schedule step after a Yield, the overwritten
// occupant is the process that yielded: it was left in its own cell
// (state Waiting) by Yield specifically so this call is the explicit
// hand-off point where the running table stops referencing it. The
// harness is expected to already hold the waiting process elsewhere.
func (t *Table) Set(cpuID int, p *process.Process) (prev *process.Process) {
	prev = t.cells[cpuID]
	t.cells[cpuID] = p
	return prev
}

// Clear empties cpuID and returns the previous occupant, or nil if it
// was already idle.
func (t *Table) Clear(cpuID int) (prev *process.Process) {
	return t.Set(cpuID, nil)
}

// Each calls fn for every cell, in CPU-index order. fn receives nil
// for an idle cell.
func (t *Table) Each(fn func(cpuID int, p *process.Process)) {
	for i, p := range t.cells {
		fn(i, p)
	}
}

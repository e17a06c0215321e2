// Package cpuaffinity pins a simulated CPU's goroutine to a real CPU
// core, for the -pin realism knob in cmd/schedsim. It never
// influences any scheduling decision; it only affects which physical
// core the harness goroutine representing simulated CPU i actually
// runs on.
//
// CPUSetOfSelf reports this process's own affinity mask (from
// /proc/<own pid>/status), rather than a given pid's, since there is
// no child process here to inspect.
package cpuaffinity

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Parse constructs a CPU set from a Linux CPU list formatted string.
//
// See: http://man7.org/linux/man-pages/man7/cpuset.7.html#FORMATS
//
// Code adapted from https://github.com/kubernetes/kubernetes/blob/v1.27.10/pkg/kubelet/cm/cpuset/cpuset.go#L201
//
// Apache License 2.0
func Parse(s string) (unix.CPUSet, error) {
	var set unix.CPUSet

	if s == "" {
		return set, fmt.Errorf("cannot parse empty string")
	}

	for _, r := range strings.Split(s, ",") {
		bounds := strings.SplitN(r, "-", 2)
		switch len(bounds) {
		case 1:
			elem, err := strconv.Atoi(bounds[0])
			if err != nil {
				return set, err
			}
			set.Set(elem)
		case 2:
			start, err := strconv.Atoi(bounds[0])
			if err != nil {
				return set, err
			}
			end, err := strconv.Atoi(bounds[1])
			if err != nil {
				return set, err
			}
			if start > end {
				return set, fmt.Errorf("invalid range %q (%d > %d)", r, start, end)
			}
			for e := start; e <= end; e++ {
				set.Set(e)
			}
		}
	}
	return set, nil
}

func allowedList(pid int) (string, error) {
	filename := fmt.Sprintf("/proc/%d/status", pid)
	b, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}

	const item = "Cpus_allowed_list:"
	_, b, found := bytes.Cut(b, []byte(item))
	if !found {
		return "", fmt.Errorf("did not find %q in %q", item, filename)
	}

	b, _, found = bytes.Cut(b, []byte("\n"))
	if !found {
		return "", fmt.Errorf("expected to find a new line after %q", item)
	}

	return string(bytes.TrimSpace(b)), nil
}

// CPUSetOfSelf returns the calling process's current CPU affinity
// mask, as reported by /proc/self/status.
func CPUSetOfSelf() (unix.CPUSet, error) {
	list, err := allowedList(os.Getpid())
	if err != nil {
		var set unix.CPUSet
		return set, err
	}
	return Parse(list)
}

// Intersect returns the bitwise AND of a and b.
func Intersect(a, b unix.CPUSet) unix.CPUSet {
	var res unix.CPUSet
	for i := range a {
		res[i] = a[i] & b[i]
	}
	return res
}

// Range calls fn with the index of every CPU set in s, in ascending
// order.
func Range(s unix.CPUSet, fn func(int)) {
	count := s.Count()
	for i := 0; count > 0; i++ {
		if s.IsSet(i) {
			fn(i)
			count--
		}
	}
}

var numCPUs = runtime.NumCPU()

const bytesPerChunk = unsafe.Sizeof(unix.CPUSet{}[0])

// String renders s as a hex dump of its words, followed by its
// popcount. Useful in -verbose logging of which real core backs which
// simulated CPU.
func String(s unix.CPUSet) string {
	var sb strings.Builder
	for i := 0; i < len(s) && i*8*int(bytesPerChunk) < numCPUs; i++ {
		fmt.Fprintf(&sb, "%08X ", s[i])
	}
	fmt.Fprintf(&sb, "total: %d", s.Count())
	return sb.String()
}

// PinSelfToCore locks the calling goroutine to its current OS thread
// and restricts that thread's affinity to the single given core. It
// must be called from the goroutine that is to be pinned (typically
// the very first statement in a CPU harness goroutine). The OS thread
// stays locked until runtime.UnlockOSThread is called an equal number
// of times; if the goroutine exits still locked, the Go runtime
// terminates that thread instead of reusing it.
func PinSelfToCore(core int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}

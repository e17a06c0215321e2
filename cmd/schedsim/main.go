// Command schedsim drives the scheduling core (package scheduler)
// against a small in-process harness, so its four policies can be
// watched end to end.
//
//	schedsim <cpu_count> [ -r <timeslice_ms> | -p <age_weight> | -s ]
//
// Default policy is FCFS. -r selects Round Robin, -p selects Priority
// Aging, -s selects SRTF; at most one of them may be given.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/schedcore/cpusim/internal/cpuaffinity"
	"github.com/schedcore/cpusim/internal/policy"
	"github.com/schedcore/cpusim/internal/schedlog"
	"github.com/schedcore/cpusim/internal/trace"
	"github.com/schedcore/cpusim/scheduler"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s <cpu_count> [-r timeslice_ms | -p age_weight | -s]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\n")
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

// run contains the actual CLI logic, returning an exit code, so main
// itself stays a one-line os.Exit call.
func run() int {
	flag.Usage = usage

	var rTimesliceMs, pAgeWeight optionalUint
	flag.Var(&rTimesliceMs, "r", "round robin: time slice in `ms`")
	flag.Var(&pAgeWeight, "p", "priority aging: age `weight`")
	flagSRTF := flag.Bool("s", false, "shortest remaining time first")
	flagVerbose := flag.Bool("verbose", false, "enable debug logging")
	flagPin := flag.Bool("pin", false, "pin each simulated CPU's goroutine to a real core")
	flagCPUSet := flag.String("cpuset", "", "with -pin, restrict real cores to this Linux CPU list (e.g. `0-3,8`)")
	flagProcs := flag.Int("procs", 12, "number of synthetic processes to generate")
	flagTrace := flag.String("trace", "", "append a gob-encoded schedule trace to `file`")
	flagDuration := flag.Duration("duration", 8*time.Second, "how long to run the demo")

	if len(os.Args) < 2 {
		usage()
		return -1
	}
	cpuCountArg := os.Args[1]
	if err := flag.CommandLine.Parse(os.Args[2:]); err != nil {
		return -1
	}

	cpuCount, err := parseCPUCount(cpuCountArg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		usage()
		return -1
	}

	selected := 0
	for _, set := range []bool{rTimesliceMs.set, pAgeWeight.set, *flagSRTF} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		fmt.Fprintln(os.Stderr, "error: -r, -p, and -s are mutually exclusive")
		usage()
		return -1
	}

	cfg := scheduler.Config{Policy: policy.FCFS}
	switch {
	case rTimesliceMs.set:
		cfg.Policy = policy.RR
		cfg.TimeSliceTicks = millisecondsToTicks(rTimesliceMs.v)
	case pAgeWeight.set:
		cfg.Policy = policy.PA
		cfg.AgeWeight = pAgeWeight.v
	case *flagSRTF:
		cfg.Policy = policy.SRTF
	}
	cfg.CPUCount = cpuCount

	schedlog.Verbose = *flagVerbose

	var rec *trace.Recorder
	if *flagTrace != "" {
		f, err := os.OpenFile(*flagTrace, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return -1
		}
		defer f.Close()
		rec = trace.NewRecorder(f)
	}

	var allowedCores []int
	if *flagCPUSet != "" {
		if !*flagPin {
			fmt.Fprintln(os.Stderr, "error: -cpuset has no effect without -pin")
			return -1
		}
		allowedCores, err = resolveAllowedCores(*flagCPUSet)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error: -cpuset:", err)
			return -1
		}
	}

	h := NewHarness(cpuCount, rec, *flagPin, allowedCores, time.Now().UnixNano())
	s := scheduler.New(cfg, h)
	s.SetRecorder(rec)
	h.attach(s)

	schedlog.Logger().Info().
		Str("policy", string(cfg.Policy)).
		Int("cpus", cpuCount).
		Msg("schedsim starting")

	stop := make(chan struct{})
	go h.runClock(stop)
	go h.runIO(stop)
	for i := 0; i < cpuCount; i++ {
		go h.runCPU(i, stop)
	}
	go h.runGenerator(*flagProcs, stop)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	select {
	case <-time.After(*flagDuration):
	case <-sigCh:
	}
	close(stop)

	return 0
}

// resolveAllowedCores parses -cpuset's Linux CPU list and intersects
// it with the process's actual current affinity (so a -cpuset asking
// for cores this process isn't allowed to use, e.g. under a cgroup,
// fails loudly instead of silently pinning somewhere unintended),
// returning the resulting real core indices in ascending order.
func resolveAllowedCores(spec string) ([]int, error) {
	want, err := cpuaffinity.Parse(spec)
	if err != nil {
		return nil, err
	}
	self, err := cpuaffinity.CPUSetOfSelf()
	if err != nil {
		return nil, fmt.Errorf("reading current affinity: %w", err)
	}
	allowed := cpuaffinity.Intersect(want, self)

	var cores []int
	cpuaffinity.Range(allowed, func(core int) { cores = append(cores, core) })
	if len(cores) == 0 {
		return nil, fmt.Errorf("no real cores in common with current affinity %s", cpuaffinity.String(self))
	}
	schedlog.Logger().Info().Str("cpuset", cpuaffinity.String(allowed)).Msg("-cpuset: restricting real cores")
	return cores, nil
}

// parseCPUCount validates that cpu_count falls in [1, 16].
func parseCPUCount(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("cpu_count: %q is not a number", s)
	}
	if n < 1 || n > 16 {
		return 0, fmt.Errorf("cpu_count must be in [1, 16], got %d", n)
	}
	return n, nil
}

// millisecondsToTicks converts -r's millisecond argument to ticks:
// integer-divide by 100, with a floor of 1 tick whenever the input
// exceeds 0.
func millisecondsToTicks(ms uint64) int64 {
	ticks := ms / 100
	if ms > 0 && ticks == 0 {
		ticks = 1
	}
	return int64(ticks)
}

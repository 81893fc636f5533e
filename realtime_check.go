//go:build linux

package heterodyne

import (
	"strconv"

	sysctl "github.com/lorenzosaino/go-sysctl"
)

// CheckRealtimeEnvironment inspects kernel settings that affect the
// pacing of the synthesis loop and warns about unhelpful values. Nothing
// here is fatal: the loop tolerates late wakeups, they just degrade
// waveform fidelity.
func CheckRealtimeEnvironment() {
	// -1 disables the RT-throttling ceiling; the default 950000 leaves 5%
	// of each second to non-RT tasks, which is fine too. Small values
	// starve a chrt'd heterodyne process.
	if v, err := sysctl.Get("kernel.sched_rt_runtime_us"); err == nil {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < 900000 {
			ProblemLogger.Printf("kernel.sched_rt_runtime_us = %d: realtime throttling may stall block pacing\n", n)
		}
	}
	if v, err := sysctl.Get("kernel.timer_migration"); err == nil && v != "0" {
		ProblemLogger.Printf("kernel.timer_migration = %s: timer wakeups may migrate between CPUs\n", v)
	}
}

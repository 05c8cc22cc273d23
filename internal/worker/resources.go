package worker

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/mem"
)

// HostLabels reports this host's available resources as coordinator
// registration labels, merged with any user-supplied labels by the caller.
// These are descriptive only; the poller itself enforces a dispatched
// stage's MemoryGB/CPUSlots requirements against Capacity before running it.
func HostLabels(ctx context.Context) map[string]string {
	labels := map[string]string{
		"cpu_cores": fmt.Sprintf("%d", runtime.NumCPU()),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		labels["memory_gb"] = fmt.Sprintf("%.1f", float64(vm.Total)/(1<<30))
	}

	return labels
}

// Capacity reports this host's currently available memory and CPU slots,
// used by the poller to decide whether it can host a dispatched stage or
// must requeue it (spec.md §4.10). CPU slots are taken as the logical core
// count; memory as what gopsutil reports available right now, not total.
func Capacity(ctx context.Context) (memoryGB float64, cpuSlots int) {
	cpuSlots = runtime.NumCPU()
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		memoryGB = float64(vm.Available) / (1 << 30)
	}
	return memoryGB, cpuSlots
}

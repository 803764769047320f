package slave

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostMetrics is the resource snapshot reported by /check_status.
type HostMetrics struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
}

// collectHostMetrics samples CPU and memory usage. Sampling failures leave
// the corresponding fields zero rather than failing the status call.
func collectHostMetrics() HostMetrics {
	var m HostMetrics

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		m.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		m.MemoryPercent = vm.UsedPercent
		m.MemoryUsedMB = vm.Used / 1024 / 1024
	}
	return m
}

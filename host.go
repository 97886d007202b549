package cadence

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type UsageInfo struct {
	Total uint64
	Free  uint64
	Used  uint64
	Usage float64
}

// HostSummary 主机资源，内存单位 MB，磁盘单位 GB
type HostSummary struct {
	Memory   UsageInfo
	CPUUsage float64
	HardDisk UsageInfo
}

// collectHost 采集失败的项保持零值
func collectHost() (s HostSummary) {
	if v, err := mem.VirtualMemory(); err == nil {
		s.Memory = UsageInfo{v.Total >> 20, v.Available >> 20, v.Used >> 20, v.UsedPercent}
	}
	if d, err := disk.Usage("/"); err == nil {
		s.HardDisk = UsageInfo{d.Total >> 30, d.Free >> 30, d.Used >> 30, d.UsedPercent}
	}
	// 间隔为 0 时与上一次调用比较，不阻塞
	if cc, err := cpu.Percent(0, false); err == nil && len(cc) > 0 {
		s.CPUUsage = cc[0]
	}
	return
}

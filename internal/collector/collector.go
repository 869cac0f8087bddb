package collector

import (
	"context"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"sysmond/internal/model"
)

// DefaultWindow is the CPU sampling window used when none is configured.
const DefaultWindow = 500 * time.Millisecond

// Collector samples the OS counter families through a Source and normalizes
// them into snapshot values. It holds no mutable state between calls, so one
// Collector serves any number of concurrent requests.
type Collector struct {
	src    Source
	window time.Duration
}

// New builds a Collector around src. window is the blocking CPU measurement
// interval; values <= 0 fall back to DefaultWindow.
func New(src Source, window time.Duration) *Collector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Collector{src: src, window: window}
}

// CPU samples utilization over the configured window. The percent is a local
// two-sample delta: two raw counter reads bracketing a sleep, computed here
// rather than through any per-process sampling state in the OS library, so
// concurrent calls never skew each other. Blocks the caller for the window.
func (c *Collector) CPU(ctx context.Context) (model.CPUSnapshot, error) {
	startTotal, err := c.src.CPUTimes(false)
	if err != nil || len(startTotal) == 0 {
		return model.CPUSnapshot{}, &SourceUnavailableError{Family: "cpu", Err: err}
	}
	startCore, _ := c.src.CPUTimes(true) // per-core is best-effort

	select {
	case <-ctx.Done():
		return model.CPUSnapshot{}, ctx.Err()
	case <-time.After(c.window):
	}

	endTotal, err := c.src.CPUTimes(false)
	if err != nil || len(endTotal) == 0 {
		return model.CPUSnapshot{}, &SourceUnavailableError{Family: "cpu", Err: err}
	}
	endCore, _ := c.src.CPUTimes(true)

	snap := model.CPUSnapshot{
		Percent:        busyPercent(startTotal[0], endTotal[0]),
		PercentPerCore: []float64{},
	}
	if len(startCore) > 0 && len(startCore) == len(endCore) {
		snap.PercentPerCore = make([]float64, len(endCore))
		for i := range endCore {
			snap.PercentPerCore[i] = busyPercent(startCore[i], endCore[i])
		}
	}

	logical, err := c.src.CPUCounts(true)
	if err != nil || logical == 0 {
		logical = len(snap.PercentPerCore)
	}
	snap.CoreCount = logical
	if physical, err := c.src.CPUCounts(false); err == nil {
		snap.CoreCountPhysical = physical
	}

	avg, err := c.src.LoadAvg()
	if err != nil {
		return model.CPUSnapshot{}, &SourceUnavailableError{Family: "load", Err: err}
	}
	snap.LoadAvg = []float64{round2(avg.Load1), round2(avg.Load5), round2(avg.Load15)}
	return snap, nil
}

// Memory is a single-shot read of RAM and swap.
func (c *Collector) Memory() (model.MemorySnapshot, error) {
	vm, err := c.src.VirtualMemory()
	if err != nil {
		return model.MemorySnapshot{}, &SourceUnavailableError{Family: "memory", Err: err}
	}
	sw, err := c.src.SwapMemory()
	if err != nil {
		return model.MemorySnapshot{}, &SourceUnavailableError{Family: "swap", Err: err}
	}
	return model.MemorySnapshot{
		RAM: model.RAMUsage{
			TotalGB:     toGB(vm.Total),
			UsedGB:      toGB(vm.Used),
			AvailableGB: toGB(vm.Available),
			Percent:     round2(vm.UsedPercent),
		},
		Swap: model.SwapUsage{
			TotalGB: toGB(sw.Total),
			UsedGB:  toGB(sw.Used),
			Percent: round2(sw.UsedPercent),
		},
	}, nil
}

// Disk reports usage for the filesystem containing path. The path is echoed
// back exactly as requested. IO counters are attached when the platform has
// them; their absence is silent.
func (c *Collector) Disk(path string) (model.DiskSnapshot, error) {
	usage, err := c.src.DiskUsage(path)
	if err != nil {
		return model.DiskSnapshot{}, &InvalidPathError{Path: path, Err: err}
	}
	snap := model.DiskSnapshot{
		Path:    path,
		TotalGB: toGB(usage.Total),
		UsedGB:  toGB(usage.Used),
		FreeGB:  toGB(usage.Free),
		Percent: round2(usage.UsedPercent),
	}
	if counters, err := c.src.DiskIOCounters(); err == nil && len(counters) > 0 {
		var read, write uint64
		for name, st := range counters {
			if isLoopDevice(name) {
				continue
			}
			read += st.ReadBytes
			write += st.WriteBytes
		}
		snap.IO = &model.DiskIO{ReadMB: toMB(read), WriteMB: toMB(write)}
	}
	return snap, nil
}

// Network is a single-shot read of the cumulative interface counters,
// summed across interfaces.
func (c *Collector) Network() (model.NetworkSnapshot, error) {
	counters, err := c.src.NetIOCounters()
	if err != nil || len(counters) == 0 {
		return model.NetworkSnapshot{}, &SourceUnavailableError{Family: "network", Err: err}
	}
	n := counters[0]
	return model.NetworkSnapshot{
		BytesSentMB: toMB(n.BytesSent),
		BytesRecvMB: toMB(n.BytesRecv),
		PacketsSent: n.PacketsSent,
		PacketsRecv: n.PacketsRecv,
		ErrorsIn:    n.Errin,
		ErrorsOut:   n.Errout,
	}, nil
}

// System describes the host. Boot time is read fresh on every call and
// uptime derived from it, so repeated calls stay self-consistent even if the
// clock was adjusted in between.
func (c *Collector) System() (model.SystemSnapshot, error) {
	info, err := c.src.HostInfo()
	if err != nil {
		return model.SystemSnapshot{}, &SourceUnavailableError{Family: "host", Err: err}
	}
	pids, err := c.src.Pids()
	if err != nil {
		return model.SystemSnapshot{}, &SourceUnavailableError{Family: "process", Err: err}
	}
	boot := time.Unix(int64(info.BootTime), 0).UTC()
	return model.SystemSnapshot{
		Hostname:      info.Hostname,
		OS:            info.OS,
		OSRelease:     info.KernelVersion,
		Architecture:  info.KernelArch,
		GoVersion:     runtime.Version(),
		BootTime:      boot,
		UptimeSeconds: int64(time.Now().UTC().Sub(boot).Seconds()),
		ProcessCount:  len(pids),
	}, nil
}

// TopProcesses enumerates the live process table once and returns the top
// rows by CPU percent, descending. Rows whose fields cannot be read (process
// exited, access denied) are skipped silently. Ties keep enumeration order.
// limit <= 0 yields an empty list; the upper bound is the boundary's job.
func (c *Collector) TopProcesses(limit int) ([]model.ProcessInfo, error) {
	if limit <= 0 {
		return []model.ProcessInfo{}, nil
	}
	rows, err := c.src.Processes()
	if err != nil {
		return nil, &SourceUnavailableError{Family: "process", Err: err}
	}
	procs := make([]model.ProcessInfo, 0, len(rows))
	for _, row := range rows {
		name, err := row.Name()
		if err != nil {
			continue
		}
		cpuPct, err := row.CPUPercent()
		if err != nil {
			continue
		}
		memPct, err := row.MemoryPercent()
		if err != nil {
			continue
		}
		status, err := row.Status()
		if err != nil {
			continue
		}
		st := ""
		if len(status) > 0 {
			st = status[0]
		}
		procs = append(procs, model.ProcessInfo{
			PID:           row.Pid(),
			Name:          name,
			CPUPercent:    round2(cpuPct),
			MemoryPercent: round2(float64(memPct)),
			Status:        st,
		})
	}
	sort.SliceStable(procs, func(i, j int) bool { return procs[i].CPUPercent > procs[j].CPUPercent })
	if len(procs) > limit {
		procs = procs[:limit]
	}
	return procs, nil
}

// busyPercent computes utilization from two time-spaced counter reads.
func busyPercent(prev, cur cpu.TimesStat) float64 {
	dt := cur.Total() - prev.Total()
	di := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	if dt <= 0 {
		return 0
	}
	return round2(clampPercent(100 * (1 - di/dt)))
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Wire units follow SI: GB = 1e9 bytes, MB = 1e6 bytes.
func toGB(b uint64) float64 { return round2(float64(b) / 1e9) }
func toMB(b uint64) float64 { return round2(float64(b) / 1e6) }

func isLoopDevice(name string) bool {
	return len(name) >= 4 && name[:4] == "loop"
}

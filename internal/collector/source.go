package collector

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Source exposes raw, unnormalized reads over the OS counter families. Each
// method is independently fallible; the Collector decides what a failure
// means. The indirection exists so tests can substitute a stub.
type Source interface {
	CPUTimes(perCore bool) ([]cpu.TimesStat, error)
	CPUCounts(logical bool) (int, error)
	LoadAvg() (*load.AvgStat, error)
	VirtualMemory() (*mem.VirtualMemoryStat, error)
	SwapMemory() (*mem.SwapMemoryStat, error)
	DiskUsage(path string) (*disk.UsageStat, error)
	DiskIOCounters() (map[string]disk.IOCountersStat, error)
	NetIOCounters() ([]net.IOCountersStat, error)
	HostInfo() (*host.InfoStat, error)
	Pids() ([]int32, error)
	Processes() ([]ProcessRow, error)
}

// ProcessRow is one live process table entry. Every read may fail if the
// process exits or denies access between enumeration and field read; callers
// treat that as a skip, not an error.
type ProcessRow interface {
	Pid() int32
	Name() (string, error)
	CPUPercent() (float64, error)
	MemoryPercent() (float32, error)
	Status() ([]string, error)
}

// systemSource is the production Source backed by gopsutil.
type systemSource struct{}

// NewSystemSource returns a Source reading the live host.
func NewSystemSource() Source { return systemSource{} }

func (systemSource) CPUTimes(perCore bool) ([]cpu.TimesStat, error) { return cpu.Times(perCore) }
func (systemSource) CPUCounts(logical bool) (int, error)            { return cpu.Counts(logical) }
func (systemSource) LoadAvg() (*load.AvgStat, error)                { return load.Avg() }
func (systemSource) VirtualMemory() (*mem.VirtualMemoryStat, error) { return mem.VirtualMemory() }
func (systemSource) SwapMemory() (*mem.SwapMemoryStat, error)       { return mem.SwapMemory() }
func (systemSource) DiskUsage(path string) (*disk.UsageStat, error) { return disk.Usage(path) }
func (systemSource) DiskIOCounters() (map[string]disk.IOCountersStat, error) {
	return disk.IOCounters()
}
func (systemSource) NetIOCounters() ([]net.IOCountersStat, error) { return net.IOCounters(false) }
func (systemSource) HostInfo() (*host.InfoStat, error)            { return host.Info() }
func (systemSource) Pids() ([]int32, error)                       { return process.Pids() }

func (systemSource) Processes() ([]ProcessRow, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	rows := make([]ProcessRow, len(procs))
	for i, p := range procs {
		rows[i] = sysProcess{p}
	}
	return rows, nil
}

type sysProcess struct{ proc *process.Process }

func (p sysProcess) Pid() int32                      { return p.proc.Pid }
func (p sysProcess) Name() (string, error)           { return p.proc.Name() }
func (p sysProcess) CPUPercent() (float64, error)    { return p.proc.CPUPercent() }
func (p sysProcess) MemoryPercent() (float32, error) { return p.proc.MemoryPercent() }
func (p sysProcess) Status() ([]string, error)       { return p.proc.Status() }

package collector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// stubSource implements Source through optional function fields; unset
// families fail, which keeps each test explicit about what it depends on.
type stubSource struct {
	cpuTimes  func(perCore bool) ([]cpu.TimesStat, error)
	cpuCounts func(logical bool) (int, error)
	loadAvg   func() (*load.AvgStat, error)
	vm        func() (*mem.VirtualMemoryStat, error)
	swap      func() (*mem.SwapMemoryStat, error)
	usage     func(path string) (*disk.UsageStat, error)
	diskIO    func() (map[string]disk.IOCountersStat, error)
	netIO     func() ([]net.IOCountersStat, error)
	hostInfo  func() (*host.InfoStat, error)
	pids      func() ([]int32, error)
	processes func() ([]ProcessRow, error)
}

var errNotStubbed = errors.New("not stubbed")

func (s *stubSource) CPUTimes(perCore bool) ([]cpu.TimesStat, error) {
	if s.cpuTimes == nil {
		return nil, errNotStubbed
	}
	return s.cpuTimes(perCore)
}

func (s *stubSource) CPUCounts(logical bool) (int, error) {
	if s.cpuCounts == nil {
		return 0, errNotStubbed
	}
	return s.cpuCounts(logical)
}

func (s *stubSource) LoadAvg() (*load.AvgStat, error) {
	if s.loadAvg == nil {
		return nil, errNotStubbed
	}
	return s.loadAvg()
}

func (s *stubSource) VirtualMemory() (*mem.VirtualMemoryStat, error) {
	if s.vm == nil {
		return nil, errNotStubbed
	}
	return s.vm()
}

func (s *stubSource) SwapMemory() (*mem.SwapMemoryStat, error) {
	if s.swap == nil {
		return nil, errNotStubbed
	}
	return s.swap()
}

func (s *stubSource) DiskUsage(path string) (*disk.UsageStat, error) {
	if s.usage == nil {
		return nil, errNotStubbed
	}
	return s.usage(path)
}

func (s *stubSource) DiskIOCounters() (map[string]disk.IOCountersStat, error) {
	if s.diskIO == nil {
		return nil, errNotStubbed
	}
	return s.diskIO()
}

func (s *stubSource) NetIOCounters() ([]net.IOCountersStat, error) {
	if s.netIO == nil {
		return nil, errNotStubbed
	}
	return s.netIO()
}

func (s *stubSource) HostInfo() (*host.InfoStat, error) {
	if s.hostInfo == nil {
		return nil, errNotStubbed
	}
	return s.hostInfo()
}

func (s *stubSource) Pids() ([]int32, error) {
	if s.pids == nil {
		return nil, errNotStubbed
	}
	return s.pids()
}

func (s *stubSource) Processes() ([]ProcessRow, error) {
	if s.processes == nil {
		return nil, errNotStubbed
	}
	return s.processes()
}

// stubRow is a canned process table row; err poisons every field read.
type stubRow struct {
	pid    int32
	name   string
	cpu    float64
	mem    float32
	status string
	err    error
}

func (r stubRow) Pid() int32                      { return r.pid }
func (r stubRow) Name() (string, error)           { return r.name, r.err }
func (r stubRow) CPUPercent() (float64, error)    { return r.cpu, r.err }
func (r stubRow) MemoryPercent() (float32, error) { return r.mem, r.err }
func (r stubRow) Status() ([]string, error)       { return []string{r.status}, r.err }

// cpuSequence returns start on the first read and end afterwards, per axis.
func cpuSequence(start, end []cpu.TimesStat, coreStart, coreEnd []cpu.TimesStat) func(bool) ([]cpu.TimesStat, error) {
	var mu sync.Mutex
	totalCalls, coreCalls := 0, 0
	return func(perCore bool) ([]cpu.TimesStat, error) {
		mu.Lock()
		defer mu.Unlock()
		if perCore {
			coreCalls++
			if coreCalls == 1 {
				return coreStart, nil
			}
			return coreEnd, nil
		}
		totalCalls++
		if totalCalls == 1 {
			return start, nil
		}
		return end, nil
	}
}

func TestCPUTwoSampleDelta(t *testing.T) {
	src := &stubSource{
		cpuTimes: cpuSequence(
			[]cpu.TimesStat{{CPU: "cpu-total", User: 100, Idle: 100}},
			[]cpu.TimesStat{{CPU: "cpu-total", User: 150, Idle: 150}},
			[]cpu.TimesStat{
				{CPU: "cpu0", User: 50, Idle: 50},
				{CPU: "cpu1", User: 50, Idle: 50},
			},
			[]cpu.TimesStat{
				{CPU: "cpu0", User: 100, Idle: 50}, // fully busy over the window
				{CPU: "cpu1", User: 50, Idle: 100}, // fully idle over the window
			},
		),
		cpuCounts: func(logical bool) (int, error) {
			if logical {
				return 2, nil
			}
			return 1, nil
		},
		loadAvg: func() (*load.AvgStat, error) {
			return &load.AvgStat{Load1: 1.234, Load5: 0.5, Load15: 0.25}, nil
		},
	}

	snap, err := New(src, time.Millisecond).CPU(context.Background())
	if err != nil {
		t.Fatalf("CPU: %v", err)
	}
	if snap.Percent != 50 {
		t.Errorf("overall percent = %v, want 50", snap.Percent)
	}
	if len(snap.PercentPerCore) != 2 {
		t.Fatalf("per-core length = %d, want 2", len(snap.PercentPerCore))
	}
	if snap.PercentPerCore[0] != 100 || snap.PercentPerCore[1] != 0 {
		t.Errorf("per-core = %v, want [100 0]", snap.PercentPerCore)
	}
	if snap.CoreCount != 2 || snap.CoreCountPhysical != 1 {
		t.Errorf("core counts = %d/%d, want 2/1", snap.CoreCount, snap.CoreCountPhysical)
	}
	want := []float64{1.23, 0.5, 0.25}
	for i, v := range want {
		if snap.LoadAvg[i] != v {
			t.Errorf("load_avg[%d] = %v, want %v", i, snap.LoadAvg[i], v)
		}
	}
}

func TestCPUPerCoreUnavailable(t *testing.T) {
	src := &stubSource{
		cpuTimes: func(perCore bool) ([]cpu.TimesStat, error) {
			if perCore {
				return nil, errors.New("no per-core data")
			}
			return []cpu.TimesStat{{CPU: "cpu-total", User: 10, Idle: 10}}, nil
		},
		cpuCounts: func(bool) (int, error) { return 4, nil },
		loadAvg:   func() (*load.AvgStat, error) { return &load.AvgStat{}, nil },
	}

	snap, err := New(src, time.Millisecond).CPU(context.Background())
	if err != nil {
		t.Fatalf("CPU: %v", err)
	}
	if len(snap.PercentPerCore) != 0 {
		t.Errorf("per-core = %v, want empty", snap.PercentPerCore)
	}
	if snap.CoreCount != 4 {
		t.Errorf("core count = %d, want 4", snap.CoreCount)
	}
}

func TestCPULoadUnavailable(t *testing.T) {
	src := &stubSource{
		cpuTimes: func(bool) ([]cpu.TimesStat, error) {
			return []cpu.TimesStat{{User: 1, Idle: 1}}, nil
		},
		cpuCounts: func(bool) (int, error) { return 1, nil },
		loadAvg:   func() (*load.AvgStat, error) { return nil, errors.New("not supported") },
	}

	_, err := New(src, time.Millisecond).CPU(context.Background())
	var srcErr *SourceUnavailableError
	if !errors.As(err, &srcErr) {
		t.Fatalf("err = %v, want SourceUnavailableError", err)
	}
	if srcErr.Family != "load" {
		t.Errorf("family = %q, want load", srcErr.Family)
	}
}

func TestCPUCanceledContext(t *testing.T) {
	src := &stubSource{
		cpuTimes: func(bool) ([]cpu.TimesStat, error) {
			return []cpu.TimesStat{{User: 1, Idle: 1}}, nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, time.Second).CPU(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// TestCPUConcurrent issues parallel CPU samples against a shared source and
// checks every result stays in range. The counters advance atomically, so any
// pair of bracketing reads yields a busy fraction of exactly one half.
func TestCPUConcurrent(t *testing.T) {
	var tick atomic.Int64
	src := &stubSource{
		cpuTimes: func(bool) ([]cpu.TimesStat, error) {
			n := float64(tick.Add(1))
			return []cpu.TimesStat{{User: n * 50, Idle: n * 50}}, nil
		},
		cpuCounts: func(bool) (int, error) { return 1, nil },
		loadAvg:   func() (*load.AvgStat, error) { return &load.AvgStat{}, nil },
	}
	c := New(src, 5*time.Millisecond)

	const callers = 16
	results := make([]float64, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := c.CPU(context.Background())
			results[i], errs[i] = snap.Percent, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] < 0 || results[i] > 100 {
			t.Errorf("caller %d: percent %v out of range", i, results[i])
		}
	}
}

func TestMemoryNormalization(t *testing.T) {
	src := &stubSource{
		vm: func() (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{
				Total:       16e9,
				Used:        8.5e9,
				Available:   7.5e9,
				UsedPercent: 53.125,
			}, nil
		},
		swap: func() (*mem.SwapMemoryStat, error) {
			return &mem.SwapMemoryStat{Total: 2e9, Used: 1e8, UsedPercent: 5}, nil
		},
	}

	snap, err := New(src, 0).Memory()
	if err != nil {
		t.Fatalf("Memory: %v", err)
	}
	if snap.RAM.TotalGB != 16 || snap.RAM.UsedGB != 8.5 || snap.RAM.AvailableGB != 7.5 {
		t.Errorf("ram = %+v", snap.RAM)
	}
	if snap.RAM.Percent != 53.13 {
		t.Errorf("ram percent = %v, want 53.13", snap.RAM.Percent)
	}
	if snap.Swap.TotalGB != 2 || snap.Swap.UsedGB != 0.1 || snap.Swap.Percent != 5 {
		t.Errorf("swap = %+v", snap.Swap)
	}
}

func TestMemoryUnavailable(t *testing.T) {
	src := &stubSource{
		vm: func() (*mem.VirtualMemoryStat, error) { return nil, errors.New("nope") },
	}
	_, err := New(src, 0).Memory()
	var srcErr *SourceUnavailableError
	if !errors.As(err, &srcErr) {
		t.Fatalf("err = %v, want SourceUnavailableError", err)
	}
}

func TestDiskEchoesPath(t *testing.T) {
	src := &stubSource{
		usage: func(path string) (*disk.UsageStat, error) {
			return &disk.UsageStat{Path: path, Total: 500e9, Used: 200e9, Free: 300e9, UsedPercent: 40}, nil
		},
		diskIO: func() (map[string]disk.IOCountersStat, error) { return nil, errors.New("none") },
	}

	snap, err := New(src, 0).Disk("/var/lib")
	if err != nil {
		t.Fatalf("Disk: %v", err)
	}
	if snap.Path != "/var/lib" {
		t.Errorf("path = %q, want /var/lib", snap.Path)
	}
	if snap.TotalGB != 500 || snap.UsedGB != 200 || snap.FreeGB != 300 || snap.Percent != 40 {
		t.Errorf("disk = %+v", snap)
	}
	if snap.IO != nil {
		t.Errorf("io = %+v, want nil when counters unavailable", snap.IO)
	}
}

func TestDiskInvalidPath(t *testing.T) {
	src := &stubSource{
		usage: func(string) (*disk.UsageStat, error) { return nil, errors.New("no such file") },
	}

	_, err := New(src, 0).Disk("/this/does/not/exist")
	var pathErr *InvalidPathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("err = %v, want InvalidPathError", err)
	}
	if pathErr.Path != "/this/does/not/exist" {
		t.Errorf("path = %q, want the requested path", pathErr.Path)
	}
}

func TestDiskIOSumsDevicesSkippingLoop(t *testing.T) {
	src := &stubSource{
		usage: func(path string) (*disk.UsageStat, error) {
			return &disk.UsageStat{Path: path}, nil
		},
		diskIO: func() (map[string]disk.IOCountersStat, error) {
			return map[string]disk.IOCountersStat{
				"sda":   {ReadBytes: 3e6, WriteBytes: 1e6},
				"sdb":   {ReadBytes: 2e6, WriteBytes: 1e6},
				"loop0": {ReadBytes: 9e6, WriteBytes: 9e6},
			}, nil
		},
	}

	snap, err := New(src, 0).Disk("/")
	if err != nil {
		t.Fatalf("Disk: %v", err)
	}
	if snap.IO == nil {
		t.Fatal("io = nil, want counters")
	}
	if snap.IO.ReadMB != 5 || snap.IO.WriteMB != 2 {
		t.Errorf("io = %+v, want read 5 write 2", snap.IO)
	}
}

func TestNetworkNormalization(t *testing.T) {
	src := &stubSource{
		netIO: func() ([]net.IOCountersStat, error) {
			return []net.IOCountersStat{{
				BytesSent:   1_500_000,
				BytesRecv:   2_500_000,
				PacketsSent: 10,
				PacketsRecv: 20,
				Errin:       1,
				Errout:      2,
			}}, nil
		},
	}

	snap, err := New(src, 0).Network()
	if err != nil {
		t.Fatalf("Network: %v", err)
	}
	if snap.BytesSentMB != 1.5 || snap.BytesRecvMB != 2.5 {
		t.Errorf("MB = %v/%v, want 1.5/2.5", snap.BytesSentMB, snap.BytesRecvMB)
	}
	if snap.PacketsSent != 10 || snap.PacketsRecv != 20 || snap.ErrorsIn != 1 || snap.ErrorsOut != 2 {
		t.Errorf("counters = %+v", snap)
	}
}

func TestSystemUptimeFromBootTime(t *testing.T) {
	boot := time.Now().UTC().Add(-90 * time.Second)
	src := &stubSource{
		hostInfo: func() (*host.InfoStat, error) {
			return &host.InfoStat{
				Hostname:      "node-1",
				OS:            "linux",
				KernelVersion: "6.1.0",
				KernelArch:    "x86_64",
				BootTime:      uint64(boot.Unix()),
			}, nil
		},
		pids: func() ([]int32, error) { return []int32{1, 2, 3}, nil },
	}

	snap, err := New(src, 0).System()
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if snap.Hostname != "node-1" || snap.OS != "linux" || snap.OSRelease != "6.1.0" || snap.Architecture != "x86_64" {
		t.Errorf("system = %+v", snap)
	}
	if snap.UptimeSeconds < 89 || snap.UptimeSeconds > 92 {
		t.Errorf("uptime = %d, want ~90", snap.UptimeSeconds)
	}
	if snap.ProcessCount != 3 {
		t.Errorf("process count = %d, want 3", snap.ProcessCount)
	}
	if snap.GoVersion == "" {
		t.Error("go version empty")
	}
}

func TestTopProcessesSortSkipTruncate(t *testing.T) {
	src := &stubSource{
		processes: func() ([]ProcessRow, error) {
			return []ProcessRow{
				stubRow{pid: 10, name: "idleish", cpu: 1, mem: 0.5, status: "sleep"},
				stubRow{pid: 20, name: "busy-a", cpu: 3, mem: 1, status: "running"},
				stubRow{pid: 30, name: "gone", err: errors.New("process no longer exists")},
				stubRow{pid: 40, name: "mid", cpu: 2, mem: 2, status: "sleep"},
				stubRow{pid: 50, name: "busy-b", cpu: 3, mem: 1, status: "running"},
			}, nil
		},
	}
	c := New(src, 0)

	procs, err := c.TopProcesses(3)
	if err != nil {
		t.Fatalf("TopProcesses: %v", err)
	}
	if len(procs) != 3 {
		t.Fatalf("len = %d, want 3", len(procs))
	}
	// Descending, with the enumeration order preserved for the 3.0 tie.
	if procs[0].PID != 20 || procs[1].PID != 50 || procs[2].PID != 40 {
		t.Errorf("order = [%d %d %d], want [20 50 40]", procs[0].PID, procs[1].PID, procs[2].PID)
	}
	for i := 1; i < len(procs); i++ {
		if procs[i].CPUPercent > procs[i-1].CPUPercent {
			t.Errorf("not descending at %d", i)
		}
	}

	all, err := c.TopProcesses(50)
	if err != nil {
		t.Fatalf("TopProcesses: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("len = %d, want 4 (unreadable row skipped)", len(all))
	}

	none, err := c.TopProcesses(0)
	if err != nil {
		t.Fatalf("TopProcesses: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len = %d, want 0", len(none))
	}
}

func TestTopProcessesUnavailable(t *testing.T) {
	src := &stubSource{
		processes: func() ([]ProcessRow, error) { return nil, errors.New("denied") },
	}
	_, err := New(src, 0).TopProcesses(5)
	var srcErr *SourceUnavailableError
	if !errors.As(err, &srcErr) {
		t.Fatalf("err = %v, want SourceUnavailableError", err)
	}
}

func TestBusyPercent(t *testing.T) {
	cases := []struct {
		name      string
		prev, cur cpu.TimesStat
		want      float64
	}{
		{"half busy", cpu.TimesStat{User: 0, Idle: 0}, cpu.TimesStat{User: 50, Idle: 50}, 50},
		{"all idle", cpu.TimesStat{Idle: 100}, cpu.TimesStat{Idle: 200}, 0},
		{"all busy", cpu.TimesStat{User: 100}, cpu.TimesStat{User: 200}, 100},
		{"no delta", cpu.TimesStat{User: 100}, cpu.TimesStat{User: 100}, 0},
		{"iowait counts as idle", cpu.TimesStat{}, cpu.TimesStat{User: 25, Iowait: 75}, 25},
	}
	for _, tc := range cases {
		if got := busyPercent(tc.prev, tc.cur); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUnitHelpers(t *testing.T) {
	if got := toGB(1_234_567_890); got != 1.23 {
		t.Errorf("toGB = %v, want 1.23", got)
	}
	if got := toMB(1_555_000); got != 1.56 {
		t.Errorf("toMB = %v, want 1.56", got)
	}
	if got := round2(99.999); got != 100 {
		t.Errorf("round2 = %v, want 100", got)
	}
	if clampPercent(-3) != 0 || clampPercent(103) != 100 || clampPercent(42) != 42 {
		t.Error("clampPercent out of contract")
	}
}

package model

import "time"

// CPUSnapshot aggregates instantaneous CPU usage.
type CPUSnapshot struct {
	Percent           float64   `json:"percent"`             // overall, 0-100
	PercentPerCore    []float64 `json:"percent_per_core"`    // ordered by core index; empty when unavailable
	CoreCount         int       `json:"core_count"`          // logical
	CoreCountPhysical int       `json:"core_count_physical"` // 0 when the platform cannot tell
	LoadAvg           []float64 `json:"load_avg"`            // 1, 5, 15 minutes
}

// RAMUsage is virtual memory usage normalized to GB.
type RAMUsage struct {
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	AvailableGB float64 `json:"available_gb"`
	Percent     float64 `json:"percent"`
}

// SwapUsage is swap usage normalized to GB.
type SwapUsage struct {
	TotalGB float64 `json:"total_gb"`
	UsedGB  float64 `json:"used_gb"`
	Percent float64 `json:"percent"`
}

// MemorySnapshot captures RAM and swap usage.
type MemorySnapshot struct {
	RAM  RAMUsage  `json:"ram"`
	Swap SwapUsage `json:"swap"`
}

// DiskIO holds cumulative read/write volume across block devices.
type DiskIO struct {
	ReadMB  float64 `json:"read_mb"`
	WriteMB float64 `json:"write_mb"`
}

// DiskSnapshot describes usage of the filesystem holding Path.
// IO is nil on platforms or paths without IO counters; that is not an error.
type DiskSnapshot struct {
	Path    string  `json:"path"` // echoed exactly as requested
	TotalGB float64 `json:"total_gb"`
	UsedGB  float64 `json:"used_gb"`
	FreeGB  float64 `json:"free_gb"`
	Percent float64 `json:"percent"`
	IO      *DiskIO `json:"io,omitempty"`
}

// NetworkSnapshot holds cumulative counters since boot. These are not rates;
// a rate needs two time-spaced samples and is up to the consumer.
type NetworkSnapshot struct {
	BytesSentMB float64 `json:"bytes_sent_mb"`
	BytesRecvMB float64 `json:"bytes_recv_mb"`
	PacketsSent uint64  `json:"packets_sent"`
	PacketsRecv uint64  `json:"packets_recv"`
	ErrorsIn    uint64  `json:"errors_in"`
	ErrorsOut   uint64  `json:"errors_out"`
}

// SystemSnapshot is the quasi-static host description.
type SystemSnapshot struct {
	Hostname      string    `json:"hostname"`
	OS            string    `json:"os"`
	OSRelease     string    `json:"os_release"`
	Architecture  string    `json:"architecture"`
	GoVersion     string    `json:"go_version"`
	BootTime      time.Time `json:"boot_time"` // UTC
	UptimeSeconds int64     `json:"uptime_seconds"`
	ProcessCount  int       `json:"process_count"`
}

// ProcessInfo is a best-effort process table row.
type ProcessInfo struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Status        string  `json:"status"`
}

// MetricsSnapshot is the full aggregate. Timestamp is the single capture
// instant shared by every section.
type MetricsSnapshot struct {
	Timestamp    time.Time       `json:"timestamp"`
	System       SystemSnapshot  `json:"system"`
	CPU          CPUSnapshot     `json:"cpu"`
	Memory       MemorySnapshot  `json:"memory"`
	Disk         DiskSnapshot    `json:"disk"`
	Network      NetworkSnapshot `json:"network"`
	TopProcesses []ProcessInfo   `json:"top_processes"`
}

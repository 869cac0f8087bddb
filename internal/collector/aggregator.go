package collector

import (
	"context"
	"time"

	"sysmond/internal/model"
)

// DefaultDiskPath is the filesystem used for the aggregate disk section.
const DefaultDiskPath = "/"

// aggregateTopN is the process count embedded in the aggregate view.
const aggregateTopN = 5

// Aggregator composes the individual collections into the combined metrics
// view. It embeds the Collector so the per-family operations remain reachable
// through it.
type Aggregator struct {
	*Collector
	diskPath string
}

// NewAggregator wraps c. diskPath overrides the disk section's path; empty
// means DefaultDiskPath.
func NewAggregator(c *Collector, diskPath string) *Aggregator {
	if diskPath == "" {
		diskPath = DefaultDiskPath
	}
	return &Aggregator{Collector: c, diskPath: diskPath}
}

// All captures one timestamp and collects every section in sequence. The
// timestamp is the aggregation instant and is shared by the whole snapshot.
// Any sub-collection failure fails the aggregate; there is no partial result.
func (a *Aggregator) All(ctx context.Context) (model.MetricsSnapshot, error) {
	ts := time.Now().UTC()

	sys, err := a.System()
	if err != nil {
		return model.MetricsSnapshot{}, err
	}
	cpuSnap, err := a.CPU(ctx)
	if err != nil {
		return model.MetricsSnapshot{}, err
	}
	memSnap, err := a.Memory()
	if err != nil {
		return model.MetricsSnapshot{}, err
	}
	diskSnap, err := a.Disk(a.diskPath)
	if err != nil {
		return model.MetricsSnapshot{}, err
	}
	netSnap, err := a.Network()
	if err != nil {
		return model.MetricsSnapshot{}, err
	}
	top, err := a.TopProcesses(aggregateTopN)
	if err != nil {
		return model.MetricsSnapshot{}, err
	}

	return model.MetricsSnapshot{
		Timestamp:    ts,
		System:       sys,
		CPU:          cpuSnap,
		Memory:       memSnap,
		Disk:         diskSnap,
		Network:      netSnap,
		TopProcesses: top,
	}, nil
}

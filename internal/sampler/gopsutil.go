package sampler

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// GopsutilSampler is the concrete ProcessSampler used outside tests,
// grounded in the teacher's own use of gopsutil for per-process figures
// (server-go/collector.go, cmd/agent/network.go). gopsutil has no
// cross-platform per-process *network* counter — the OS-level mechanism
// for that is platform-specific and explicitly out of this core's scope
// (spec.md §1: "OS-level process/bytes enumeration" is an external
// collaborator). This implementation uses each process's IOCounters as
// the cumulative source: on the platforms gopsutil supports it, it is a
// monotonically increasing per-process byte counter, which is exactly
// the contract ProcessSampler requires even though the bytes it counts
// are disk I/O rather than packets. A deployment with a true per-process
// network counter (e.g. an eBPF probe) satisfies the same interface by
// swapping this type out; nothing above ProcessSampler needs to change.
type GopsutilSampler struct{}

// NewGopsutilSampler constructs the default sampler.
func NewGopsutilSampler() *GopsutilSampler {
	return &GopsutilSampler{}
}

// Snapshot enumerates running processes and reads each one's IOCounters.
// A process that exits mid-enumeration, or one whose counters aren't
// readable (permissions, platform support), is skipped rather than
// failing the whole snapshot — losing one identity for one tick just
// means DeltaEngine drops its baseline that tick (as for an exited
// process) and treats it as a first sighting on the next.
func (g *GopsutilSampler) Snapshot(ctx context.Context) (Snapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	snap := make(Snapshot, len(procs))
	for _, p := range procs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		io, err := p.IOCountersWithContext(ctx)
		if err != nil || io == nil {
			continue
		}

		id := Identity{ProcessName: name}
		cur := snap[id]
		cur.BytesOut += io.WriteBytes
		cur.BytesIn += io.ReadBytes
		snap[id] = cur
	}
	return snap, nil
}

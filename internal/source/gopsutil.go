package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/logger"
)

// HostSource reads metrics through gopsutil.
type HostSource struct {
	log logger.Logger

	// procs caches one handle per PID across enumerations. Percent with a
	// zero interval reports usage since the previous call on the same
	// handle; a fresh handle's first reading is 0, so without the cache
	// every tick would report 0 (or a lifetime average) instead of the
	// usage over the last interval. Only the process producer goroutine
	// touches it.
	procs map[int32]*process.Process
}

func NewHostSource(log logger.Logger) *HostSource {
	s := &HostSource{
		log:   log,
		procs: make(map[int32]*process.Process),
	}

	// Warm-up read: gopsutil's percent calls report the utilisation since
	// the previous call, so the first real tick needs a baseline.
	cpu.Percent(0, true)
	cpu.Percent(0, false)

	return s
}

func (s *HostSource) CPU(ctx context.Context, withFreq bool) (domain.CPUPayload, error) {
	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return domain.CPUPayload{}, fmt.Errorf("%w: cpu percent: %w", domain.ErrSourceUnavailable, err)
	}

	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(total) == 0 {
		// Fall back to the mean of the per-core readings.
		var sum float64
		for _, v := range perCore {
			sum += v
		}
		if len(perCore) > 0 {
			total = []float64{sum / float64(len(perCore))}
		} else {
			total = []float64{0}
		}
	}

	payload := domain.CPUPayload{
		Usage:   clampPercent(total[0]),
		PerCore: make([]float64, len(perCore)),
	}
	for i, v := range perCore {
		payload.PerCore[i] = clampPercent(v)
	}

	if withFreq {
		payload.PerCoreFreqMHz, payload.AvgFreqMHz = s.readFreqs(ctx, len(perCore))
	}

	return payload, nil
}

// readFreqs is best effort: frequency data is missing on plenty of hosts and
// its absence is not an error.
func (s *HostSource) readFreqs(ctx context.Context, nCPU int) ([]float64, float64) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 {
		return nil, 0
	}

	freqs := make([]float64, 0, nCPU)
	var sum float64
	var valid int
	for i, info := range infos {
		if i >= nCPU && nCPU > 0 {
			break
		}
		f := info.Mhz
		if f < 0 {
			f = 0
		}
		freqs = append(freqs, f)
		if f > 0 {
			sum += f
			valid++
		}
	}

	if valid == 0 {
		return nil, 0
	}
	return freqs, sum / float64(valid)
}

func (s *HostSource) Memory(ctx context.Context) (domain.MemoryPayload, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return domain.MemoryPayload{}, fmt.Errorf("%w: virtual memory: %w", domain.ErrSourceUnavailable, err)
	}

	payload := domain.MemoryPayload{
		TotalBytes:     vm.Total,
		UsedBytes:      vm.Used,
		AvailableBytes: vm.Available,
		CachedBytes:    vm.Cached,
		UsedPercent:    vm.UsedPercent,
	}

	if sm, err := mem.SwapMemoryWithContext(ctx); err == nil && sm.Total > 0 {
		payload.SwapTotalBytes = sm.Total
		payload.SwapUsedBytes = sm.Used
		payload.SwapPercent = sm.UsedPercent
	}

	return payload, nil
}

func (s *HostSource) Network(ctx context.Context) (NetCounters, error) {
	counters, err := gnet.IOCountersWithContext(ctx, false)
	if err != nil {
		return NetCounters{}, fmt.Errorf("%w: net counters: %w", domain.ErrSourceUnavailable, err)
	}
	if len(counters) == 0 {
		return NetCounters{}, fmt.Errorf("%w: no network counters reported", domain.ErrSourceUnavailable)
	}

	return NetCounters{
		BytesSent: counters[0].BytesSent,
		BytesRecv: counters[0].BytesRecv,
	}, nil
}

func (s *HostSource) Processes(ctx context.Context) ([]RawProcess, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: process table: %w", domain.ErrSourceUnavailable, err)
	}

	out := make([]RawProcess, 0, len(procs))
	seen := make(map[int32]struct{}, len(procs))
	for _, fresh := range procs {
		p, ok := s.procs[fresh.Pid]
		if !ok {
			p = fresh
			s.procs[fresh.Pid] = p
		}
		seen[fresh.Pid] = struct{}{}

		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Exited between the table walk and the field read.
			delete(s.procs, fresh.Pid)
			continue
		}

		raw := RawProcess{PID: p.Pid, Name: name}

		if user, err := p.UsernameWithContext(ctx); err == nil {
			raw.Username = user
		}
		if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
			raw.Cmdline = cmdline
		}
		if cpuPct, err := p.PercentWithContext(ctx, 0); err == nil {
			raw.CPUPercent = cpuPct
		}
		if memInfo, err := p.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			raw.MemoryRSS = memInfo.RSS
		}
		if io, err := p.IOCountersWithContext(ctx); err == nil && io != nil {
			raw.ReadBytes = io.ReadBytes
			raw.WriteBytes = io.WriteBytes
			raw.HasIO = true
		}

		out = append(out, raw)
	}

	for pid := range s.procs {
		if _, alive := seen[pid]; !alive {
			delete(s.procs, pid)
		}
	}

	return out, nil
}

func (s *HostSource) Filesystem(ctx context.Context) (FilesystemSnapshot, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return FilesystemSnapshot{}, fmt.Errorf("%w: partitions: %w", domain.ErrSourceUnavailable, err)
	}

	snap := FilesystemSnapshot{At: time.Now()}

	for _, p := range parts {
		if isVirtualFS(p.Fstype) {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			s.log.Debug("filesystem usage unavailable", "mountpoint", p.Mountpoint, "error", err)
			continue
		}
		snap.Partitions = append(snap.Partitions, domain.PartitionUsage{
			Device:      p.Device,
			Mountpoint:  p.Mountpoint,
			Fstype:      p.Fstype,
			TotalBytes:  usage.Total,
			UsedBytes:   usage.Used,
			FreeBytes:   usage.Free,
			UsedPercent: usage.UsedPercent,
		})
	}

	if io, err := disk.IOCountersWithContext(ctx); err == nil {
		for name, c := range io {
			snap.DiskIO = append(snap.DiskIO, RawDiskIO{
				Name:       name,
				ReadBytes:  c.ReadBytes,
				WriteBytes: c.WriteBytes,
			})
		}
		sort.Slice(snap.DiskIO, func(i, j int) bool {
			return snap.DiskIO[i].Name < snap.DiskIO[j].Name
		})
	}

	return snap, nil
}

func isVirtualFS(fstype string) bool {
	switch strings.ToLower(fstype) {
	case "tmpfs", "devtmpfs", "devfs", "overlay", "squashfs", "proc", "sysfs", "cgroup", "cgroup2":
		return true
	}
	return false
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

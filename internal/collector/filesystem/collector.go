// Package filesystem
package filesystem

import (
	"context"
	"time"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/source"
)

// MaxGap supplies the current bound on how old a rate baseline may be.
// Re-read every collection so cadence retunes move the bound with them; a
// non-positive value means unbounded.
type MaxGap func() time.Duration

// Collector snapshots mounted partitions and per-disk I/O. Disk rates are
// derived between consecutive collections, which only happen while the
// filesystem view is visible; after a gap the first collection reports
// totals with zero rates rather than a rate over the whole gap.
type Collector struct {
	src    source.Source
	maxGap MaxGap

	prevIO   map[string]ioTotals
	prevTime time.Time
}

type ioTotals struct {
	read  uint64
	write uint64
}

func NewCollector(src source.Source, maxGap MaxGap) *Collector {
	if maxGap == nil {
		maxGap = func() time.Duration { return 0 }
	}
	return &Collector{
		src:    src,
		maxGap: maxGap,
		prevIO: make(map[string]ioTotals),
	}
}

func (c *Collector) Collect(ctx context.Context) (any, error) {
	snap, err := c.src.Filesystem(ctx)
	if err != nil {
		return nil, err
	}

	now := snap.At
	if now.IsZero() {
		now = time.Now()
	}

	dt := now.Sub(c.prevTime).Seconds()
	gap := c.maxGap()
	rateable := !c.prevTime.IsZero() && dt > 0 && (gap <= 0 || now.Sub(c.prevTime) <= gap)

	payload := domain.FilesystemPayload{
		Partitions: snap.Partitions,
		Disks:      make([]domain.DiskIOCounters, 0, len(snap.DiskIO)),
	}

	next := make(map[string]ioTotals, len(snap.DiskIO))
	for _, d := range snap.DiskIO {
		counters := domain.DiskIOCounters{
			Name:       d.Name,
			ReadBytes:  d.ReadBytes,
			WriteBytes: d.WriteBytes,
		}
		if prev, ok := c.prevIO[d.Name]; ok && rateable {
			if d.ReadBytes >= prev.read {
				counters.ReadKiBps = float64(d.ReadBytes-prev.read) / 1024.0 / dt
			}
			if d.WriteBytes >= prev.write {
				counters.WriteKiBps = float64(d.WriteBytes-prev.write) / 1024.0 / dt
			}
		}
		next[d.Name] = ioTotals{read: d.ReadBytes, write: d.WriteBytes}
		payload.Disks = append(payload.Disks, counters)
	}

	c.prevIO = next
	c.prevTime = now

	return payload, nil
}

// Package process
package process

import (
	"context"
	"time"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/source"
)

// Enumerator produces process batches from a single table retrieval per
// tick. Per-process I/O rates are derived from the previous tick's totals;
// state for exited processes is pruned so the table never grows unbounded.
type Enumerator struct {
	src source.Source

	prevIO   map[int32]ioTotals
	prevTime time.Time
}

type ioTotals struct {
	read  uint64
	write uint64
}

func NewEnumerator(src source.Source) *Enumerator {
	return &Enumerator{
		src:    src,
		prevIO: make(map[int32]ioTotals),
	}
}

// Collect satisfies the sampler producer contract for the process class.
func (e *Enumerator) Collect(ctx context.Context) (any, error) {
	batch, err := e.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// Enumerate retrieves the process table once and derives every record from
// that retrieval. All records share the batch timestamp; processes that
// exited mid-retrieval are simply absent.
func (e *Enumerator) Enumerate(ctx context.Context) (domain.ProcessBatch, error) {
	raw, err := e.src.Processes(ctx)
	if err != nil {
		return domain.ProcessBatch{}, err
	}

	now := time.Now()
	dt := now.Sub(e.prevTime).Seconds()

	batch := domain.ProcessBatch{
		At:      now,
		Records: make([]domain.ProcessRecord, 0, len(raw)),
	}

	seen := make(map[int32]struct{}, len(raw))
	for _, rp := range raw {
		seen[rp.PID] = struct{}{}

		rec := domain.ProcessRecord{
			PID:        rp.PID,
			Name:       rp.Name,
			Username:   rp.Username,
			Cmdline:    rp.Cmdline,
			CPUPercent: rp.CPUPercent,
			MemoryRSS:  rp.MemoryRSS,
			BatchAt:    now,
		}

		if rp.HasIO {
			rec.ReadBytesTotal = rp.ReadBytes
			rec.WriteBytesTotal = rp.WriteBytes
			if prev, ok := e.prevIO[rp.PID]; ok && dt > 0 && !e.prevTime.IsZero() {
				if rp.ReadBytes >= prev.read {
					rec.ReadKiBps = float64(rp.ReadBytes-prev.read) / 1024.0 / dt
				}
				if rp.WriteBytes >= prev.write {
					rec.WriteKiBps = float64(rp.WriteBytes-prev.write) / 1024.0 / dt
				}
			}
			e.prevIO[rp.PID] = ioTotals{read: rp.ReadBytes, write: rp.WriteBytes}
		}

		batch.Records = append(batch.Records, rec)
	}

	for pid := range e.prevIO {
		if _, alive := seen[pid]; !alive {
			delete(e.prevIO, pid)
		}
	}
	e.prevTime = now

	return batch, nil
}

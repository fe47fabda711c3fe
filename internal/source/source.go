// Package source is the adapter boundary between the core and the host OS
// metrics layer. The core never reads /proc or syscalls itself; everything
// goes through a Source so collectors stay testable against fakes.
package source

import (
	"context"
	"time"

	"klv-monitor/internal/domain"
)

// NetCounters are lifetime totals for the aggregate of all interfaces.
type NetCounters struct {
	BytesSent uint64
	BytesRecv uint64
}

// RawProcess is one row of a single process-table retrieval. Fields that the
// host could not provide for a process are zero-valued; the process itself is
// only dropped when it exited mid-retrieval.
type RawProcess struct {
	PID      int32
	Name     string
	Username string
	Cmdline  string

	CPUPercent float64
	MemoryRSS  uint64

	ReadBytes  uint64
	WriteBytes uint64
	HasIO      bool
}

// RawDiskIO are lifetime I/O totals for one physical disk.
type RawDiskIO struct {
	Name       string
	ReadBytes  uint64
	WriteBytes uint64
}

type FilesystemSnapshot struct {
	Partitions []domain.PartitionUsage
	DiskIO     []RawDiskIO
	At         time.Time
}

// Source reads host metrics. Every method is synchronous and fallible;
// failures wrap domain.ErrSourceUnavailable.
type Source interface {
	CPU(ctx context.Context, withFreq bool) (domain.CPUPayload, error)
	Memory(ctx context.Context) (domain.MemoryPayload, error)
	Network(ctx context.Context) (NetCounters, error)
	Processes(ctx context.Context) ([]RawProcess, error)
	Filesystem(ctx context.Context) (FilesystemSnapshot, error)
}

// Package domain
package domain

import "time"

// MetricClass identifies one independently sampled family of host metrics.
type MetricClass string

const (
	ClassCPU        MetricClass = "cpu"
	ClassMemory     MetricClass = "memory"
	ClassProcess    MetricClass = "process"
	ClassNetwork    MetricClass = "network"
	ClassFilesystem MetricClass = "filesystem"
)

// Classes lists every metric class in a stable order.
func Classes() []MetricClass {
	return []MetricClass{ClassCPU, ClassMemory, ClassProcess, ClassNetwork, ClassFilesystem}
}

// Valid reports whether c names a known metric class.
func (c MetricClass) Valid() bool {
	switch c {
	case ClassCPU, ClassMemory, ClassProcess, ClassNetwork, ClassFilesystem:
		return true
	}
	return false
}

// Sample is one published measurement. It is immutable once produced:
// producers build a fresh payload every tick and never touch it again.
type Sample struct {
	Class   MetricClass `json:"class"`
	At      time.Time   `json:"at"`
	Payload any         `json:"payload"`
}

type CPUPayload struct {
	// Usage is the overall utilisation in percent, 0..100.
	Usage   float64   `json:"usage"`
	PerCore []float64 `json:"per_core"`

	// Per-core frequency in MHz. Empty when the host exposes none.
	PerCoreFreqMHz []float64 `json:"per_core_freq_mhz,omitempty"`
	AvgFreqMHz     float64   `json:"avg_freq_mhz,omitempty"`
}

type MemoryPayload struct {
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	CachedBytes    uint64  `json:"cached_bytes"`
	UsedPercent    float64 `json:"used_percent"`

	SwapTotalBytes uint64  `json:"swap_total_bytes"`
	SwapUsedBytes  uint64  `json:"swap_used_bytes"`
	SwapPercent    float64 `json:"swap_percent"`
}

// ProcessRecord is one row of a process batch. All records produced by a
// single enumeration carry the same BatchAt timestamp.
type ProcessRecord struct {
	PID      int32  `json:"pid"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Cmdline  string `json:"cmdline"`

	CPUPercent float64 `json:"cpu_percent"`
	MemoryRSS  uint64  `json:"memory_rss"`

	ReadBytesTotal  uint64  `json:"read_bytes_total"`
	WriteBytesTotal uint64  `json:"write_bytes_total"`
	ReadKiBps       float64 `json:"read_kibps"`
	WriteKiBps      float64 `json:"write_kibps"`

	BatchAt time.Time `json:"batch_at"`
}

type ProcessBatch struct {
	At      time.Time       `json:"at"`
	Records []ProcessRecord `json:"records"`
}

type NetworkPayload struct {
	BytesSentDelta uint64  `json:"bytes_sent_delta"`
	BytesRecvDelta uint64  `json:"bytes_recv_delta"`
	SentKiBps      float64 `json:"sent_kibps"`
	RecvKiBps      float64 `json:"recv_kibps"`
	TotalSent      uint64  `json:"total_sent"`
	TotalRecv      uint64  `json:"total_recv"`

	// Interval is the elapsed time in seconds the deltas cover.
	Interval float64 `json:"interval_seconds"`
}

type PartitionUsage struct {
	Device      string  `json:"device"`
	Mountpoint  string  `json:"mountpoint"`
	Fstype      string  `json:"fstype"`
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type DiskIOCounters struct {
	Name       string  `json:"name"`
	ReadBytes  uint64  `json:"read_bytes"`
	WriteBytes uint64  `json:"write_bytes"`
	ReadKiBps  float64 `json:"read_kibps"`
	WriteKiBps float64 `json:"write_kibps"`
}

type FilesystemPayload struct {
	Partitions []PartitionUsage `json:"partitions"`
	Disks      []DiskIOCounters `json:"disks"`
}

// Package cpu
package cpu

import (
	"context"

	"klv-monitor/internal/source"
)

// Collector samples overall and per-core CPU usage, plus frequencies when
// the preference for them is on. Frequency reads cost extra syscalls, so
// they are skipped entirely when disabled.
type Collector struct {
	src      source.Source
	withFreq func() bool
}

func NewCollector(src source.Source, withFreq func() bool) *Collector {
	if withFreq == nil {
		withFreq = func() bool { return true }
	}
	return &Collector{src: src, withFreq: withFreq}
}

func (c *Collector) Collect(ctx context.Context) (any, error) {
	payload, err := c.src.CPU(ctx, c.withFreq())
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Package memory
package memory

import (
	"context"

	"klv-monitor/internal/source"
)

type Collector struct {
	src source.Source
}

func NewCollector(src source.Source) *Collector {
	return &Collector{src: src}
}

func (c *Collector) Collect(ctx context.Context) (any, error) {
	payload, err := c.src.Memory(ctx)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Package network
package network

import (
	"context"
	"time"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/source"
)

// Smoothing supplies the current smoothing preferences. Re-read every tick
// so preference changes apply without restarting the collector.
type Smoothing func() (enabled bool, alpha float64, double bool)

// Collector turns lifetime byte counters into per-interval deltas and KiB/s
// rates. The first tick only seeds the baseline and reports zero rates.
type Collector struct {
	src       source.Source
	smoothing Smoothing

	lastSent uint64
	lastRecv uint64
	lastTime time.Time

	sent *rateSmoother
	recv *rateSmoother
}

func NewCollector(src source.Source, smoothing Smoothing) *Collector {
	if smoothing == nil {
		smoothing = func() (bool, float64, bool) { return false, 0, false }
	}
	return &Collector{src: src, smoothing: smoothing}
}

func (c *Collector) Collect(ctx context.Context) (any, error) {
	counters, err := c.src.Network(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	payload := domain.NetworkPayload{
		TotalSent: counters.BytesSent,
		TotalRecv: counters.BytesRecv,
	}

	if !c.lastTime.IsZero() {
		elapsed := now.Sub(c.lastTime).Seconds()
		// Counters can go backwards after an interface reset; treat that
		// as a fresh baseline.
		if elapsed > 0 && counters.BytesSent >= c.lastSent && counters.BytesRecv >= c.lastRecv {
			payload.BytesSentDelta = counters.BytesSent - c.lastSent
			payload.BytesRecvDelta = counters.BytesRecv - c.lastRecv
			payload.Interval = elapsed
			payload.SentKiBps = float64(payload.BytesSentDelta) / 1024.0 / elapsed
			payload.RecvKiBps = float64(payload.BytesRecvDelta) / 1024.0 / elapsed
		}
	}

	c.lastSent = counters.BytesSent
	c.lastRecv = counters.BytesRecv
	c.lastTime = now

	if enabled, alpha, double := c.smoothing(); enabled {
		payload.SentKiBps = c.smoothSent(payload.SentKiBps, alpha, double)
		payload.RecvKiBps = c.smoothRecv(payload.RecvKiBps, alpha, double)
	} else {
		c.sent, c.recv = nil, nil
	}

	return payload, nil
}

func (c *Collector) smoothSent(v, alpha float64, double bool) float64 {
	if c.sent == nil || c.sent.alpha != alpha || c.sent.double != double {
		c.sent = newRateSmoother(alpha, double)
	}
	return c.sent.add(v)
}

func (c *Collector) smoothRecv(v, alpha float64, double bool) float64 {
	if c.recv == nil || c.recv.alpha != alpha || c.recv.double != double {
		c.recv = newRateSmoother(alpha, double)
	}
	return c.recv.add(v)
}

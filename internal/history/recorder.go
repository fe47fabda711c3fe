// Package history records published samples into sqlite so plots can be
// backfilled after a consumer restart. The recorder is just another hub
// subscriber: it drains at its own pace and the producers never wait on it.
package history

import (
	"context"
	"time"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/hub"
	"klv-monitor/internal/logger"
	"klv-monitor/internal/storage/sqlite"
)

const (
	// subCapacity bounds each class subscription; at plot cadence this is
	// several seconds of slack before old samples get dropped.
	subCapacity = 256

	flushThreshold = 64
)

type Recorder struct {
	repo      *sqlite.SampleRepository
	hub       *hub.Hub
	classes   []domain.MetricClass
	flushIvl  time.Duration
	pruneIvl  time.Duration
	retention time.Duration
	log       logger.Logger

	buf []domain.Sample
}

func New(repo *sqlite.SampleRepository, h *hub.Hub, classes []domain.MetricClass, retention time.Duration, log logger.Logger) *Recorder {
	return &Recorder{
		repo:      repo,
		hub:       h,
		classes:   classes,
		flushIvl:  5 * time.Second,
		pruneIvl:  10 * time.Minute,
		retention: retention,
		log:       log,
	}
}

// Run consumes until ctx is cancelled, then flushes what is buffered.
func (r *Recorder) Run(ctx context.Context) error {
	subs := make([]*hub.Subscription, 0, len(r.classes))
	// Funnel every class into one channel so a single goroutine owns the
	// buffer and the sqlite writes.
	merged := make(chan domain.Sample, subCapacity)
	for _, class := range r.classes {
		sub := r.hub.Subscribe(class, subCapacity)
		subs = append(subs, sub)
		go func(sub *hub.Subscription) {
			for s := range sub.C() {
				select {
				case merged <- s:
				case <-ctx.Done():
					return
				}
			}
		}(sub)
	}
	defer func() {
		for _, sub := range subs {
			sub.Cancel()
		}
	}()

	flushTicker := time.NewTicker(r.flushIvl)
	pruneTicker := time.NewTicker(r.pruneIvl)
	defer flushTicker.Stop()
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("flushing remaining samples before shutdown", "buffered", len(r.buf))
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.flush(flushCtx)
			cancel()
			return ctx.Err()

		case s := <-merged:
			r.buf = append(r.buf, s)
			if len(r.buf) >= flushThreshold {
				r.flush(ctx)
			}

		case <-flushTicker.C:
			r.flush(ctx)

		case <-pruneTicker.C:
			r.prune(ctx)
		}
	}
}

func (r *Recorder) flush(ctx context.Context) {
	if len(r.buf) == 0 {
		return
	}
	if err := r.repo.BulkInsert(ctx, r.buf); err != nil {
		r.log.Error("failed to flush samples", "count", len(r.buf), "error", err)
		// Keep the buffer for the next attempt unless it is runaway large.
		if len(r.buf) < 4*flushThreshold {
			return
		}
	}
	r.buf = r.buf[:0]
}

func (r *Recorder) prune(ctx context.Context) {
	cutoff := time.Now().Add(-r.retention)
	n, err := r.repo.Cleanup(ctx, cutoff)
	if err != nil {
		r.log.Error("failed to prune history", "error", err)
		return
	}
	if n > 0 {
		r.log.Debug("pruned history", "rows", n, "cutoff", cutoff)
	}
}

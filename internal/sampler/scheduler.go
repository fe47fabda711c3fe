// Package sampler runs one periodic producer per metric class. Cadences are
// independent: retuning or stopping one class never perturbs another, and a
// faulting producer is isolated to its own class.
package sampler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/hub"
	"klv-monitor/internal/logger"
)

// Producer reads one sample payload. It is invoked once per tick from a
// single goroutine.
type Producer func(ctx context.Context) (any, error)

type task struct {
	class    domain.MetricClass
	producer Producer
	retune   chan time.Duration
	cancel   context.CancelFunc
	done     chan struct{}

	// visible gates the producer: ticks for an invisible class skip the
	// read entirely, so a hidden consumer costs nothing.
	visible atomic.Bool

	lastAt time.Time
}

type Scheduler struct {
	mu    sync.Mutex
	tasks map[domain.MetricClass]*task

	hub *hub.Hub
	log logger.Logger
}

func New(h *hub.Hub, log logger.Logger) *Scheduler {
	return &Scheduler{
		tasks: make(map[domain.MetricClass]*task),
		hub:   h,
		log:   log,
	}
}

// Register starts an independent cadence for class. The first tick fires
// immediately, subsequent ones every interval.
func (s *Scheduler) Register(ctx context.Context, class domain.MetricClass, interval time.Duration, producer Producer) error {
	return s.register(ctx, class, interval, producer, true)
}

// RegisterHidden starts a class with its visibility gate closed, so not even
// the immediate first tick reaches the producer until SetVisible opens it.
func (s *Scheduler) RegisterHidden(ctx context.Context, class domain.MetricClass, interval time.Duration, producer Producer) error {
	return s.register(ctx, class, interval, producer, false)
}

func (s *Scheduler) register(ctx context.Context, class domain.MetricClass, interval time.Duration, producer Producer, visible bool) error {
	if interval <= 0 {
		return fmt.Errorf("sampler: interval for %s must be positive", class)
	}

	s.mu.Lock()
	if _, exists := s.tasks[class]; exists {
		s.mu.Unlock()
		return fmt.Errorf("sampler: class %s already registered", class)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{
		class:    class,
		producer: producer,
		retune:   make(chan time.Duration, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	t.visible.Store(visible)
	s.tasks[class] = t
	s.mu.Unlock()

	go s.run(taskCtx, t, interval)
	return nil
}

// SetInterval retunes one class's cadence at runtime.
func (s *Scheduler) SetInterval(class domain.MetricClass, interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	t, ok := s.tasks[class]
	s.mu.Unlock()
	if !ok {
		return
	}

	// Keep only the newest pending retune.
	select {
	case <-t.retune:
	default:
	}
	t.retune <- interval
}

// SetVisible drives visibility gating for a class. The consumer boundary
// calls this when its view of the class is shown or hidden.
func (s *Scheduler) SetVisible(class domain.MetricClass, visible bool) {
	s.mu.Lock()
	t, ok := s.tasks[class]
	s.mu.Unlock()
	if !ok {
		return
	}

	was := t.visible.Swap(visible)
	if was != visible {
		s.log.Debug("visibility changed", "class", class, "visible", visible)
	}
}

// Visible reports the current gate state for a class.
func (s *Scheduler) Visible(class domain.MetricClass) bool {
	s.mu.Lock()
	t, ok := s.tasks[class]
	s.mu.Unlock()
	return ok && t.visible.Load()
}

// Stop halts one class and waits for any in-flight tick to finish. Safe to
// call concurrently with ticks and with other Stops.
func (s *Scheduler) Stop(class domain.MetricClass) {
	s.mu.Lock()
	t, ok := s.tasks[class]
	if ok {
		delete(s.tasks, class)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	t.cancel()
	<-t.done
}

// StopAll halts every registered class.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for class, t := range s.tasks {
		tasks = append(tasks, t)
		delete(s.tasks, class)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
		<-t.done
	}
}

func (s *Scheduler) run(ctx context.Context, t *task, interval time.Duration) {
	defer close(t.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx, t)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, t)
		case d := <-t.retune:
			ticker.Reset(d)
			s.log.Debug("interval retuned", "class", t.class, "interval", d)
		case <-ctx.Done():
			return
		}
	}
}

// tick invokes the producer and publishes exactly one sample on success.
// Errors and panics mark the class stale and leave the previous sample in
// place; other classes keep ticking.
func (s *Scheduler) tick(ctx context.Context, t *task) {
	if !t.visible.Load() {
		return
	}

	payload, err := s.produce(ctx, t)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("producer failed", "class", t.class, "error", err)
		s.hub.MarkStale(t.class, err)
		return
	}

	at := time.Now()
	if !at.After(t.lastAt) {
		at = t.lastAt.Add(time.Nanosecond)
	}
	t.lastAt = at

	s.hub.Publish(domain.Sample{Class: t.class, At: at, Payload: payload})
}

func (s *Scheduler) produce(ctx context.Context, t *task) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panic: %v", r)
		}
	}()
	return t.producer(ctx)
}

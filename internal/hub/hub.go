// Package hub is the in-memory distribution point between producers and
// consumers. Per class it keeps the latest sample plus any number of bounded
// subscriptions; a publish never blocks, no matter how slow a consumer is.
package hub

import (
	"sync"
	"time"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/logger"
)

type Hub struct {
	mu     sync.RWMutex
	latest map[domain.MetricClass]domain.Sample
	stale  map[domain.MetricClass]domain.StaleInfo
	subs   map[domain.MetricClass]map[*Subscription]struct{}

	log logger.Logger
}

// Subscription delivers every published sample of one class over a bounded
// channel. When the buffer is full the oldest entry is evicted first, so a
// slow consumer sees a contiguous suffix of the stream.
type Subscription struct {
	class domain.MetricClass
	ch    chan domain.Sample
	hub   *Hub
	once  sync.Once

	// mu orders push against Cancel so a publish snapshot taken just
	// before cancellation cannot send on a closed channel.
	mu      sync.Mutex
	closed  bool
	dropped int
}

func New(log logger.Logger) *Hub {
	return &Hub{
		latest: make(map[domain.MetricClass]domain.Sample),
		stale:  make(map[domain.MetricClass]domain.StaleInfo),
		subs:   make(map[domain.MetricClass]map[*Subscription]struct{}),
		log:    log,
	}
}

// Publish stores sample as the latest value for its class and fans it out to
// subscribers. There is a single producer per class; publishes for different
// classes may run concurrently.
func (h *Hub) Publish(sample domain.Sample) {
	h.mu.Lock()
	h.latest[sample.Class] = sample
	delete(h.stale, sample.Class)
	subs := make([]*Subscription, 0, len(h.subs[sample.Class]))
	for sub := range h.subs[sample.Class] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.push(sample)
	}
}

// MarkStale records that the class could not be refreshed. The previous
// sample stays readable; consumers get an explicit signal instead of a
// silently frozen value. Cleared by the next successful Publish.
func (h *Hub) MarkStale(class domain.MetricClass, reason error) {
	h.mu.Lock()
	if _, already := h.stale[class]; !already {
		h.stale[class] = domain.StaleInfo{
			Class:  class,
			Since:  time.Now(),
			Reason: reason.Error(),
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Latest(class domain.MetricClass) (domain.Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.latest[class]
	return s, ok
}

func (h *Hub) Stale(class domain.MetricClass) (domain.StaleInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	info, ok := h.stale[class]
	return info, ok
}

// Subscribe registers a consumer for one class. capacity bounds how far the
// consumer may lag before old samples are dropped.
func (h *Hub) Subscribe(class domain.MetricClass, capacity int) *Subscription {
	if capacity < 1 {
		capacity = 1
	}

	sub := &Subscription{
		class: class,
		ch:    make(chan domain.Sample, capacity),
		hub:   h,
	}

	h.mu.Lock()
	if h.subs[class] == nil {
		h.subs[class] = make(map[*Subscription]struct{})
	}
	h.subs[class][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// SubscriberCount reports how many subscriptions a class currently has.
func (h *Hub) SubscriberCount(class domain.MetricClass) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[class])
}

// C is the receive side of the subscription. It is closed by Cancel.
func (s *Subscription) C() <-chan domain.Sample {
	return s.ch
}

// Cancel detaches the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs[s.class], s)
		s.hub.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		if s.dropped > 0 {
			s.hub.log.Debug("subscription cancelled", "class", s.class, "dropped", s.dropped)
		}
		s.mu.Unlock()
	})
}

// push delivers without blocking: on a full buffer the oldest sample is
// evicted to make room. Only the class's producer goroutine calls this.
func (s *Subscription) push(sample domain.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- sample:
		return
	default:
	}

	select {
	case <-s.ch:
		s.dropped++
	default:
	}

	select {
	case s.ch <- sample:
	default:
		s.dropped++
	}
}

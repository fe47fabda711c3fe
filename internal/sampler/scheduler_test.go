package sampler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"klv-monitor/internal/domain"
	"klv-monitor/internal/hub"
	"klv-monitor/internal/logger"
)

func countingProducer(counter *atomic.Int64) Producer {
	return func(ctx context.Context) (any, error) {
		n := counter.Add(1)
		return n, nil
	}
}

func TestIndependentCadences(t *testing.T) {
	h := hub.New(logger.Discard())
	s := New(h, logger.Discard())
	defer s.StopAll()

	var fast, slow atomic.Int64
	ctx := context.Background()

	if err := s.Register(ctx, domain.ClassCPU, 10*time.Millisecond, countingProducer(&fast)); err != nil {
		t.Fatalf("Register cpu: %v", err)
	}
	if err := s.Register(ctx, domain.ClassNetwork, 50*time.Millisecond, countingProducer(&slow)); err != nil {
		t.Fatalf("Register network: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	s.StopAll()

	fastN, slowN := fast.Load(), slow.Load()
	if fastN <= slowN {
		t.Errorf("expected the 10ms class to tick more than the 50ms class: fast=%d slow=%d", fastN, slowN)
	}
	// ~30 fast ticks and ~6 slow ticks expected; allow generous slack for
	// a loaded test machine but require the ratio to show through.
	if fastN < 2*slowN {
		t.Errorf("cadences not independent enough: fast=%d slow=%d", fastN, slowN)
	}
	if slowN == 0 {
		t.Error("slow class never ticked")
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	h := hub.New(logger.Discard())
	s := New(h, logger.Discard())
	defer s.StopAll()

	var n atomic.Int64
	if err := s.Register(context.Background(), domain.ClassCPU, time.Hour, countingProducer(&n)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register(context.Background(), domain.ClassCPU, time.Hour, countingProducer(&n)); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestFaultIsolation(t *testing.T) {
	h := hub.New(logger.Discard())
	s := New(h, logger.Discard())
	defer s.StopAll()

	var healthy atomic.Int64
	ctx := context.Background()

	faulty := func(ctx context.Context) (any, error) {
		return nil, errors.New("injected fault")
	}
	panicky := func(ctx context.Context) (any, error) {
		panic("injected panic")
	}

	if err := s.Register(ctx, domain.ClassCPU, 10*time.Millisecond, faulty); err != nil {
		t.Fatalf("Register cpu: %v", err)
	}
	if err := s.Register(ctx, domain.ClassMemory, 10*time.Millisecond, panicky); err != nil {
		t.Fatalf("Register memory: %v", err)
	}
	if err := s.Register(ctx, domain.ClassNetwork, 10*time.Millisecond, countingProducer(&healthy)); err != nil {
		t.Fatalf("Register network: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	before := healthy.Load()
	time.Sleep(100 * time.Millisecond)
	after := healthy.Load()
	s.StopAll()

	if after <= before {
		t.Error("healthy class stopped ticking while siblings faulted")
	}

	// Faulted classes are marked stale, never published.
	if _, ok := h.Latest(domain.ClassCPU); ok {
		t.Error("faulty producer must not publish")
	}
	if _, ok := h.Stale(domain.ClassCPU); !ok {
		t.Error("faulty class should carry a stale marker")
	}
	if _, ok := h.Stale(domain.ClassMemory); !ok {
		t.Error("panicking class should carry a stale marker")
	}

	// The healthy class published and is not stale.
	if _, ok := h.Latest(domain.ClassNetwork); !ok {
		t.Error("healthy class should have published")
	}
	if _, ok := h.Stale(domain.ClassNetwork); ok {
		t.Error("healthy class must not be stale")
	}
}

func TestVisibilityGating(t *testing.T) {
	h := hub.New(logger.Discard())
	s := New(h, logger.Discard())
	defer s.StopAll()

	var calls atomic.Int64
	if err := s.Register(context.Background(), domain.ClassProcess, 10*time.Millisecond, countingProducer(&calls)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.SetVisible(domain.ClassProcess, false)
	time.Sleep(30 * time.Millisecond)
	baseline := calls.Load()

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != baseline {
		t.Errorf("expected zero producer calls while invisible, got %d extra", got-baseline)
	}

	s.SetVisible(domain.ClassProcess, true)
	time.Sleep(100 * time.Millisecond)
	if calls.Load() == baseline {
		t.Error("expected ticks to resume once visible")
	}
}

func TestHiddenRegistrationNeverTicks(t *testing.T) {
	h := hub.New(logger.Discard())
	s := New(h, logger.Discard())
	defer s.StopAll()

	var calls atomic.Int64
	if err := s.RegisterHidden(context.Background(), domain.ClassProcess, time.Millisecond, countingProducer(&calls)); err != nil {
		t.Fatalf("RegisterHidden: %v", err)
	}

	// Not even the immediate first tick may reach the producer; there is no
	// window between registration and gating.
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("hidden class produced %d samples before any viewer appeared", got)
	}
	if s.Visible(domain.ClassProcess) {
		t.Error("hidden registration reports visible")
	}

	s.SetVisible(domain.ClassProcess, true)
	time.Sleep(100 * time.Millisecond)
	if calls.Load() == 0 {
		t.Error("class never started ticking after becoming visible")
	}
}

func TestSetIntervalDoesNotPerturbOtherClasses(t *testing.T) {
	h := hub.New(logger.Discard())
	s := New(h, logger.Discard())
	defer s.StopAll()

	var a, b atomic.Int64
	ctx := context.Background()

	if err := s.Register(ctx, domain.ClassCPU, 20*time.Millisecond, countingProducer(&a)); err != nil {
		t.Fatalf("Register cpu: %v", err)
	}
	if err := s.Register(ctx, domain.ClassNetwork, 20*time.Millisecond, countingProducer(&b)); err != nil {
		t.Fatalf("Register network: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	// Slow one class way down; the other keeps its cadence.
	s.SetInterval(domain.ClassCPU, time.Hour)
	time.Sleep(50 * time.Millisecond)

	aFrozen := a.Load()
	bBefore := b.Load()
	time.Sleep(100 * time.Millisecond)

	if got := a.Load(); got != aFrozen {
		t.Errorf("retuned class still ticking at old cadence: %d -> %d", aFrozen, got)
	}
	if b.Load() <= bBefore {
		t.Error("sibling class slowed down by another class's retune")
	}
}

func TestStopConcurrentWithTicks(t *testing.T) {
	h := hub.New(logger.Discard())
	s := New(h, logger.Discard())

	slow := func(ctx context.Context) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return 1, nil
	}
	if err := s.Register(context.Background(), domain.ClassCPU, 5*time.Millisecond, slow); err != nil {
		t.Fatalf("Register: %v", err)
	}

	time.Sleep(15 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop(domain.ClassCPU)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return with a tick in flight")
	}

	// Stopping again is a no-op.
	s.Stop(domain.ClassCPU)
}

func TestTimestampsStrictlyIncreaseWithinClass(t *testing.T) {
	h := hub.New(logger.Discard())
	s := New(h, logger.Discard())
	defer s.StopAll()

	sub := h.Subscribe(domain.ClassCPU, 128)
	defer sub.Cancel()

	var n atomic.Int64
	if err := s.Register(context.Background(), domain.ClassCPU, time.Millisecond, countingProducer(&n)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	s.StopAll()

	var last time.Time
	count := 0
drain:
	for {
		select {
		case sample := <-sub.C():
			if !sample.At.After(last) {
				t.Fatalf("timestamps not strictly increasing: %v then %v", last, sample.At)
			}
			last = sample.At
			count++
		default:
			break drain
		}
	}
	if count == 0 {
		t.Fatal("no samples observed")
	}
}

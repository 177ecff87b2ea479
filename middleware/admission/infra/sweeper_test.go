package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"admission-gateway/middleware/admission/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingStore struct {
	*Store
	mu     sync.Mutex
	sweeps int
}

func (c *countingStore) Sweep(now time.Time) int {
	c.mu.Lock()
	c.sweeps++
	c.mu.Unlock()
	return c.Store.Sweep(now)
}

func (c *countingStore) Sweeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweeps
}

func TestSweeper_RunOnceSkipsEmptyStore(t *testing.T) {
	store := &countingStore{Store: NewStore()}
	sw := NewSweeper(store, WithSweepIdle(time.Hour), WithSweepBusy(time.Minute))

	evicted, next := sw.RunOnce()
	assert.Equal(t, 0, evicted)
	assert.Equal(t, time.Hour, next)
	assert.Equal(t, 0, store.Sweeps(), "empty store must not be scanned")
}

func TestSweeper_RunOnceReschedulesFasterOnChurn(t *testing.T) {
	clock := &fakeClock{now: t0}
	store := NewStore()
	p := domain.MustPolicy("general", 5, time.Minute, 0)
	for _, k := range []domain.ClientKey{"a", "b", "c"} {
		store.Evaluate(k, p, t0)
	}

	sw := NewSweeper(store,
		WithSweepClock(clock),
		WithSweepIdle(time.Hour),
		WithSweepBusy(time.Second),
		WithSweepChurn(3),
	)

	evicted, next := sw.RunOnce()
	assert.Equal(t, 0, evicted)
	assert.Equal(t, time.Hour, next, "nothing expired yet")

	clock.Advance(2 * time.Minute)
	evicted, next = sw.RunOnce()
	assert.Equal(t, 3, evicted)
	assert.Equal(t, time.Second, next, "high churn should shorten the interval")
	assert.Equal(t, 0, store.Len())
}

func TestSweeper_BackgroundLoopEvicts(t *testing.T) {
	clock := &fakeClock{now: t0}
	store := NewStore()
	p := domain.MustPolicy("general", 5, time.Minute, 0)
	store.Evaluate("gone", p, t0)
	store.Evaluate("alive", domain.MustPolicy("long", 5, time.Hour, 0), t0)

	sw := NewSweeper(store,
		WithSweepClock(clock),
		WithSweepIdle(5*time.Millisecond),
		WithSweepBusy(5*time.Millisecond),
	)
	clock.Advance(2 * time.Minute)

	sw.Start(context.Background())
	defer sw.Stop()

	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSweeper_StopIsIdempotentAndStartIgnoredWhileRunning(t *testing.T) {
	store := &countingStore{Store: NewStore()}
	sw := NewSweeper(store, WithSweepIdle(time.Hour))

	sw.Start(context.Background())
	sw.Start(context.Background())
	sw.Stop()
	sw.Stop()

	// depois do Stop pode iniciar de novo
	sw.Start(context.Background())
	sw.Stop()
}

func TestSweeper_StopsWhenContextCancelled(t *testing.T) {
	store := NewStore()
	sw := NewSweeper(store, WithSweepIdle(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	sw.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		sw.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop after context cancel")
	}
}

func TestSweeper_CanRestartAfterContextCancel(t *testing.T) {
	store := &countingStore{Store: NewStore()}
	store.Evaluate("a", domain.MustPolicy("long", 5, time.Hour, 0), t0)
	sw := NewSweeper(store, WithSweepIdle(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	sw.Start(ctx)
	cancel()

	require.Eventually(t, func() bool {
		sw.mu.Lock()
		defer sw.mu.Unlock()
		return sw.done == nil
	}, time.Second, time.Millisecond, "loop must release its state when ctx ends")

	sw.idle = 5 * time.Millisecond
	sw.Start(context.Background())
	defer sw.Stop()

	require.Eventually(t, func() bool { return store.Sweeps() > 0 }, time.Second, 5*time.Millisecond)
}

// overlapStore registra quantas varreduras rodaram ao mesmo tempo.
type overlapStore struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
}

func (o *overlapStore) Len() int { return 1 }

func (o *overlapStore) Sweep(time.Time) int {
	o.mu.Lock()
	o.inFlight++
	if o.inFlight > o.maxSeen {
		o.maxSeen = o.inFlight
	}
	o.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	o.mu.Lock()
	o.inFlight--
	o.mu.Unlock()
	return 0
}

func TestSweeper_RunOnceNeverOverlaps(t *testing.T) {
	store := &overlapStore{}
	sw := NewSweeper(store, WithSweepIdle(time.Millisecond))
	sw.Start(context.Background())
	defer sw.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sw.RunOnce()
		}()
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.maxSeen)
}

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errUnit = errors.New("unit failed")

// unitResult implements Result
type unitResult struct {
	id  int
	err error
}

func (r *unitResult) GetError() error {
	return r.err
}

// unitJob implements Job and simulates one call to a slow service
type unitJob struct {
	id      int
	latency time.Duration
	fail    bool
	calls   *atomic.Int32
	onStart func()
	onEnd   func()
}

func (j *unitJob) Execute(ctx context.Context) Result {
	if j.calls != nil {
		j.calls.Add(1)
	}
	if j.onStart != nil {
		j.onStart()
	}
	if j.onEnd != nil {
		defer j.onEnd()
	}
	if j.latency > 0 {
		select {
		case <-time.After(j.latency):
		case <-ctx.Done():
			return &unitResult{id: j.id, err: ctx.Err()}
		}
	}
	if j.fail {
		return &unitResult{id: j.id, err: errUnit}
	}
	return &unitResult{id: j.id}
}

func TestNewPool_WorkerFloor(t *testing.T) {
	for _, tc := range []struct{ in, want int }{{5, 5}, {0, 1}, {-3, 1}} {
		if got := NewPool(context.Background(), tc.in).workers; got != tc.want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", tc.in, tc.want, got)
		}
	}
}

func TestPool_RunsEveryUnitOnce(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()

	var calls atomic.Int32
	for i := 0; i < 12; i++ {
		pool.Submit(&unitJob{id: i, calls: &calls})
	}
	results := pool.Wait()

	if len(results) != 12 {
		t.Fatalf("expected 12 results, got %d", len(results))
	}
	if calls.Load() != 12 {
		t.Errorf("expected 12 executions, got %d", calls.Load())
	}

	seen := make(map[int]bool)
	for _, r := range results {
		id := r.(*unitResult).id
		if seen[id] {
			t.Errorf("unit %d reported twice", id)
		}
		seen[id] = true
	}
}

func TestPool_BacklogLargerThanBuffers(t *testing.T) {
	// Results are submitted far faster than Wait is reached
	pool := NewPool(context.Background(), 2)
	pool.Start()

	done := make(chan []Result)
	go func() {
		for i := 0; i < 500; i++ {
			pool.Submit(&unitJob{id: i})
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != 500 {
			t.Errorf("expected 500 results, got %d", len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool deadlocked")
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const workers = 4
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	for i := 0; i < 40; i++ {
		pool.Submit(&unitJob{
			id:      i,
			latency: 5 * time.Millisecond,
			onStart: func() {
				n := inFlight.Add(1)
				mu.Lock()
				if n > peak.Load() {
					peak.Store(n)
				}
				mu.Unlock()
			},
			onEnd: func() { inFlight.Add(-1) },
		})
	}
	pool.Wait()

	if peak.Load() > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", peak.Load(), workers)
	}
	if inFlight.Load() != 0 {
		t.Errorf("expected no units in flight after Wait, got %d", inFlight.Load())
	}
}

func TestPool_FailedUnitsReported(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(&unitJob{id: 1, fail: true})
	pool.Submit(&unitJob{id: 2})
	pool.Submit(&unitJob{id: 3, fail: true})

	failed := 0
	for _, res := range pool.Wait() {
		if errors.Is(res.GetError(), errUnit) {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("expected 2 failed units, got %d", failed)
	}
}

func TestPool_OnResultSingleGoroutine(t *testing.T) {
	pool := NewPool(context.Background(), 4)
	// Unsynchronized counter: the race detector flags concurrent callbacks
	var seen int
	pool.OnResult(func(Result) { seen++ })
	pool.Start()

	for i := 0; i < 20; i++ {
		pool.Submit(&unitJob{id: i})
	}
	pool.Wait()

	if seen != 20 {
		t.Errorf("expected 20 callbacks, got %d", seen)
	}
}

func TestPool_ParentCancelStopsSubmit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()
	cancel()

	if pool.Submit(&unitJob{id: 1}) {
		t.Error("expected Submit to refuse work after cancellation")
	}
	pool.Wait()
}

func TestPool_CancelInterruptsSlowUnit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&unitJob{id: 1, latency: time.Minute, onStart: func() { close(started) }})
	<-started
	cancel()

	done := make(chan []Result)
	go func() { done <- pool.Wait() }()

	select {
	case results := <-done:
		if len(results) != 1 || !errors.Is(results[0].GetError(), context.Canceled) {
			t.Errorf("expected one cancelled result, got %v", results)
		}
	case <-time.After(time.Second):
		t.Fatal("cancellation did not interrupt the running unit")
	}

	if again := pool.Wait(); len(again) != 1 {
		t.Errorf("expected repeated Wait to return the same results, got %d", len(again))
	}
}

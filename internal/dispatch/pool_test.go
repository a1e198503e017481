package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_StartStop(t *testing.T) {
	p := NewPool()

	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !p.IsRunning() {
		t.Error("expected pool to be running after Start()")
	}
	if err := p.Start(); err != ErrAlreadyRunning {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if p.IsRunning() {
		t.Error("expected pool to not be running after Stop()")
	}
	if err := p.Stop(ctx); err != ErrNotRunning {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestPool_SubmitNotRunning(t *testing.T) {
	p := NewPool()
	if err := p.Submit(func() {}); err != ErrNotRunning {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestPool_SubmitRunsAll(t *testing.T) {
	p := NewPool(WithQueueSize(100), WithWorkerCount(4))
	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		if err := p.Schedule(func() {
			defer wg.Done()
			count.Add(1)
		}); err != nil {
			t.Fatalf("Schedule() failed: %v", err)
		}
	}
	wg.Wait()

	if got := count.Load(); got != 50 {
		t.Errorf("ran %d tasks, want 50", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	stats := p.Stats()
	if stats.Enqueued != 50 || stats.Processed != 50 {
		t.Errorf("stats = %+v, want 50 enqueued and processed", stats)
	}
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(WithQueueSize(1), WithWorkerCount(1))
	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	release := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	<-started

	if err := p.Submit(func() {}); err != nil {
		t.Fatalf("Submit() into free slot failed: %v", err)
	}
	if err := p.Submit(func() {}); err != ErrQueueFull {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if got := p.QueueDepth(); got != 1 {
		t.Errorf("QueueDepth() = %d, want 1", got)
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if got := p.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestPool_PanicRecovery(t *testing.T) {
	var recovered atomic.Value
	p := NewPool(WithWorkerCount(1), WithPanicHandler(func(v any, stack []byte) {
		recovered.Store(v)
	}))
	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	done := make(chan struct{})
	_ = p.Submit(func() { panic("boom") })
	_ = p.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive the panic")
	}
	if got := recovered.Load(); got != "boom" {
		t.Errorf("panic handler got %v, want boom", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.Stop(ctx)
	if got := p.Stats().Panicked; got != 1 {
		t.Errorf("Panicked = %d, want 1", got)
	}
}

func TestPool_StopTimeout(t *testing.T) {
	p := NewPool(WithWorkerCount(1))
	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	release := make(chan struct{})
	defer close(release)
	_ = p.Submit(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Stop(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

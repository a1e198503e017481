package dispatch

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// PanicHandler is called when a task panics.
// It receives the panic value and the stack trace.
type PanicHandler func(panicValue any, stack []byte)

// defaultPanicHandler silently recovers.
func defaultPanicHandler(any, []byte) {}

// Pool executes tasks on a fixed set of worker goroutines fed by a bounded
// queue.
type Pool struct {
	// Configuration
	queueSize   int
	workerCount int

	// State
	mu      sync.RWMutex // protects queue creation/destruction
	queue   chan func()
	running atomic.Bool
	wg      sync.WaitGroup

	panicHandler PanicHandler

	// Stats
	enqueued    atomic.Uint64
	processed   atomic.Uint64
	panicked    atomic.Uint64
	dropped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithQueueSize sets the task queue size.
func WithQueueSize(size int) Option {
	return func(p *Pool) {
		if size > 0 {
			p.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(p *Pool) {
		if count > 0 {
			p.workerCount = count
		}
	}
}

// WithPanicHandler sets the panic handler.
func WithPanicHandler(h PanicHandler) Option {
	return func(p *Pool) {
		if h != nil {
			p.panicHandler = h
		}
	}
}

// NewPool creates a stopped pool.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		queueSize:    256,
		workerCount:  2,
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start starts the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return ErrAlreadyRunning
	}

	p.queue = make(chan func(), p.queueSize)
	p.running.Store(true)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(p.queue)
	}
	return nil
}

// Stop stops accepting tasks and waits for queued tasks to finish or until
// ctx is done.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.running.Store(false)
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues fn for execution. It never blocks: a full queue yields
// ErrQueueFull and a stopped pool ErrNotRunning.
func (p *Pool) Submit(fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running.Load() {
		return ErrNotRunning
	}

	select {
	case p.queue <- fn:
		p.enqueued.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		return ErrQueueFull
	}
}

// Schedule is Submit under the name the highlighter expects.
func (p *Pool) Schedule(fn func()) error {
	return p.Submit(fn)
}

func (p *Pool) worker(queue <-chan func()) {
	defer p.wg.Done()
	for fn := range queue {
		p.execute(fn)
	}
}

func (p *Pool) execute(fn func()) {
	p.processed.Add(1)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			stack := debug.Stack()
			func() {
				defer func() { _ = recover() }()
				p.panicHandler(r, stack)
			}()
		}
		p.totalTimeNs.Add(time.Since(start).Nanoseconds())
	}()
	fn()
}

// QueueDepth returns the number of queued tasks, 0 when stopped.
func (p *Pool) QueueDepth() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running.Load() {
		return 0
	}
	return len(p.queue)
}

// IsRunning returns true if the pool is running.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// Stats returns pool statistics.
func (p *Pool) Stats() Stats {
	processed := p.processed.Load()
	totalNs := p.totalTimeNs.Load()

	var avgNs int64
	if processed > 0 {
		avgNs = totalNs / int64(processed)
	}

	return Stats{
		Enqueued:      p.enqueued.Load(),
		Processed:     processed,
		Panicked:      p.panicked.Load(),
		Dropped:       p.dropped.Load(),
		QueueDepth:    p.QueueDepth(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// Stats contains pool statistics.
type Stats struct {
	// Enqueued is the total number of tasks added to the queue.
	Enqueued uint64

	// Processed is the number of tasks that have been run.
	Processed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// Dropped is the number of tasks rejected because the queue was full.
	Dropped uint64

	// QueueDepth is the current number of tasks waiting in the queue.
	QueueDepth int

	// TotalDuration is the cumulative time spent running tasks.
	TotalDuration time.Duration

	// AvgDuration is the average task run time.
	AvgDuration time.Duration
}

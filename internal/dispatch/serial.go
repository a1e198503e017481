package dispatch

import (
	"runtime/debug"
	"sync"
)

// Serial runs posted functions one at a time, in posting order, on a single
// goroutine. It has an unbounded queue so posting never blocks.
type Serial struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	stopped bool
	done    chan struct{}

	panicHandler PanicHandler
}

// NewSerial creates and starts a serial delivery context.
func NewSerial(opts ...SerialOption) *Serial {
	s := &Serial{
		done:         make(chan struct{}),
		panicHandler: defaultPanicHandler,
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

// SerialOption configures a Serial.
type SerialOption func(*Serial)

// WithSerialPanicHandler sets the panic handler.
func WithSerialPanicHandler(h PanicHandler) SerialOption {
	return func(s *Serial) {
		if h != nil {
			s.panicHandler = h
		}
	}
}

// Post queues fn. Returns false if the context has been stopped, in which
// case fn will never run.
func (s *Serial) Post(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.pending = append(s.pending, fn)
	s.cond.Signal()
	return true
}

// Stop refuses new posts, runs everything already posted and waits for the
// goroutine to exit. Calling Stop from a posted function deadlocks.
func (s *Serial) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		s.cond.Signal()
	}
	s.mu.Unlock()
	<-s.done
}

// Stopped reports whether Stop has been called.
func (s *Serial) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Sync blocks until every function posted before it has run. Returns false
// if the context was already stopped.
func (s *Serial) Sync() bool {
	ch := make(chan struct{})
	if !s.Post(func() { close(ch) }) {
		return false
	}
	<-ch
	return true
}

func (s *Serial) loop() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, fn := range batch {
			s.run(fn)
		}
	}
}

func (s *Serial) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			func() {
				defer func() { _ = recover() }()
				s.panicHandler(r, stack)
			}()
		}
	}()
	fn()
}

package highlight

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/capstyle/internal/dispatch"
	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/font"
	"github.com/dshills/capstyle/internal/renderer/spell"
	"github.com/dshills/capstyle/internal/renderer/style"
	"github.com/dshills/capstyle/internal/renderer/styled"
	"github.com/dshills/capstyle/internal/renderer/theme"
)

// CaptureSource produces captures for a byte window. Captures may be called
// from a worker goroutine.
type CaptureSource interface {
	// CanHighlight is false when no grammar or tree is available.
	CanHighlight() bool

	// Captures returns the captures overlapping r, in priority order.
	Captures(r core.ByteRange) []core.Capture
}

// Scheduler runs background work.
type Scheduler interface {
	Schedule(fn func()) error
}

// Deliverer runs functions one at a time on the context that owns sinks.
type Deliverer interface {
	// Post queues fn, returning false if fn will never run.
	Post(fn func()) bool
}

// Logger receives debug output about pass scheduling.
type Logger interface {
	Debug(msg string, args ...any)
}

// Request is one window to highlight into a sink.
type Request struct {
	// Range is the window, in the capture source's coordinates.
	Range core.ByteRange

	// Sink receives the styles, in window-local coordinates. It is only
	// touched from the delivery context.
	Sink styled.Buffer
}

// Highlighter runs highlight passes.
type Highlighter struct {
	fonts     font.Provider
	speller   spell.Oracle
	scheduler Scheduler
	delivery  Deliverer
	logger    Logger

	// ownDelivery is stopped by Close.
	ownDelivery *dispatch.Serial

	mu       sync.Mutex
	source   CaptureSource
	resolver theme.Resolver
	current  *unit
	closed   bool
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithFonts sets the font provider used to find trait variants.
func WithFonts(p font.Provider) Option {
	return func(h *Highlighter) {
		h.fonts = p
	}
}

// WithSpellOracle enables the spell pass. It only runs when the theme's
// misspelled attributes are non-empty.
func WithSpellOracle(o spell.Oracle) Option {
	return func(h *Highlighter) {
		h.speller = o
	}
}

// WithScheduler sets where capture fetching runs. The default starts a
// goroutine per pass.
func WithScheduler(s Scheduler) Option {
	return func(h *Highlighter) {
		h.scheduler = s
	}
}

// WithDelivery sets the delivery context. The default is a private
// dispatch.Serial stopped by Close.
func WithDelivery(d Deliverer) Option {
	return func(h *Highlighter) {
		h.delivery = d
	}
}

// WithLogger sets the debug logger.
func WithLogger(l Logger) Option {
	return func(h *Highlighter) {
		h.logger = l
	}
}

// New creates a highlighter reading captures from source and styles from
// resolver. Either may be nil, which yields passes that stage nothing.
func New(source CaptureSource, resolver theme.Resolver, opts ...Option) *Highlighter {
	h := &Highlighter{
		source:   source,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.scheduler == nil {
		h.scheduler = goScheduler{}
	}
	if h.delivery == nil {
		h.ownDelivery = dispatch.NewSerial()
		h.delivery = h.ownDelivery
	}
	if h.logger == nil {
		h.logger = nopLogger{}
	}
	return h
}

// CanHighlight reports whether the capture source can produce captures.
func (h *Highlighter) CanHighlight() bool {
	h.mu.Lock()
	src := h.source
	h.mu.Unlock()
	return src != nil && src.CanHighlight()
}

// SetSource replaces the capture source. Passes already scheduled keep the
// source they started with.
func (h *Highlighter) SetSource(src CaptureSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = src
}

// SetTheme replaces the theme. Passes already scheduled keep the theme they
// started with.
func (h *Highlighter) SetTheme(resolver theme.Resolver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resolver = resolver
}

// Theme returns the current theme.
func (h *Highlighter) Theme() theme.Resolver {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolver
}

// HighlightSynchronously runs a whole pass on the calling goroutine.
func (h *Highlighter) HighlightSynchronously(req Request) {
	h.mu.Lock()
	src, resolver := h.source, h.resolver
	h.mu.Unlock()

	tokens := BuildTokens(fetch(src, req.Range), req.Range, resolver)
	h.apply(resolver, tokens, req.Sink)
}

// HighlightAsync schedules a pass and cancels the previous one. completion
// is called exactly once on the delivery context with nil, ErrCancelled,
// ErrDeallocated or ErrFailed. When the delivery context is gone it is
// called on whichever goroutine notices.
func (h *Highlighter) HighlightAsync(req Request, completion func(error)) {
	u := &unit{
		id:         uuid.New(),
		req:        req,
		completion: completion,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.logger.Debug("highlight %s: rejected, highlighter closed", u.id)
		h.complete(u, ErrDeallocated)
		return
	}
	if prev := h.current; prev != nil {
		prev.cancelled.Store(true)
		h.logger.Debug("highlight %s: superseded by %s", prev.id, u.id)
	}
	h.current = u
	u.source, u.resolver = h.source, h.resolver
	h.mu.Unlock()

	h.logger.Debug("highlight %s: scheduled %s", u.id, req.Range)
	if err := h.scheduler.Schedule(func() { h.run(u) }); err != nil {
		h.release(u)
		h.logger.Debug("highlight %s: schedule failed: %v", u.id, err)
		u.finish(ErrDeallocated)
	}
}

// Cancel cancels the outstanding pass, if any.
func (h *Highlighter) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		h.current.cancelled.Store(true)
		h.logger.Debug("highlight %s: cancelled", h.current.id)
		h.current = nil
	}
}

// Close releases the highlighter. Outstanding and later passes report
// ErrDeallocated. A private delivery context is drained and stopped.
// Close must not be called from the delivery context.
func (h *Highlighter) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	if h.current != nil {
		h.current.cancelled.Store(true)
		h.current = nil
	}
	h.mu.Unlock()

	if h.ownDelivery != nil {
		h.ownDelivery.Stop()
	}
}

// run is the background phase. A panic while fetching captures or
// building tokens completes u with ErrFailed.
func (h *Highlighter) run(u *unit) {
	defer func() {
		if r := recover(); r != nil {
			h.release(u)
			h.complete(u, fmt.Errorf("%w: %v", ErrFailed, r))
		}
	}()

	if err := h.checkpoint(u); err != nil {
		h.complete(u, err)
		return
	}

	tokens := BuildTokens(fetch(u.source, u.req.Range), u.req.Range, u.resolver)

	if err := h.checkpoint(u); err != nil {
		h.complete(u, err)
		return
	}

	ok := h.delivery.Post(func() {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("%w: %v", ErrFailed, r)
				h.logger.Debug("highlight %s: %v", u.id, err)
				u.finish(err)
			}
		}()
		if err := h.commit(u); err != nil {
			h.logger.Debug("highlight %s: dropped at delivery: %v", u.id, err)
			u.finish(err)
			return
		}
		h.apply(u.resolver, tokens, u.req.Sink)
		h.logger.Debug("highlight %s: applied %d tokens", u.id, len(tokens))
		u.finish(nil)
	})
	if !ok {
		h.release(u)
		h.logger.Debug("highlight %s: delivery context gone", u.id)
		u.finish(ErrDeallocated)
	}
}

// checkpoint reports why u must stop, if it must.
func (h *Highlighter) checkpoint(u *unit) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stateLocked(u)
}

// commit is the final checkpoint. On success u stops being the outstanding
// pass, so a request arriving afterwards no longer cancels it.
func (h *Highlighter) commit(u *unit) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.stateLocked(u); err != nil {
		return err
	}
	if h.current == u {
		h.current = nil
	}
	return nil
}

func (h *Highlighter) stateLocked(u *unit) error {
	if h.closed {
		return ErrDeallocated
	}
	if u.cancelled.Load() {
		return ErrCancelled
	}
	return nil
}

// release forgets u if it is still the outstanding pass.
func (h *Highlighter) release(u *unit) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == u {
		h.current = nil
	}
}

// complete delivers err, inline when the delivery context is gone.
func (h *Highlighter) complete(u *unit, err error) {
	h.logger.Debug("highlight %s: %v", u.id, err)
	if !h.delivery.Post(func() { u.finish(err) }) {
		u.finish(err)
	}
}

// apply composites tokens and runs the spell pass in one batch edit.
func (h *Highlighter) apply(resolver theme.Resolver, tokens []core.Token, sink styled.Buffer) {
	if sink == nil {
		return
	}
	sink.BeginEditing()
	defer sink.EndEditing()

	style.NewCompositor(resolver, h.fonts).Apply(tokens, sink)
	// Misspellings are staged after the tokens, so their attributes win
	// over token styles on the same keys.
	if h.speller != nil && resolver != nil {
		spell.NewPass(h.speller).Apply(sink, resolver.MisspelledTextAttributes())
	}
}

func fetch(src CaptureSource, r core.ByteRange) []core.Capture {
	if src == nil || !src.CanHighlight() {
		return nil
	}
	return src.Captures(r)
}

// unit is one asynchronous pass.
type unit struct {
	id         uuid.UUID
	req        Request
	completion func(error)

	// Snapshots taken when the pass was scheduled.
	source   CaptureSource
	resolver theme.Resolver

	cancelled atomic.Bool
	finished  atomic.Bool
}

// finish calls the completion once.
func (u *unit) finish(err error) {
	if !u.finished.CompareAndSwap(false, true) {
		return
	}
	if u.completion != nil {
		u.completion(err)
	}
}

type goScheduler struct{}

func (goScheduler) Schedule(fn func()) error {
	go fn()
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

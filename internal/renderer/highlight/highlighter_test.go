package highlight

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/capstyle/internal/dispatch"
	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/spell"
	"github.com/dshills/capstyle/internal/renderer/styled"
	"github.com/dshills/capstyle/internal/renderer/theme"
)

const sampleLine = "let x = 1 // comment"

// staticSource serves a fixed capture list.
type staticSource struct {
	captures []core.Capture
	disabled bool
	calls    atomic.Int32
}

func newSampleSource() *staticSource {
	return &staticSource{captures: []core.Capture{
		capture("keyword", 0, 3),
		capture("comment", 10, 20),
	}}
}

func (s *staticSource) CanHighlight() bool { return !s.disabled }

func (s *staticSource) Captures(r core.ByteRange) []core.Capture {
	s.calls.Add(1)
	var out []core.Capture
	for _, c := range s.captures {
		if c.Range.Overlaps(r) {
			out = append(out, c)
		}
	}
	return out
}

// manualScheduler queues work until run is called.
type manualScheduler struct {
	mu    sync.Mutex
	queue []func()
	err   error
}

func (s *manualScheduler) Schedule(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.queue = append(s.queue, fn)
	return nil
}

func (s *manualScheduler) run() {
	s.mu.Lock()
	queue := s.queue
	s.queue = nil
	s.mu.Unlock()
	for _, fn := range queue {
		fn()
	}
}

// manualDelivery queues deliveries until drain is called.
type manualDelivery struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
}

func (d *manualDelivery) Post(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	d.queue = append(d.queue, fn)
	return true
}

func (d *manualDelivery) drain() {
	for {
		d.mu.Lock()
		queue := d.queue
		d.queue = nil
		d.mu.Unlock()
		if len(queue) == 0 {
			return
		}
		for _, fn := range queue {
			fn()
		}
	}
}

// result records completions.
type result struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *result) complete(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.err = err
}

func (r *result) get() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.err
}

func expectResult(t *testing.T, name string, r *result, want error) {
	t.Helper()
	calls, err := r.get()
	if calls != 1 {
		t.Fatalf("%s: completion called %d times, want 1", name, calls)
	}
	if !errors.Is(err, want) {
		t.Errorf("%s: completion error = %v, want %v", name, err, want)
	}
}

func newManual(src CaptureSource, th theme.Resolver, opts ...Option) (*Highlighter, *manualScheduler, *manualDelivery) {
	sched := &manualScheduler{}
	deliv := &manualDelivery{}
	opts = append([]Option{WithScheduler(sched), WithDelivery(deliv)}, opts...)
	return New(src, th, opts...), sched, deliv
}

func sampleRequest(sink *styled.Text) Request {
	return Request{Range: core.NewByteRange(0, len(sampleLine)), Sink: sink}
}

func TestHighlighter_EndToEnd(t *testing.T) {
	th := testTheme()
	h := New(newSampleSource(), th)
	defer h.Close()

	sink := styled.NewText(sampleLine)
	h.HighlightSynchronously(sampleRequest(sink))

	tests := []struct {
		name   string
		locs   []int
		color  core.Color
		traits core.FontTraits
	}{
		{"keyword", []int{0, 1, 2}, core.ColorBlue, core.TraitBold},
		{"comment", []int{10, 15, 19}, core.ColorGray, core.TraitItalic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, loc := range tt.locs {
				fg, _ := sink.Attribute(core.KeyForeground, loc)
				if c, _ := fg.(core.Color); !c.Equals(tt.color) {
					t.Errorf("foreground at %d = %v, want %v", loc, fg, tt.color)
				}
				f, _ := sink.Attribute(core.KeyFont, loc)
				want := th.DefaultFont().WithTraits(tt.traits)
				if f != want {
					t.Errorf("font at %d = %v, want %v", loc, f, want)
				}
			}
		})
	}

	for loc := 3; loc < 10; loc++ {
		if attrs := sink.AttributesAt(loc); !attrs.IsEmpty() {
			t.Errorf("attributes at %d = %v, want none", loc, attrs)
		}
	}
}

func TestHighlighter_SynchronousIdempotent(t *testing.T) {
	h := New(newSampleSource(), testTheme())
	defer h.Close()

	first := styled.NewText(sampleLine)
	h.HighlightSynchronously(sampleRequest(first))

	second := styled.NewText(sampleLine)
	h.HighlightSynchronously(sampleRequest(second))

	if !first.Equal(second) {
		t.Errorf("runs differ:\n%v\n%v", first.Runs(), second.Runs())
	}

	// Re-running over a reset sink gives the same table again.
	first.Reset()
	h.HighlightSynchronously(sampleRequest(first))
	if !first.Equal(second) {
		t.Error("highlighting a reset sink changed the result")
	}
}

func TestHighlighter_SynchronousWithoutSource(t *testing.T) {
	for _, src := range []CaptureSource{nil, &staticSource{disabled: true}} {
		h := New(src, testTheme())
		sink := styled.NewText(sampleLine)
		h.HighlightSynchronously(sampleRequest(sink))
		if runs := sink.StyledRuns(); len(runs) != 0 {
			t.Errorf("source %v staged %v", src, runs)
		}
		if h.CanHighlight() {
			t.Errorf("CanHighlight() = true for %v", src)
		}
		h.Close()
	}
}

func TestHighlighter_SingleFlight(t *testing.T) {
	red := testTheme()
	red.Set("keyword", theme.NewCaptureStyle(core.ColorRed))

	h, sched, deliv := newManual(newSampleSource(), red)
	defer h.Close()

	sink := styled.NewText(sampleLine)
	var a, b result
	h.HighlightAsync(sampleRequest(sink), a.complete)
	h.SetTheme(testTheme())
	h.HighlightAsync(sampleRequest(sink), b.complete)

	sched.run()
	deliv.drain()

	expectResult(t, "A", &a, ErrCancelled)
	expectResult(t, "B", &b, nil)

	if got := sink.Edits(); got != 1 {
		t.Errorf("sink modified %d times, want 1", got)
	}
	fg, _ := sink.Attribute(core.KeyForeground, 0)
	if c, _ := fg.(core.Color); !c.Equals(core.ColorBlue) {
		t.Errorf("foreground = %v, want B's blue", fg)
	}
}

func TestHighlighter_SupersededPassNeverMutates(t *testing.T) {
	h, sched, deliv := newManual(newSampleSource(), testTheme())
	defer h.Close()

	sinkA := styled.NewText(sampleLine)
	sinkB := styled.NewText(sampleLine)
	var a, b result

	// A finishes its background phase before B arrives.
	h.HighlightAsync(sampleRequest(sinkA), a.complete)
	sched.run()
	h.HighlightAsync(sampleRequest(sinkB), b.complete)
	sched.run()
	deliv.drain()

	expectResult(t, "A", &a, ErrCancelled)
	expectResult(t, "B", &b, nil)
	if sinkA.Edits() != 0 {
		t.Errorf("cancelled pass modified its sink: %v", sinkA.StyledRuns())
	}
	if len(sinkB.StyledRuns()) == 0 {
		t.Error("winning pass staged nothing")
	}
}

func TestHighlighter_CompletedPassIsNotCancelled(t *testing.T) {
	h, sched, deliv := newManual(newSampleSource(), testTheme())
	defer h.Close()

	var a, b result
	h.HighlightAsync(sampleRequest(styled.NewText(sampleLine)), a.complete)
	sched.run()
	deliv.drain()
	h.HighlightAsync(sampleRequest(styled.NewText(sampleLine)), b.complete)
	sched.run()
	deliv.drain()

	expectResult(t, "A", &a, nil)
	expectResult(t, "B", &b, nil)
}

func TestHighlighter_Cancel(t *testing.T) {
	tests := []struct {
		name string
		// cancelAfter is how many phases run before Cancel: 0 queued,
		// 1 background done, 2 delivered.
		cancelAfter int
		want        error
		mutated     bool
	}{
		{"before background", 0, ErrCancelled, false},
		{"before delivery", 1, ErrCancelled, false},
		{"after delivery", 2, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSampleSource()
			h, sched, deliv := newManual(src, testTheme())
			defer h.Close()

			sink := styled.NewText(sampleLine)
			var r result
			h.HighlightAsync(sampleRequest(sink), r.complete)

			phases := []func(){sched.run, deliv.drain}
			for _, phase := range phases[:tt.cancelAfter] {
				phase()
			}
			h.Cancel()
			h.Cancel()
			for _, phase := range phases[tt.cancelAfter:] {
				phase()
			}

			expectResult(t, tt.name, &r, tt.want)
			if got := sink.Edits() > 0; got != tt.mutated {
				t.Errorf("sink mutated = %v, want %v", got, tt.mutated)
			}
			if tt.cancelAfter == 0 && src.calls.Load() != 0 {
				t.Error("captures fetched for a pass cancelled before it started")
			}
		})
	}
}

func TestHighlighter_CancelWithoutOutstanding(t *testing.T) {
	h := New(newSampleSource(), testTheme())
	defer h.Close()
	h.Cancel()
	h.Cancel()
}

func TestHighlighter_Close(t *testing.T) {
	h, sched, deliv := newManual(newSampleSource(), testTheme())

	sink := styled.NewText(sampleLine)
	var a, b result
	h.HighlightAsync(sampleRequest(sink), a.complete)
	h.Close()
	h.Close()
	h.HighlightAsync(sampleRequest(sink), b.complete)

	sched.run()
	deliv.drain()

	expectResult(t, "outstanding", &a, ErrDeallocated)
	expectResult(t, "after close", &b, ErrDeallocated)
	if sink.Edits() != 0 {
		t.Error("closed highlighter modified the sink")
	}
}

func TestHighlighter_CloseBeforeDelivery(t *testing.T) {
	h, sched, deliv := newManual(newSampleSource(), testTheme())

	sink := styled.NewText(sampleLine)
	var r result
	h.HighlightAsync(sampleRequest(sink), r.complete)
	sched.run()
	h.Close()
	deliv.drain()

	expectResult(t, "pass", &r, ErrDeallocated)
	if sink.Edits() != 0 {
		t.Error("closed highlighter modified the sink")
	}
}

func TestHighlighter_SchedulerStopped(t *testing.T) {
	pool := dispatch.NewPool()
	h := New(newSampleSource(), testTheme(), WithScheduler(pool))
	defer h.Close()

	var r result
	h.HighlightAsync(sampleRequest(styled.NewText(sampleLine)), r.complete)

	// Delivered inline, before HighlightAsync returns.
	expectResult(t, "pass", &r, ErrDeallocated)
}

func TestHighlighter_DeliveryStopped(t *testing.T) {
	h, sched, deliv := newManual(newSampleSource(), testTheme())
	defer h.Close()

	var r result
	h.HighlightAsync(sampleRequest(styled.NewText(sampleLine)), r.complete)
	deliv.mu.Lock()
	deliv.stopped = true
	deliv.mu.Unlock()
	sched.run()

	expectResult(t, "pass", &r, ErrDeallocated)
}

// panickingSource fails every capture fetch.
type panickingSource struct{}

func (panickingSource) CanHighlight() bool { return true }

func (panickingSource) Captures(core.ByteRange) []core.Capture {
	panic("grammar exploded")
}

// panickingSink rejects every style staged on it.
type panickingSink struct {
	text *styled.Text
}

func (s *panickingSink) Text() string { return s.text.Text() }
func (s *panickingSink) BeginEditing() { s.text.BeginEditing() }
func (s *panickingSink) EndEditing() { s.text.EndEditing() }

func (s *panickingSink) Attribute(key core.AttributeKey, loc int) (any, bool) {
	return s.text.Attribute(key, loc)
}

func (s *panickingSink) AddAttributes(core.AttributeSet, core.ByteRange) {
	panic("sink rejected styles")
}

func TestHighlighter_SourcePanic(t *testing.T) {
	pool := dispatch.NewPool()
	if err := pool.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
	}()
	serial := dispatch.NewSerial()
	defer serial.Stop()

	h := New(panickingSource{}, testTheme(), WithScheduler(pool), WithDelivery(serial))
	defer h.Close()

	sink := styled.NewText(sampleLine)
	done := make(chan error, 1)
	wait := func() error {
		t.Helper()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("completion never arrived")
			return nil
		}
	}

	h.HighlightAsync(sampleRequest(sink), func(err error) { done <- err })
	if err := wait(); !errors.Is(err, ErrFailed) {
		t.Fatalf("completion error = %v, want ErrFailed", err)
	}
	if len(sink.StyledRuns()) != 0 {
		t.Error("failed pass staged styles")
	}

	// The failed pass is no longer outstanding.
	h.SetSource(newSampleSource())
	h.HighlightAsync(sampleRequest(sink), func(err error) { done <- err })
	if err := wait(); err != nil {
		t.Fatalf("pass after failure: %v", err)
	}
	if len(sink.StyledRuns()) == 0 {
		t.Error("pass after failure staged nothing")
	}
}

func TestHighlighter_SinkPanic(t *testing.T) {
	h, sched, deliv := newManual(newSampleSource(), testTheme())
	defer h.Close()

	text := styled.NewText(sampleLine)
	var r result
	req := Request{Range: core.NewByteRange(0, len(sampleLine)), Sink: &panickingSink{text: text}}
	h.HighlightAsync(req, r.complete)
	sched.run()
	deliv.drain()

	expectResult(t, "pass", &r, ErrFailed)
	if text.Editing() {
		t.Error("batch edit left open after the panic")
	}
}

func TestHighlighter_ThemeSnapshot(t *testing.T) {
	h, sched, deliv := newManual(newSampleSource(), testTheme())
	defer h.Close()

	sink := styled.NewText(sampleLine)
	var r result
	h.HighlightAsync(sampleRequest(sink), r.complete)

	green := testTheme()
	green.Set("keyword", theme.NewCaptureStyle(core.ColorGreen))
	h.SetTheme(green)

	sched.run()
	deliv.drain()

	expectResult(t, "pass", &r, nil)
	fg, _ := sink.Attribute(core.KeyForeground, 0)
	if c, _ := fg.(core.Color); !c.Equals(core.ColorBlue) {
		t.Errorf("foreground = %v, want the theme at schedule time", fg)
	}
	if h.Theme() != green {
		t.Error("Theme() did not return the new theme")
	}
}

func TestHighlighter_SpellPassRunsLast(t *testing.T) {
	th := testTheme()
	th.Set("comment", theme.NewCaptureStyle(core.ColorGray).Underline())
	th.Misspelled = core.AttributeSet{core.KeyUnderline: core.ColorRed}

	dict := spell.NewDictionary("let", "comment")
	h := New(newSampleSource(), th, WithSpellOracle(dict))
	defer h.Close()

	sink := styled.NewText("let x = 1 // commnet")
	notified := 0
	sink.OnChange(func(*styled.Text) { notified++ })
	h.HighlightSynchronously(Request{Range: core.NewByteRange(0, sink.Len()), Sink: sink})

	if notified != 1 {
		t.Errorf("observers notified %d times, want 1", notified)
	}
	u, _ := sink.Attribute(core.KeyUnderline, 15)
	if c, _ := u.(core.Color); !c.Equals(core.ColorRed) {
		t.Errorf("underline at 15 = %v, want misspelling red", u)
	}
	fg, _ := sink.Attribute(core.KeyForeground, 15)
	if c, _ := fg.(core.Color); !c.Equals(core.ColorGray) {
		t.Errorf("foreground at 15 = %v, want comment gray", fg)
	}
}

func TestHighlighter_WindowOffset(t *testing.T) {
	doc := "func main() {}\n" + sampleLine
	src := &staticSource{captures: []core.Capture{
		capture("keyword", 0, 4),
		capture("keyword", 15, 18),
		capture("comment", 25, 35),
	}}
	h := New(src, testTheme())
	defer h.Close()

	sink := styled.NewText(sampleLine)
	h.HighlightSynchronously(Request{Range: core.NewByteRange(15, len(doc)), Sink: sink})

	ref := New(newSampleSource(), testTheme())
	defer ref.Close()
	want := styled.NewText(sampleLine)
	ref.HighlightSynchronously(sampleRequest(want))
	if !sink.Equal(want) {
		t.Errorf("window-local result differs:\n%v\n%v", sink.Runs(), want.Runs())
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debug(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(msg, args...))
}

func TestHighlighter_ConcurrentRequests(t *testing.T) {
	pool := dispatch.NewPool(dispatch.WithWorkerCount(4), dispatch.WithQueueSize(64))
	if err := pool.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
	}()
	serial := dispatch.NewSerial()
	defer serial.Stop()

	logger := &recordingLogger{}
	h := New(newSampleSource(), testTheme(), WithScheduler(pool), WithDelivery(serial), WithLogger(logger))
	defer h.Close()

	const n = 32
	results := make([]result, n)
	var wg sync.WaitGroup
	wg.Add(n)
	sink := styled.NewText(sampleLine)
	for i := range results {
		i := i
		h.HighlightAsync(sampleRequest(sink), func(err error) {
			results[i].complete(err)
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("completions did not all arrive")
	}

	for i := range results {
		calls, err := results[i].get()
		if calls != 1 {
			t.Errorf("request %d completed %d times", i, calls)
		}
		if err != nil && !errors.Is(err, ErrCancelled) {
			t.Errorf("request %d: unexpected error %v", i, err)
		}
	}
	expectResult(t, "last", &results[n-1], nil)

	want := styled.NewText(sampleLine)
	h.HighlightSynchronously(sampleRequest(want))
	var equal bool
	serial.Post(func() { equal = sink.Equal(want) })
	serial.Sync()
	if !equal {
		t.Error("final sink differs from a synchronous pass")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.lines) == 0 {
		t.Error("no debug output")
	}
}

func TestHighlighter_DefaultExecution(t *testing.T) {
	h := New(newSampleSource(), testTheme())

	sink := styled.NewText(sampleLine)
	done := make(chan error, 1)
	h.HighlightAsync(sampleRequest(sink), func(err error) { done <- err })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("completion error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("completion never arrived")
	}
	h.Close()

	if len(sink.StyledRuns()) == 0 {
		t.Error("default execution staged nothing")
	}
}

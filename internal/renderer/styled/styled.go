// Package styled provides the mutable styled-text sink that highlight passes
// write into: a line of text plus an attribute table keyed by byte ranges.
package styled

import (
	"reflect"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// Buffer is the sink contract the compositor and the spell pass write to.
// Implementations are not required to be safe for concurrent use; callers
// confine a buffer to a single delivery goroutine.
type Buffer interface {
	// Text returns the full text of the buffer.
	Text() string

	// BeginEditing opens a batch edit. Batches nest.
	BeginEditing()

	// EndEditing closes a batch edit. Observers see the result only after
	// the outermost batch ends.
	EndEditing()

	// AddAttributes stages attrs over r. Keys already present are
	// overwritten; other keys are kept.
	AddAttributes(attrs core.AttributeSet, r core.ByteRange)

	// Attribute returns the value of key at byte location loc.
	Attribute(key core.AttributeKey, loc int) (any, bool)
}

// Run is a maximal range sharing one attribute set.
type Run struct {
	Range core.ByteRange
	Attrs core.AttributeSet
}

// Text is an in-memory Buffer. Runs always tile [0, len(text)).
type Text struct {
	text  string
	runs  []Run
	depth int
	dirty bool

	observers []func(*Text)
	edits     int
}

// NewText creates a buffer holding text with no attributes.
func NewText(text string) *Text {
	t := &Text{text: text}
	t.clear()
	return t
}

// Text implements Buffer.
func (t *Text) Text() string {
	return t.text
}

// Len returns the length of the text in bytes.
func (t *Text) Len() int {
	return len(t.text)
}

// Reset removes every attribute.
func (t *Text) Reset() {
	t.clear()
	if t.depth > 0 {
		t.dirty = true
		return
	}
	t.notify()
}

// SetText replaces the text and clears all attributes.
func (t *Text) SetText(text string) {
	t.text = text
	t.Reset()
}

// OnChange registers fn to be called after each completed batch that
// modified the buffer, and after unbatched modifications.
func (t *Text) OnChange(fn func(*Text)) {
	t.observers = append(t.observers, fn)
}

// Edits returns how many completed modifications observers have been
// notified of.
func (t *Text) Edits() int {
	return t.edits
}

// BeginEditing implements Buffer.
func (t *Text) BeginEditing() {
	t.depth++
}

// EndEditing implements Buffer.
func (t *Text) EndEditing() {
	if t.depth == 0 {
		return
	}
	t.depth--
	if t.depth == 0 && t.dirty {
		t.dirty = false
		t.notify()
	}
}

// Editing returns true while a batch edit is open.
func (t *Text) Editing() bool {
	return t.depth > 0
}

// AddAttributes implements Buffer.
func (t *Text) AddAttributes(attrs core.AttributeSet, r core.ByteRange) {
	r = r.Intersect(core.ByteRange{Length: len(t.text)})
	if r.IsEmpty() || attrs.IsEmpty() {
		return
	}

	first := t.split(r.Location)
	last := t.split(r.End())
	for i := first; i < last; i++ {
		merged := t.runs[i].Attrs.Clone()
		if merged == nil {
			merged = make(core.AttributeSet, len(attrs))
		}
		for k, v := range attrs {
			merged[k] = v
		}
		t.runs[i].Attrs = merged
	}

	if t.depth > 0 {
		t.dirty = true
		return
	}
	t.notify()
}

// Attribute implements Buffer.
func (t *Text) Attribute(key core.AttributeKey, loc int) (any, bool) {
	i := t.runAt(loc)
	if i < 0 {
		return nil, false
	}
	v, ok := t.runs[i].Attrs[key]
	return v, ok
}

// AttributesAt returns a copy of all attributes at loc.
func (t *Text) AttributesAt(loc int) core.AttributeSet {
	i := t.runAt(loc)
	if i < 0 {
		return nil
	}
	return t.runs[i].Attrs.Clone()
}

// Runs returns the attribute runs with adjacent equal runs coalesced.
func (t *Text) Runs() []Run {
	out := make([]Run, 0, len(t.runs))
	for _, run := range t.runs {
		if n := len(out); n > 0 && attrsEqual(out[n-1].Attrs, run.Attrs) {
			out[n-1].Range.Length += run.Range.Length
			continue
		}
		out = append(out, Run{Range: run.Range, Attrs: run.Attrs.Clone()})
	}
	return out
}

// StyledRuns returns only the runs that carry attributes.
func (t *Text) StyledRuns() []Run {
	var out []Run
	for _, run := range t.Runs() {
		if !run.Attrs.IsEmpty() {
			out = append(out, run)
		}
	}
	return out
}

// Equal reports whether both buffers hold the same text and attributes.
func (t *Text) Equal(other *Text) bool {
	if t.text != other.text {
		return false
	}
	a, b := t.Runs(), other.Runs()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Range != b[i].Range || !attrsEqual(a[i].Attrs, b[i].Attrs) {
			return false
		}
	}
	return true
}

func (t *Text) clear() {
	t.runs = t.runs[:0]
	if len(t.text) > 0 {
		t.runs = append(t.runs, Run{Range: core.ByteRange{Length: len(t.text)}})
	}
}

// runAt returns the index of the run containing loc, or -1.
func (t *Text) runAt(loc int) int {
	lo, hi := 0, len(t.runs)
	for lo < hi {
		mid := (lo + hi) / 2
		r := t.runs[mid].Range
		switch {
		case loc < r.Location:
			hi = mid
		case loc >= r.End():
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// split ensures a run boundary at loc and returns the index of the run
// starting there (len(runs) when loc is the end of the text).
func (t *Text) split(loc int) int {
	if loc >= len(t.text) {
		return len(t.runs)
	}
	i := t.runAt(loc)
	run := t.runs[i]
	if run.Range.Location == loc {
		return i
	}

	left := Run{
		Range: core.NewByteRange(run.Range.Location, loc),
		Attrs: run.Attrs,
	}
	right := Run{
		Range: core.NewByteRange(loc, run.Range.End()),
		Attrs: run.Attrs.Clone(),
	}
	t.runs = append(t.runs, Run{})
	copy(t.runs[i+2:], t.runs[i+1:])
	t.runs[i] = left
	t.runs[i+1] = right
	return i + 1
}

func (t *Text) notify() {
	t.edits++
	for _, fn := range t.observers {
		fn(t)
	}
}

func attrsEqual(a, b core.AttributeSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

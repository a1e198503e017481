package style

import (
	"slices"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// TraitSpan is a range marked with font traits.
type TraitSpan struct {
	// Range is the marked extent.
	Range core.ByteRange

	// Traits are the marked traits.
	Traits core.FontTraits
}

// TraitAccumulator records trait markers over ranges. The traits at a
// location are the union of every span covering it.
type TraitAccumulator struct {
	spans []TraitSpan
}

// NewTraitAccumulator creates an empty accumulator.
func NewTraitAccumulator() *TraitAccumulator {
	return &TraitAccumulator{
		spans: make([]TraitSpan, 0, 8),
	}
}

// Mark records traits over a range. Empty ranges and empty trait sets are
// ignored.
func (a *TraitAccumulator) Mark(r core.ByteRange, traits core.FontTraits) {
	if r.IsEmpty() || traits.IsEmpty() {
		return
	}
	a.spans = append(a.spans, TraitSpan{Range: r, Traits: traits})
}

// At returns the merged traits at a location.
func (a *TraitAccumulator) At(loc int) core.FontTraits {
	var traits core.FontTraits
	for _, s := range a.spans {
		if s.Range.Contains(loc) {
			traits |= s.Traits
		}
	}
	return traits
}

// Segments splits r at every span boundary inside it and returns the pieces
// with their merged traits. The pieces tile r in order.
func (a *TraitAccumulator) Segments(r core.ByteRange) []TraitSpan {
	if r.IsEmpty() {
		return nil
	}

	cuts := []int{r.Location, r.End()}
	for _, s := range a.spans {
		if !s.Range.Overlaps(r) {
			continue
		}
		if s.Range.Location > r.Location {
			cuts = append(cuts, s.Range.Location)
		}
		if s.Range.End() < r.End() {
			cuts = append(cuts, s.Range.End())
		}
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	segments := make([]TraitSpan, 0, len(cuts)-1)
	for i := 0; i+1 < len(cuts); i++ {
		seg := core.NewByteRange(cuts[i], cuts[i+1])
		traits := a.At(seg.Location)
		// Merge neighbours that ended up with the same traits.
		if n := len(segments); n > 0 && segments[n-1].Traits == traits {
			segments[n-1].Range.Length += seg.Length
			continue
		}
		segments = append(segments, TraitSpan{Range: seg, Traits: traits})
	}
	return segments
}

package core

import "fmt"

// ByteRange is a half-open interval [Location, Location+Length) over the
// UTF-8 bytes of a line.
type ByteRange struct {
	Location int
	Length   int
}

// NewByteRange creates a range from start (inclusive) to end (exclusive).
// A reversed pair yields a zero-length range at start.
func NewByteRange(start, end int) ByteRange {
	if end < start {
		end = start
	}
	return ByteRange{Location: start, Length: end - start}
}

// End returns the exclusive upper bound.
func (r ByteRange) End() int {
	return r.Location + r.Length
}

// IsEmpty returns true if the range covers no bytes.
func (r ByteRange) IsEmpty() bool {
	return r.Length <= 0
}

// Contains returns true if loc lies within the range.
func (r ByteRange) Contains(loc int) bool {
	return loc >= r.Location && loc < r.End()
}

// Overlaps returns true if the two half-open intervals intersect.
// Empty ranges never overlap anything.
func (r ByteRange) Overlaps(other ByteRange) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.Location < other.End() && other.Location < r.End()
}

// Intersect returns the overlapping part of two ranges.
// The result is zero-length when they do not overlap.
func (r ByteRange) Intersect(other ByteRange) ByteRange {
	start := max(r.Location, other.Location)
	end := min(r.End(), other.End())
	if end <= start {
		return ByteRange{Location: start}
	}
	return ByteRange{Location: start, Length: end - start}
}

// Shift returns the range moved by delta bytes.
func (r ByteRange) Shift(delta int) ByteRange {
	r.Location += delta
	return r
}

// String returns "[start,end)".
func (r ByteRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Location, r.End())
}

// Capture is a named byte interval produced by a syntax tree query.
type Capture struct {
	// Name is the capture name, e.g. "keyword" or "string.escape".
	Name string

	// Range is the absolute byte range of the captured node.
	Range ByteRange
}

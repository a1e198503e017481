package core

import (
	"fmt"
	"strings"
)

// FontTraits is a set of symbolic font traits.
type FontTraits uint8

// Font trait flags.
const (
	TraitNone   FontTraits = 0
	TraitBold   FontTraits = 1 << 0
	TraitItalic FontTraits = 1 << 1
)

// Has returns true if all traits in t are present.
func (f FontTraits) Has(t FontTraits) bool {
	return f&t == t
}

// With returns the union of both trait sets.
func (f FontTraits) With(t FontTraits) FontTraits {
	return f | t
}

// IsEmpty returns true if no trait is set.
func (f FontTraits) IsEmpty() bool {
	return f == TraitNone
}

// String returns "bold", "italic", "bold|italic" or "none".
func (f FontTraits) String() string {
	var parts []string
	if f.Has(TraitBold) {
		parts = append(parts, "bold")
	}
	if f.Has(TraitItalic) {
		parts = append(parts, "italic")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// FontRef identifies a concrete font face. It is comparable, so two refs
// name the same face iff they are ==.
type FontRef struct {
	Family string
	Size   float64
	Traits FontTraits
}

// WithTraits returns a copy of the ref carrying the given traits.
func (f FontRef) WithTraits(t FontTraits) FontRef {
	f.Traits = t
	return f
}

// IsZero returns true for the zero ref.
func (f FontRef) IsZero() bool {
	return f == FontRef{}
}

// String returns e.g. "Menlo 12 bold|italic".
func (f FontRef) String() string {
	if f.Traits.IsEmpty() {
		return fmt.Sprintf("%s %g", f.Family, f.Size)
	}
	return fmt.Sprintf("%s %g %s", f.Family, f.Size, f.Traits)
}

// Shadow describes a text shadow.
type Shadow struct {
	Color   Color
	OffsetX float64
	OffsetY float64
	Blur    float64
}

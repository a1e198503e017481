package core

import (
	"fmt"
	"strings"
)

// Token is a resolved, clipped, style-bearing interval derived from one
// capture for one window. Its range is local to the window.
type Token struct {
	// Range is the token's extent, relative to the window start.
	Range ByteRange

	// Capture is the capture name the token was resolved from.
	Capture string

	// TextColor is the foreground color, if the theme sets one.
	TextColor *Color

	// Shadow is the text shadow, if the theme sets one.
	Shadow *Shadow

	// Font overrides the theme's default font.
	Font *FontRef

	// Traits are merged with overlapping tokens before font lookup.
	Traits FontTraits

	// Auxiliary attributes are staged at their own sub-ranges.
	Auxiliary []AuxAttribute
}

// IsEmpty reports whether the token has nothing to contribute: a zero-length
// range, or no color, shadow, font or auxiliary attributes.
//
// Traits alone do not make a token non-empty.
func (t Token) IsEmpty() bool {
	if t.Range.Length <= 0 {
		return true
	}
	return t.TextColor == nil && t.Shadow == nil && t.Font == nil && len(t.Auxiliary) == 0
}

// String returns a compact description for debug output.
func (t Token) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", t.Range, t.Capture)
	if t.TextColor != nil {
		fmt.Fprintf(&b, " fg=%s", t.TextColor)
	}
	if !t.Traits.IsEmpty() {
		fmt.Fprintf(&b, " traits=%s", t.Traits)
	}
	if t.Font != nil {
		fmt.Fprintf(&b, " font=%q", t.Font)
	}
	if t.Shadow != nil {
		b.WriteString(" shadow")
	}
	for _, aux := range t.Auxiliary {
		fmt.Fprintf(&b, " %s@%s", aux.Key, aux.Placement)
	}
	return b.String()
}

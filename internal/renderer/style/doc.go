// Package style composites highlight tokens onto a styled-text buffer.
//
// The Compositor applies tokens in order inside one batch edit. Colors,
// shadows and auxiliary attributes are staged directly, so a later token wins
// on a conflicting key. Font traits are different: bold and italic from
// overlapping tokens are merged in a TraitAccumulator first, and the font is
// resolved per trait-homogeneous segment, so a bold keyword inside an italic
// comment renders bold-italic.
package style

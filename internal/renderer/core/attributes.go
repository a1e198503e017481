package core

import "fmt"

// AttributeKey names a styled-text attribute.
type AttributeKey string

// Well-known attribute keys.
const (
	KeyForeground    AttributeKey = "foregroundColor" // Color
	KeyBackground    AttributeKey = "backgroundColor" // Color
	KeyShadow        AttributeKey = "shadow"          // Shadow
	KeyFont          AttributeKey = "font"            // FontRef
	KeyUnderline     AttributeKey = "underline"       // Color; ColorDefault means plain underline
	KeyStrikethrough AttributeKey = "strikethrough"   // Color
	KeyKern          AttributeKey = "kern"            // float64
)

// AttributeSet maps attribute keys to values.
type AttributeSet map[AttributeKey]any

// IsEmpty returns true if the set holds no attributes.
func (s AttributeSet) IsEmpty() bool {
	return len(s) == 0
}

// Clone returns a shallow copy of the set. A nil set clones to nil.
func (s AttributeSet) Clone() AttributeSet {
	if s == nil {
		return nil
	}
	out := make(AttributeSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SubrangeKind selects how a SubrangeRule places an attribute inside a token.
type SubrangeKind uint8

const (
	// SubrangeWhole covers the token's entire range.
	SubrangeWhole SubrangeKind = iota
	// SubrangeInset trims Leading bytes from the start and Trailing from the end.
	SubrangeInset
	// SubrangeFromStart covers the first Length bytes.
	SubrangeFromStart
	// SubrangeFromEnd covers the last Length bytes.
	SubrangeFromEnd
)

// SubrangeRule places an auxiliary attribute at a sub-range of a token.
// The zero value covers the whole token.
type SubrangeRule struct {
	Kind     SubrangeKind
	Leading  int
	Trailing int
	Length   int
}

// Inset returns a rule that trims leading and trailing bytes.
func Inset(leading, trailing int) SubrangeRule {
	return SubrangeRule{Kind: SubrangeInset, Leading: leading, Trailing: trailing}
}

// FromStart returns a rule covering the first length bytes.
func FromStart(length int) SubrangeRule {
	return SubrangeRule{Kind: SubrangeFromStart, Length: length}
}

// FromEnd returns a rule covering the last length bytes.
func FromEnd(length int) SubrangeRule {
	return SubrangeRule{Kind: SubrangeFromEnd, Length: length}
}

// Resolve computes the rule's sub-range of r. The result never leaves r and
// never has negative length; a negative computed length collapses to an
// empty range at the computed location.
func (s SubrangeRule) Resolve(r ByteRange) ByteRange {
	var loc, length int
	switch s.Kind {
	case SubrangeInset:
		loc = r.Location + s.Leading
		length = r.Length - s.Leading - s.Trailing
	case SubrangeFromStart:
		loc = r.Location
		length = s.Length
	case SubrangeFromEnd:
		loc = r.End() - s.Length
		length = s.Length
	default:
		return r
	}

	loc = min(max(loc, r.Location), r.End())
	end := min(loc+max(length, 0), r.End())
	return ByteRange{Location: loc, Length: end - loc}
}

// String returns a short description of the rule.
func (s SubrangeRule) String() string {
	switch s.Kind {
	case SubrangeInset:
		return fmt.Sprintf("inset(%d,%d)", s.Leading, s.Trailing)
	case SubrangeFromStart:
		return fmt.Sprintf("fromStart(%d)", s.Length)
	case SubrangeFromEnd:
		return fmt.Sprintf("fromEnd(%d)", s.Length)
	default:
		return "whole"
	}
}

// AuxAttribute is an extra attribute a theme attaches to a capture, placed
// at a sub-range of the token.
type AuxAttribute struct {
	Key       AttributeKey
	Value     any
	Placement SubrangeRule
}

// Range resolves the attribute's placement against a token range.
func (a AuxAttribute) Range(token ByteRange) ByteRange {
	return a.Placement.Resolve(token)
}

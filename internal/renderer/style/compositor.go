package style

import (
	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/font"
	"github.com/dshills/capstyle/internal/renderer/styled"
	"github.com/dshills/capstyle/internal/renderer/theme"
)

// Compositor applies tokens onto a styled buffer.
type Compositor struct {
	// Theme supplies the default font.
	Theme theme.Resolver

	// Fonts supplies trait variants. Nil accepts every variant.
	Fonts font.Provider
}

// NewCompositor creates a compositor.
func NewCompositor(resolver theme.Resolver, fonts font.Provider) *Compositor {
	return &Compositor{Theme: resolver, Fonts: fonts}
}

// Apply stages the tokens onto buf inside a single batch edit. Tokens are
// applied in the given order; empty tokens are skipped.
func (c *Compositor) Apply(tokens []core.Token, buf styled.Buffer) {
	buf.BeginEditing()
	defer buf.EndEditing()

	traits := NewTraitAccumulator()
	for _, tok := range tokens {
		if tok.IsEmpty() {
			continue
		}
		c.applyToken(tok, traits, buf)
	}
}

func (c *Compositor) applyToken(tok core.Token, traits *TraitAccumulator, buf styled.Buffer) {
	attrs := make(core.AttributeSet, 2)
	if tok.TextColor != nil {
		attrs[core.KeyForeground] = *tok.TextColor
	}
	if tok.Shadow != nil {
		attrs[core.KeyShadow] = *tok.Shadow
	}

	traits.Mark(tok.Range, tok.Traits)

	for _, aux := range tok.Auxiliary {
		r := aux.Range(tok.Range)
		if r.IsEmpty() {
			continue
		}
		buf.AddAttributes(core.AttributeSet{aux.Key: aux.Value}, r)
	}

	base := c.defaultFont()
	if tok.Font != nil {
		base = *tok.Font
	}
	if !base.IsZero() {
		for _, seg := range traits.Segments(tok.Range) {
			f := font.Resolve(c.Fonts, base, base.Traits|seg.Traits)
			if fontCovers(buf, seg.Range, f) {
				continue
			}
			buf.AddAttributes(core.AttributeSet{core.KeyFont: f}, seg.Range)
		}
	}

	if !attrs.IsEmpty() {
		buf.AddAttributes(attrs, tok.Range)
	}
}

// fontCovers reports whether every location of r already carries f.
func fontCovers(buf styled.Buffer, r core.ByteRange, f core.FontRef) bool {
	for loc := r.Location; loc < r.End(); loc++ {
		if cur, ok := buf.Attribute(core.KeyFont, loc); !ok || cur != f {
			return false
		}
	}
	return true
}

func (c *Compositor) defaultFont() core.FontRef {
	if c.Theme == nil {
		return core.FontRef{}
	}
	return c.Theme.DefaultFont()
}

package highlight

import (
	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/theme"
)

// BuildTokens clips captures to window and resolves their styles.
//
// Each capture overlapping the window yields a token whose range is the
// clipped extent, relative to the window start. Tokens keep capture order.
// Captures outside the window, empty after clipping, or without any style
// produce nothing.
func BuildTokens(captures []core.Capture, window core.ByteRange, resolver theme.Resolver) []core.Token {
	if len(captures) == 0 || window.IsEmpty() || resolver == nil {
		return nil
	}

	tokens := make([]core.Token, 0, len(captures))
	for _, c := range captures {
		start := max(c.Range.Location, window.Location)
		end := min(c.Range.End(), window.End())
		if end <= start {
			continue
		}

		local := core.NewByteRange(start, end).Shift(-window.Location)
		tok := resolveToken(c.Name, local, resolver)
		if tok.IsEmpty() {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func resolveToken(name string, r core.ByteRange, resolver theme.Resolver) core.Token {
	tok := core.Token{
		Range:     r,
		Capture:   name,
		Traits:    resolver.FontTraits(name),
		Auxiliary: resolver.AuxiliaryAttributes(name),
	}
	if c, ok := resolver.TextColor(name); ok {
		tok.TextColor = &c
	}
	if s, ok := resolver.Shadow(name); ok {
		tok.Shadow = &s
	}
	if f, ok := resolver.Font(name); ok {
		tok.Font = &f
	}
	return tok
}

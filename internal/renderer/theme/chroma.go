package theme

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// chromaCaptures maps capture names to the chroma token type whose style
// entry a converted theme uses for them.
var chromaCaptures = map[string]chroma.TokenType{
	"attribute":             chroma.NameAttribute,
	"comment":               chroma.Comment,
	"comment.documentation": chroma.CommentSpecial,
	"constant":              chroma.NameConstant,
	"constant.builtin":      chroma.KeywordConstant,
	"error":                 chroma.Error,
	"function":              chroma.NameFunction,
	"function.builtin":      chroma.NameBuiltin,
	"keyword":               chroma.Keyword,
	"label":                 chroma.NameLabel,
	"markup.bold":           chroma.GenericStrong,
	"markup.heading":        chroma.GenericHeading,
	"markup.italic":         chroma.GenericEmph,
	"markup.link":           chroma.NameEntity,
	"markup.raw":            chroma.LiteralStringBacktick,
	"namespace":             chroma.NameNamespace,
	"number":                chroma.LiteralNumber,
	"operator":              chroma.Operator,
	"property":              chroma.NameProperty,
	"punctuation":           chroma.Punctuation,
	"string":                chroma.LiteralString,
	"string.escape":         chroma.LiteralStringEscape,
	"string.regexp":         chroma.LiteralStringRegex,
	"tag":                   chroma.NameTag,
	"type":                  chroma.KeywordType,
	"variable":              chroma.NameVariable,
	"variable.builtin":      chroma.NameBuiltinPseudo,
	"variable.parameter":    chroma.NameVariable,
}

// FromChromaName converts a named chroma style. Unknown names yield chroma's
// fallback style.
func FromChromaName(name string, font core.FontRef) *Theme {
	return FromChroma(styles.Get(name), font)
}

// LookupChroma converts a named chroma style, reporting false when chroma
// has no style by that name.
func LookupChroma(name string, font core.FontRef) (*Theme, bool) {
	style, ok := styles.Registry[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return FromChroma(style, font), true
}

// ChromaStyles returns the names of chroma's registered styles.
func ChromaStyles() []string {
	return styles.Names()
}

// FromChroma converts a chroma style into a theme. Entries whose color
// matches the base text color carry only their traits.
func FromChroma(style *chroma.Style, font core.FontRef) *Theme {
	t := New(style.Name, font)

	base := style.Get(chroma.Text)
	if base.Colour.IsSet() {
		t.Foreground = chromaColor(base.Colour)
	}
	if bg := style.Get(chroma.Background); bg.Background.IsSet() {
		t.Background = chromaColor(bg.Background)
	}

	for capture, tt := range chromaCaptures {
		entry := style.Get(tt)
		var s CaptureStyle
		if entry.Colour.IsSet() && entry.Colour != base.Colour {
			c := chromaColor(entry.Colour)
			s.Color = &c
		}
		if entry.Bold == chroma.Yes {
			s.Traits |= core.TraitBold
		}
		if entry.Italic == chroma.Yes {
			s.Traits |= core.TraitItalic
		}
		if entry.Underline == chroma.Yes {
			s = s.Underline()
		}
		if entry.Background.IsSet() && entry.Background != base.Background {
			s = s.With(core.KeyBackground, chromaColor(entry.Background), core.SubrangeRule{})
		}
		if s.Color == nil && s.Traits.IsEmpty() && len(s.Auxiliary) == 0 {
			continue
		}
		t.Captures[capture] = s
	}

	if c, ok := t.TextColor("error"); ok {
		t.Misspelled = core.AttributeSet{core.KeyUnderline: c}
	} else {
		t.Misspelled = core.AttributeSet{core.KeyUnderline: core.ColorRed}
	}
	return t
}

func chromaColor(c chroma.Colour) core.Color {
	return core.ColorFromRGB(c.Red(), c.Green(), c.Blue())
}

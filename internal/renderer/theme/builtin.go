package theme

import "github.com/dshills/capstyle/internal/renderer/core"

// DefaultFont is the font built-in themes start from.
var DefaultFont = core.FontRef{Family: "Menlo", Size: 14}

// Default returns a sensible default dark theme.
func Default() *Theme {
	comment := core.ColorFromRGB(106, 153, 85)   // Green
	keyword := core.ColorFromRGB(86, 156, 214)   // Blue
	str := core.ColorFromRGB(206, 145, 120)      // Orange
	number := core.ColorFromRGB(181, 206, 168)   // Light green
	function := core.ColorFromRGB(220, 220, 170) // Yellow
	typ := core.ColorFromRGB(78, 201, 176)       // Teal
	variable := core.ColorFromRGB(156, 220, 254) // Light blue
	operator := core.ColorFromRGB(212, 212, 212) // White
	invalid := core.ColorFromRGB(244, 71, 71)    // Red

	t := New("Default Dark", DefaultFont)
	t.Background = core.ColorFromRGB(30, 30, 30)
	t.Foreground = core.ColorFromRGB(212, 212, 212)
	t.Captures = map[string]CaptureStyle{
		"comment":               NewCaptureStyle(comment).Italic(),
		"string":                NewCaptureStyle(str),
		"string.escape":         NewCaptureStyle(core.ColorFromRGB(215, 186, 125)),
		"number":                NewCaptureStyle(number),
		"keyword":               NewCaptureStyle(keyword),
		"operator":              NewCaptureStyle(operator),
		"punctuation":           NewCaptureStyle(operator),
		"variable":              NewCaptureStyle(variable),
		"variable.builtin":      NewCaptureStyle(keyword),
		"constant":              NewCaptureStyle(core.ColorFromRGB(79, 193, 255)),
		"constant.builtin":      NewCaptureStyle(keyword),
		"function":              NewCaptureStyle(function),
		"type":                  NewCaptureStyle(typ),
		"property":              NewCaptureStyle(variable),
		"tag":                   NewCaptureStyle(keyword),
		"attribute":             NewCaptureStyle(variable),
		"error":                 NewCaptureStyle(invalid).Bold(),
		"markup.heading":        NewCaptureStyle(keyword).Bold(),
		"markup.bold":           CaptureStyle{Traits: core.TraitBold},
		"markup.italic":         CaptureStyle{Traits: core.TraitItalic},
		"markup.raw":            NewCaptureStyle(str),
		"markup.link":           NewCaptureStyle(typ).Underline(),
		"markup.strikethrough":  CaptureStyle{}.Strikethrough(),
		"comment.documentation": NewCaptureStyle(comment).Italic().Bold(),
	}
	t.Misspelled = core.AttributeSet{core.KeyUnderline: invalid}
	return t
}

// Monokai returns a Monokai-inspired theme.
func Monokai() *Theme {
	pink := core.ColorFromRGB(249, 38, 114)
	green := core.ColorFromRGB(166, 226, 46)
	orange := core.ColorFromRGB(253, 151, 31)
	yellow := core.ColorFromRGB(230, 219, 116)
	blue := core.ColorFromRGB(102, 217, 239)
	purple := core.ColorFromRGB(174, 129, 255)
	comment := core.ColorFromRGB(117, 113, 94)
	white := core.ColorFromRGB(248, 248, 242)

	t := New("Monokai", DefaultFont)
	t.Background = core.ColorFromRGB(39, 40, 34)
	t.Foreground = white
	t.Captures = map[string]CaptureStyle{
		"comment":            NewCaptureStyle(comment),
		"string":             NewCaptureStyle(yellow),
		"string.escape":      NewCaptureStyle(purple),
		"number":             NewCaptureStyle(purple),
		"keyword":            NewCaptureStyle(pink),
		"operator":           NewCaptureStyle(pink),
		"punctuation":        NewCaptureStyle(white),
		"variable":           NewCaptureStyle(white),
		"variable.parameter": NewCaptureStyle(orange).Italic(),
		"constant":           NewCaptureStyle(purple),
		"function":           NewCaptureStyle(green),
		"function.builtin":   NewCaptureStyle(blue),
		"type":               NewCaptureStyle(blue).Italic(),
		"tag":                NewCaptureStyle(pink),
		"attribute":          NewCaptureStyle(green),
		"markup.heading":     NewCaptureStyle(green).Bold(),
		"markup.bold":        CaptureStyle{Traits: core.TraitBold},
		"markup.italic":      CaptureStyle{Traits: core.TraitItalic},
	}
	t.Misspelled = core.AttributeSet{core.KeyUnderline: pink}
	return t
}

// Light returns a light theme.
func Light() *Theme {
	comment := core.ColorFromRGB(0, 128, 0)
	keyword := core.ColorFromRGB(0, 0, 255)
	str := core.ColorFromRGB(163, 21, 21)
	number := core.ColorFromRGB(9, 134, 88)
	function := core.ColorFromRGB(121, 94, 38)
	typ := core.ColorFromRGB(38, 127, 153)
	variable := core.ColorFromRGB(0, 16, 128)

	t := New("Light", DefaultFont)
	t.Background = core.ColorFromRGB(255, 255, 255)
	t.Foreground = core.ColorFromRGB(0, 0, 0)
	t.Captures = map[string]CaptureStyle{
		"comment":        NewCaptureStyle(comment).Italic(),
		"string":         NewCaptureStyle(str),
		"number":         NewCaptureStyle(number),
		"keyword":        NewCaptureStyle(keyword),
		"variable":       NewCaptureStyle(variable),
		"function":       NewCaptureStyle(function),
		"type":           NewCaptureStyle(typ),
		"markup.heading": NewCaptureStyle(keyword).Bold(),
	}
	t.Misspelled = core.AttributeSet{core.KeyUnderline: core.ColorRed}
	return t
}

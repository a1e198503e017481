package backend

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/styled"
)

// TabWidth is the tab stop interval used when drawing.
const TabWidth = 4

// shadowTint is how far a shadowed cell's background moves toward the
// shadow color.
const shadowTint = 0.25

// StyleFor maps a run's attributes onto a terminal style. A shadow becomes a
// tint of a true-color background. Attributes a terminal cannot show, such
// as kerning, are dropped.
func StyleFor(attrs core.AttributeSet, base tcell.Style) tcell.Style {
	style := base
	if c, ok := attrs[core.KeyForeground].(core.Color); ok {
		style = style.Foreground(TcellColor(c))
	}
	if c, ok := attrs[core.KeyBackground].(core.Color); ok {
		style = style.Background(TcellColor(c))
	}
	if sh, ok := attrs[core.KeyShadow].(core.Shadow); ok {
		if _, bg, _ := style.Decompose(); bg.IsRGB() {
			r, g, b := bg.RGB()
			tinted := core.ColorFromRGB(uint8(r), uint8(g), uint8(b)).Blend(sh.Color, shadowTint)
			style = style.Background(TcellColor(tinted))
		}
	}
	if f, ok := attrs[core.KeyFont].(core.FontRef); ok {
		style = style.Bold(f.Traits.Has(core.TraitBold)).Italic(f.Traits.Has(core.TraitItalic))
	}
	if _, ok := attrs[core.KeyUnderline]; ok {
		style = style.Underline(true)
	}
	if _, ok := attrs[core.KeyStrikethrough]; ok {
		style = style.StrikeThrough(true)
	}
	return style
}

// TcellColor converts a color to its tcell equivalent.
func TcellColor(c core.Color) tcell.Color {
	switch {
	case c.Default:
		return tcell.ColorDefault
	case c.Indexed:
		return tcell.PaletteColor(int(c.R))
	default:
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}
}

// Draw paints text into the rectangle at (x, y) of the given size. Lines
// longer than width are clipped. It returns the number of rows used.
func Draw(b Backend, x, y, width, height int, text *styled.Text, base tcell.Style) int {
	if width <= 0 || height <= 0 {
		return 0
	}

	blank := Cell{Str: " ", Width: 1, Style: base}
	row, col := 0, 0
	clearRow := func(r int) {
		for i := 0; i < width; i++ {
			b.SetCell(x+i, y+r, blank)
		}
	}
	clearRow(0)

	content := text.Text()
	for _, run := range text.Runs() {
		style := StyleFor(run.Attrs, base)
		g := uniseg.NewGraphemes(content[run.Range.Location:run.Range.End()])
		for g.Next() {
			switch s := g.Str(); s {
			case "\n", "\r\n":
				row++
				col = 0
				if row >= height {
					return height
				}
				clearRow(row)
				continue
			case "\r":
				continue
			case "\t":
				next := (col/TabWidth + 1) * TabWidth
				for ; col < next && col < width; col++ {
					b.SetCell(x+col, y+row, Cell{Str: " ", Width: 1, Style: style})
				}
				continue
			}

			w := g.Width()
			if w <= 0 {
				w = 1
			}
			if col+w > width {
				col = width
				continue
			}
			b.SetCell(x+col, y+row, Cell{Str: g.Str(), Width: w, Style: style})
			for i := 1; i < w; i++ {
				b.SetCell(x+col+i, y+row, Cell{Width: 0, Style: style})
			}
			col += w
		}
	}
	return row + 1
}

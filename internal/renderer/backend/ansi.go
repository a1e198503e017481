package backend

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/styled"
)

// ColorDepth selects how colors are encoded in ANSI output.
type ColorDepth int

const (
	// DepthTrueColor emits 24-bit SGR sequences.
	DepthTrueColor ColorDepth = iota
	// Depth256 maps colors to the nearest xterm 256-color entry.
	Depth256
	// DepthNone emits text attributes but no colors.
	DepthNone
)

// ParseColorDepth parses "truecolor", "256" or "none".
func ParseColorDepth(s string) (ColorDepth, error) {
	switch strings.ToLower(s) {
	case "truecolor", "24bit", "":
		return DepthTrueColor, nil
	case "256":
		return Depth256, nil
	case "none", "mono":
		return DepthNone, nil
	default:
		return DepthTrueColor, fmt.Errorf("unknown color depth %q", s)
	}
}

const sgrReset = "\x1b[0m"

// WriteANSI writes text to w with SGR escape sequences for each styled run.
// Styles are reset before every newline so backgrounds do not bleed.
func WriteANSI(w io.Writer, text *styled.Text, depth ColorDepth) error {
	bw := bufio.NewWriter(w)
	content := text.Text()

	for _, run := range text.Runs() {
		seq := sgr(run.Attrs, depth)
		part := content[run.Range.Location:run.Range.End()]
		for i, line := range strings.Split(part, "\n") {
			if i > 0 {
				bw.WriteString("\n")
			}
			if line == "" {
				continue
			}
			if seq == "" {
				bw.WriteString(line)
				continue
			}
			bw.WriteString(seq)
			bw.WriteString(line)
			bw.WriteString(sgrReset)
		}
	}
	return bw.Flush()
}

func sgr(attrs core.AttributeSet, depth ColorDepth) string {
	var codes []string
	if f, ok := attrs[core.KeyFont].(core.FontRef); ok {
		if f.Traits.Has(core.TraitBold) {
			codes = append(codes, "1")
		}
		if f.Traits.Has(core.TraitItalic) {
			codes = append(codes, "3")
		}
	}
	if _, ok := attrs[core.KeyUnderline]; ok {
		codes = append(codes, "4")
	}
	if _, ok := attrs[core.KeyStrikethrough]; ok {
		codes = append(codes, "9")
	}
	if c, ok := attrs[core.KeyForeground].(core.Color); ok {
		codes = append(codes, colorCode(c, depth, false)...)
	}
	if c, ok := attrs[core.KeyBackground].(core.Color); ok {
		codes = append(codes, colorCode(c, depth, true)...)
	}
	if len(codes) == 0 {
		return ""
	}
	return "\x1b[" + strings.Join(codes, ";") + "m"
}

func colorCode(c core.Color, depth ColorDepth, background bool) []string {
	if depth == DepthNone || c.Default {
		return nil
	}
	prefix := "38"
	if background {
		prefix = "48"
	}
	switch {
	case c.Indexed:
		return []string{prefix, "5", strconv.Itoa(int(c.R))}
	case depth == Depth256:
		return []string{prefix, "5", strconv.Itoa(Nearest256(c))}
	default:
		return []string{prefix, "2", strconv.Itoa(int(c.R)), strconv.Itoa(int(c.G)), strconv.Itoa(int(c.B))}
	}
}

var (
	paletteOnce sync.Once
	palette     []colorful.Color
)

// Nearest256 returns the xterm palette index closest to c in Lab space.
// The 16 system colors are skipped because terminals redefine them.
func Nearest256(c core.Color) int {
	if c.Indexed {
		return int(c.R)
	}
	paletteOnce.Do(func() {
		palette = make([]colorful.Color, 256)
		for i := 16; i < 256; i++ {
			r, g, b := tcell.PaletteColor(i).RGB()
			palette[i] = colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
		}
	})

	target := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	best, bestDist := 16, -1.0
	for i := 16; i < 256; i++ {
		d := target.DistanceLab(palette[i])
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

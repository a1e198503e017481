// Package theme maps capture names to text styles.
//
// A Theme is an immutable value once built; the highlighter snapshots the
// active theme for every pass, so swapping themes never races a running pass.
package theme

import (
	"sort"
	"strings"
	"sync"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// Resolver maps capture names to style attributes.
type Resolver interface {
	TextColor(capture string) (core.Color, bool)
	Shadow(capture string) (core.Shadow, bool)
	Font(capture string) (core.FontRef, bool)
	FontTraits(capture string) core.FontTraits
	AuxiliaryAttributes(capture string) []core.AuxAttribute

	// DefaultFont is the font used for tokens whose capture names none.
	DefaultFont() core.FontRef

	// MisspelledTextAttributes is staged over misspelled words.
	// An empty set disables the spell pass.
	MisspelledTextAttributes() core.AttributeSet
}

// CaptureStyle is the style a theme assigns to one capture name.
type CaptureStyle struct {
	Color     *core.Color
	Shadow    *core.Shadow
	Font      *core.FontRef
	Traits    core.FontTraits
	Auxiliary []core.AuxAttribute
}

// NewCaptureStyle creates a style with the given text color.
func NewCaptureStyle(c core.Color) CaptureStyle {
	return CaptureStyle{Color: &c}
}

// Bold returns the style with the bold trait added.
func (s CaptureStyle) Bold() CaptureStyle {
	s.Traits |= core.TraitBold
	return s
}

// Italic returns the style with the italic trait added.
func (s CaptureStyle) Italic() CaptureStyle {
	s.Traits |= core.TraitItalic
	return s
}

// WithShadow returns the style with a text shadow.
func (s CaptureStyle) WithShadow(sh core.Shadow) CaptureStyle {
	s.Shadow = &sh
	return s
}

// WithFont returns the style with an explicit font.
func (s CaptureStyle) WithFont(f core.FontRef) CaptureStyle {
	s.Font = &f
	return s
}

// With returns the style with an auxiliary attribute appended.
func (s CaptureStyle) With(key core.AttributeKey, value any, placement core.SubrangeRule) CaptureStyle {
	aux := make([]core.AuxAttribute, len(s.Auxiliary), len(s.Auxiliary)+1)
	copy(aux, s.Auxiliary)
	s.Auxiliary = append(aux, core.AuxAttribute{Key: key, Value: value, Placement: placement})
	return s
}

// Underline returns the style underlined over its whole range.
func (s CaptureStyle) Underline() CaptureStyle {
	return s.With(core.KeyUnderline, core.ColorDefault, core.SubrangeRule{})
}

// Strikethrough returns the style struck through over its whole range.
func (s CaptureStyle) Strikethrough() CaptureStyle {
	return s.With(core.KeyStrikethrough, core.ColorDefault, core.SubrangeRule{})
}

// Theme is a static capture-name to style table.
type Theme struct {
	// Name is the display name of the theme.
	Name string

	// BaseFont is the default font.
	BaseFont core.FontRef

	// Background is the editor background color.
	Background core.Color

	// Foreground is the default text color.
	Foreground core.Color

	// Captures maps capture names to styles.
	Captures map[string]CaptureStyle

	// Misspelled is staged over misspelled words; empty disables spelling.
	Misspelled core.AttributeSet
}

// New creates an empty theme.
func New(name string, font core.FontRef) *Theme {
	return &Theme{
		Name:       name,
		BaseFont:   font,
		Background: core.ColorDefault,
		Foreground: core.ColorDefault,
		Captures:   make(map[string]CaptureStyle),
	}
}

// Set assigns a style to a capture name.
func (t *Theme) Set(capture string, style CaptureStyle) *Theme {
	t.Captures[capture] = style
	return t
}

// Clone returns a deep enough copy to be modified independently.
func (t *Theme) Clone() *Theme {
	c := *t
	c.Captures = make(map[string]CaptureStyle, len(t.Captures))
	for k, v := range t.Captures {
		c.Captures[k] = v
	}
	c.Misspelled = t.Misspelled.Clone()
	return &c
}

// StyleFor returns the style for a capture name. Dotted names fall back to
// their parents: "keyword.control.go" tries "keyword.control", then "keyword".
func (t *Theme) StyleFor(capture string) (CaptureStyle, bool) {
	for capture != "" {
		if style, ok := t.Captures[capture]; ok {
			return style, true
		}
		i := strings.LastIndexByte(capture, '.')
		if i < 0 {
			break
		}
		capture = capture[:i]
	}
	return CaptureStyle{}, false
}

// TextColor implements Resolver.
func (t *Theme) TextColor(capture string) (core.Color, bool) {
	if s, ok := t.StyleFor(capture); ok && s.Color != nil {
		return *s.Color, true
	}
	return core.Color{}, false
}

// Shadow implements Resolver.
func (t *Theme) Shadow(capture string) (core.Shadow, bool) {
	if s, ok := t.StyleFor(capture); ok && s.Shadow != nil {
		return *s.Shadow, true
	}
	return core.Shadow{}, false
}

// Font implements Resolver.
func (t *Theme) Font(capture string) (core.FontRef, bool) {
	if s, ok := t.StyleFor(capture); ok && s.Font != nil {
		return *s.Font, true
	}
	return core.FontRef{}, false
}

// FontTraits implements Resolver.
func (t *Theme) FontTraits(capture string) core.FontTraits {
	s, _ := t.StyleFor(capture)
	return s.Traits
}

// AuxiliaryAttributes implements Resolver.
func (t *Theme) AuxiliaryAttributes(capture string) []core.AuxAttribute {
	s, _ := t.StyleFor(capture)
	return s.Auxiliary
}

// DefaultFont implements Resolver.
func (t *Theme) DefaultFont() core.FontRef {
	return t.BaseFont
}

// MisspelledTextAttributes implements Resolver.
func (t *Theme) MisspelledTextAttributes() core.AttributeSet {
	return t.Misspelled
}

// CaptureNames returns the capture names the theme styles, sorted.
func (t *Theme) CaptureNames() []string {
	names := make([]string, 0, len(t.Captures))
	for name := range t.Captures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry manages available themes.
type Registry struct {
	mu      sync.RWMutex
	themes  map[string]*Theme
	current string
}

// NewRegistry creates a registry holding the built-in themes.
func NewRegistry() *Registry {
	r := &Registry{
		themes: make(map[string]*Theme),
	}
	for _, t := range []*Theme{Default(), Monokai(), Light()} {
		r.Register(t)
	}
	r.current = Default().Name
	return r
}

// Register adds a theme, replacing any theme with the same name.
func (r *Registry) Register(theme *Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.themes[strings.ToLower(theme.Name)] = theme
}

// Get returns a theme by case-insensitive name.
func (r *Registry) Get(name string) (*Theme, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.themes[strings.ToLower(name)]
	return t, ok
}

// Current returns the current theme.
func (r *Registry) Current() *Theme {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.themes[strings.ToLower(r.current)]
}

// SetCurrent selects the current theme. Returns false if it is unknown.
func (r *Registry) SetCurrent(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.themes[strings.ToLower(name)]; !ok {
		return false
	}
	r.current = name
	return true
}

// Names returns all registered theme names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.themes))
	for _, t := range r.themes {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

package theme

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// ErrInvalidSpec is wrapped by every error Decode returns.
var ErrInvalidSpec = errors.New("invalid theme spec")

// Decode builds a theme from a generic map, as produced by the TOML, YAML
// and Lua loaders:
//
//	name = "Mine"
//	base = "default dark"            # optional built-in to extend
//	foreground = "#d4d4d4"
//	background = "#1e1e1e"
//	[default_font]
//	family = "Menlo"
//	size = 13
//	[captures.keyword]
//	color = "#569cd6"
//	bold = true
//	[captures.string]
//	color = "#ce9178"
//	underline = "#ff0000"
//	[[captures.string.attributes]]
//	key = "backgroundColor"
//	value = "#303030"
//	inset = [1, 1]
//	[misspelled]
//	underline = "#ff0000"
//
// The registry resolves "base"; it may be nil when no base is named.
func Decode(spec map[string]any, registry *Registry) (*Theme, error) {
	var t *Theme
	if base, ok := spec["base"].(string); ok && base != "" {
		if registry == nil {
			return nil, fmt.Errorf("%w: base %q without a registry", ErrInvalidSpec, base)
		}
		b, ok := registry.Get(base)
		if !ok {
			return nil, fmt.Errorf("%w: unknown base theme %q", ErrInvalidSpec, base)
		}
		t = b.Clone()
	} else {
		t = New("", DefaultFont)
	}

	if name, ok := spec["name"].(string); ok {
		t.Name = name
	}
	if t.Name == "" {
		t.Name = "Custom"
	}

	var err error
	if v, ok := spec["foreground"]; ok {
		if t.Foreground, err = decodeColor(v); err != nil {
			return nil, fmt.Errorf("%w: foreground: %v", ErrInvalidSpec, err)
		}
	}
	if v, ok := spec["background"]; ok {
		if t.Background, err = decodeColor(v); err != nil {
			return nil, fmt.Errorf("%w: background: %v", ErrInvalidSpec, err)
		}
	}
	if v, ok := spec["default_font"]; ok {
		f, err := decodeFont(v, t.BaseFont)
		if err != nil {
			return nil, fmt.Errorf("%w: default_font: %v", ErrInvalidSpec, err)
		}
		t.BaseFont = f
	}

	if v, ok := spec["captures"]; ok {
		captures, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: captures must be a table, got %T", ErrInvalidSpec, v)
		}
		names := make([]string, 0, len(captures))
		for name := range captures {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry, ok := captures[name].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: capture %q must be a table", ErrInvalidSpec, name)
			}
			style, err := decodeCaptureStyle(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: capture %q: %v", ErrInvalidSpec, name, err)
			}
			t.Captures[name] = style
		}
	}

	if v, ok := spec["misspelled"]; ok {
		entry, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: misspelled must be a table", ErrInvalidSpec)
		}
		set, err := decodeAttributeSet(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: misspelled: %v", ErrInvalidSpec, err)
		}
		t.Misspelled = set
	}

	return t, nil
}

func decodeCaptureStyle(m map[string]any) (CaptureStyle, error) {
	var s CaptureStyle
	if v, ok := m["color"]; ok {
		c, err := decodeColor(v)
		if err != nil {
			return s, err
		}
		s.Color = &c
	}
	if v, ok := m["bold"]; ok {
		b, err := decodeBool(v)
		if err != nil {
			return s, fmt.Errorf("bold: %w", err)
		}
		if b {
			s.Traits |= core.TraitBold
		}
	}
	if v, ok := m["italic"]; ok {
		b, err := decodeBool(v)
		if err != nil {
			return s, fmt.Errorf("italic: %w", err)
		}
		if b {
			s.Traits |= core.TraitItalic
		}
	}
	if v, ok := m["font"]; ok {
		f, err := decodeFont(v, core.FontRef{})
		if err != nil {
			return s, fmt.Errorf("font: %w", err)
		}
		s.Font = &f
	}
	if v, ok := m["shadow"]; ok {
		sh, err := decodeShadow(v)
		if err != nil {
			return s, fmt.Errorf("shadow: %w", err)
		}
		s.Shadow = &sh
	}
	for _, key := range []core.AttributeKey{core.KeyUnderline, core.KeyStrikethrough, core.KeyBackground} {
		v, ok := m[shortKey(key)]
		if !ok {
			continue
		}
		val, present, err := decodeLineColor(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", shortKey(key), err)
		}
		if present {
			s = s.With(key, val, core.SubrangeRule{})
		}
	}
	if v, ok := m["attributes"]; ok {
		list, ok := v.([]any)
		if !ok {
			return s, fmt.Errorf("attributes must be a list, got %T", v)
		}
		for i, item := range list {
			entry, ok := item.(map[string]any)
			if !ok {
				return s, fmt.Errorf("attributes[%d] must be a table", i)
			}
			aux, err := decodeAux(entry)
			if err != nil {
				return s, fmt.Errorf("attributes[%d]: %w", i, err)
			}
			s.Auxiliary = append(s.Auxiliary, aux)
		}
	}
	return s, nil
}

func decodeAux(m map[string]any) (core.AuxAttribute, error) {
	var aux core.AuxAttribute
	key, ok := m["key"].(string)
	if !ok || key == "" {
		return aux, errors.New("key is required")
	}
	aux.Key = core.AttributeKey(key)

	value, err := decodeAttributeValue(aux.Key, m["value"])
	if err != nil {
		return aux, err
	}
	aux.Value = value

	switch {
	case m["inset"] != nil:
		pair, ok := m["inset"].([]any)
		if !ok || len(pair) != 2 {
			return aux, errors.New("inset must be [leading, trailing]")
		}
		leading, err := decodeInt(pair[0])
		if err != nil {
			return aux, fmt.Errorf("inset: %w", err)
		}
		trailing, err := decodeInt(pair[1])
		if err != nil {
			return aux, fmt.Errorf("inset: %w", err)
		}
		aux.Placement = core.Inset(leading, trailing)
	case m["from_start"] != nil:
		n, err := decodeInt(m["from_start"])
		if err != nil {
			return aux, fmt.Errorf("from_start: %w", err)
		}
		aux.Placement = core.FromStart(n)
	case m["from_end"] != nil:
		n, err := decodeInt(m["from_end"])
		if err != nil {
			return aux, fmt.Errorf("from_end: %w", err)
		}
		aux.Placement = core.FromEnd(n)
	}
	return aux, nil
}

// decodeAttributeSet decodes a flat table such as the misspelled style.
func decodeAttributeSet(m map[string]any) (core.AttributeSet, error) {
	set := make(core.AttributeSet, len(m))
	for k, v := range m {
		key := longKey(k)
		value, err := decodeAttributeValue(key, v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		if b, ok := value.(bool); ok && !b {
			continue
		}
		set[key] = value
	}
	return set, nil
}

func decodeAttributeValue(key core.AttributeKey, v any) (any, error) {
	switch key {
	case core.KeyForeground, core.KeyBackground:
		return decodeColor(v)
	case core.KeyUnderline, core.KeyStrikethrough:
		c, present, err := decodeLineColor(v)
		if err != nil {
			return nil, err
		}
		if !present {
			return false, nil
		}
		return c, nil
	case core.KeyShadow:
		return decodeShadow(v)
	case core.KeyFont:
		return decodeFont(v, core.FontRef{})
	case core.KeyKern:
		return decodeFloat(v)
	default:
		if v == nil {
			return nil, fmt.Errorf("value for %q is required", key)
		}
		return v, nil
	}
}

// decodeLineColor accepts true (default-colored line), false (absent) or a color.
func decodeLineColor(v any) (core.Color, bool, error) {
	if b, ok := v.(bool); ok {
		return core.ColorDefault, b, nil
	}
	c, err := decodeColor(v)
	return c, err == nil, err
}

func decodeColor(v any) (core.Color, error) {
	s, ok := v.(string)
	if !ok {
		return core.Color{}, fmt.Errorf("color must be a string, got %T", v)
	}
	return core.ParseColor(s)
}

// decodeFont overlays v on base. Omitted fields keep the base value; the
// result must still name a family.
func decodeFont(v any, base core.FontRef) (core.FontRef, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return base, fmt.Errorf("font must be a table, got %T", v)
	}
	f := base
	if family, ok := m["family"].(string); ok {
		f.Family = family
	}
	if size, ok := m["size"]; ok {
		n, err := decodeFloat(size)
		if err != nil {
			return base, fmt.Errorf("size: %w", err)
		}
		f.Size = n
	}
	if f.Family == "" {
		return base, errors.New("font family is required")
	}
	return f, nil
}

func decodeShadow(v any) (core.Shadow, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return core.Shadow{}, fmt.Errorf("shadow must be a table, got %T", v)
	}
	var sh core.Shadow
	var err error
	if c, ok := m["color"]; ok {
		if sh.Color, err = decodeColor(c); err != nil {
			return sh, err
		}
	}
	for name, dst := range map[string]*float64{"x": &sh.OffsetX, "y": &sh.OffsetY, "blur": &sh.Blur} {
		if n, ok := m[name]; ok {
			if *dst, err = decodeFloat(n); err != nil {
				return sh, fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return sh, nil
}

func decodeBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
	return b, nil
}

func decodeFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func decodeInt(v any) (int, error) {
	f, err := decodeFloat(v)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int(f), nil
}

// shortKey is the spelling used for well-known keys inside capture tables.
func shortKey(key core.AttributeKey) string {
	switch key {
	case core.KeyForeground:
		return "color"
	case core.KeyBackground:
		return "background"
	default:
		return string(key)
	}
}

// longKey maps a short spelling back to its attribute key.
func longKey(s string) core.AttributeKey {
	switch s {
	case "color", "foreground":
		return core.KeyForeground
	case "background":
		return core.KeyBackground
	default:
		return core.AttributeKey(s)
	}
}

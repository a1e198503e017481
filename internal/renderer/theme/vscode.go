package theme

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// textMateScopes maps TextMate scope prefixes to capture names.
var textMateScopes = map[string]string{
	"comment":                     "comment",
	"comment.block.documentation": "comment.documentation",
	"constant":                    "constant",
	"constant.character.escape":   "string.escape",
	"constant.language":           "constant.builtin",
	"constant.numeric":            "number",
	"entity.name.function":        "function",
	"entity.name.namespace":       "namespace",
	"entity.name.tag":             "tag",
	"entity.name.type":            "type",
	"entity.other.attribute-name": "attribute",
	"invalid":                     "error",
	"keyword":                     "keyword",
	"keyword.operator":            "operator",
	"markup.bold":                 "markup.bold",
	"markup.heading":              "markup.heading",
	"markup.inline.raw":           "markup.raw",
	"markup.italic":               "markup.italic",
	"markup.strikethrough":        "markup.strikethrough",
	"markup.underline.link":       "markup.link",
	"punctuation":                 "punctuation",
	"storage":                     "keyword",
	"storage.type":                "type",
	"string":                      "string",
	"string.regexp":               "string.regexp",
	"support.function":            "function.builtin",
	"support.type":                "type",
	"support.type.property-name":  "property",
	"variable":                    "variable",
	"variable.language":           "variable.builtin",
	"variable.other.property":     "property",
	"variable.parameter":          "variable.parameter",
}

// captureForScope returns the capture name for a TextMate scope and the
// scope's specificity, which grows with the length of the selector.
func captureForScope(scope string) (string, int) {
	scope = strings.TrimSpace(scope)
	// Descendant selectors like "meta.function variable" style their last part.
	if i := strings.LastIndexByte(scope, ' '); i >= 0 {
		scope = scope[i+1:]
	}
	for s := scope; s != ""; {
		if capture, ok := textMateScopes[s]; ok {
			return capture, len(scope)
		}
		i := strings.LastIndexByte(s, '.')
		if i < 0 {
			break
		}
		s = s[:i]
	}
	return "", 0
}

// LoadVSCode converts a VS Code color theme (JSON without comments).
// Token colors are matched to capture names by their TextMate scopes; when
// several scopes land on one capture the most specific wins.
func LoadVSCode(data []byte, font core.FontRef) (*Theme, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: vscode theme is not valid JSON", ErrInvalidSpec)
	}
	doc := gjson.ParseBytes(data)

	name := doc.Get("name").String()
	if name == "" {
		name = "VS Code"
	}
	t := New(name, font)

	var err error
	if fg := doc.Get(`colors.editor\.foreground`); fg.Exists() {
		if t.Foreground, err = parseVSCodeColor(fg.String()); err != nil {
			return nil, fmt.Errorf("%w: editor.foreground: %v", ErrInvalidSpec, err)
		}
	}
	if bg := doc.Get(`colors.editor\.background`); bg.Exists() {
		if t.Background, err = parseVSCodeColor(bg.String()); err != nil {
			return nil, fmt.Errorf("%w: editor.background: %v", ErrInvalidSpec, err)
		}
	}

	specificity := make(map[string]int)
	var convErr error
	doc.Get("tokenColors").ForEach(func(_, rule gjson.Result) bool {
		style, err := vscodeStyle(rule.Get("settings"))
		if err != nil {
			convErr = err
			return false
		}
		for _, scope := range vscodeScopes(rule.Get("scope")) {
			capture, n := captureForScope(scope)
			if capture == "" || n < specificity[capture] {
				continue
			}
			specificity[capture] = n
			t.Captures[capture] = style
		}
		return true
	})
	if convErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, convErr)
	}

	if c, ok := t.TextColor("error"); ok {
		t.Misspelled = core.AttributeSet{core.KeyUnderline: c}
	} else {
		t.Misspelled = core.AttributeSet{core.KeyUnderline: core.ColorRed}
	}
	return t, nil
}

// LoadVSCodeFile reads a VS Code color theme from disk.
func LoadVSCodeFile(path string, font core.FontRef) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme %s: %w", path, err)
	}
	return LoadVSCode(data, font)
}

// vscodeScopes accepts "a, b" strings and ["a", "b"] arrays.
func vscodeScopes(v gjson.Result) []string {
	var scopes []string
	add := func(s string) {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				scopes = append(scopes, part)
			}
		}
	}
	if v.IsArray() {
		for _, item := range v.Array() {
			add(item.String())
		}
	} else {
		add(v.String())
	}
	return scopes
}

func vscodeStyle(settings gjson.Result) (CaptureStyle, error) {
	var s CaptureStyle
	if fg := settings.Get("foreground"); fg.Exists() {
		c, err := parseVSCodeColor(fg.String())
		if err != nil {
			return s, err
		}
		s.Color = &c
	}
	if bg := settings.Get("background"); bg.Exists() {
		c, err := parseVSCodeColor(bg.String())
		if err != nil {
			return s, err
		}
		s = s.With(core.KeyBackground, c, core.SubrangeRule{})
	}
	for _, word := range strings.Fields(settings.Get("fontStyle").String()) {
		switch word {
		case "bold":
			s = s.Bold()
		case "italic":
			s = s.Italic()
		case "underline":
			s = s.Underline()
		case "strikethrough":
			s = s.Strikethrough()
		}
	}
	return s, nil
}

// parseVSCodeColor drops the alpha channel of #RRGGBBAA and #RGBA colors.
func parseVSCodeColor(s string) (core.Color, error) {
	switch len(s) {
	case 9:
		s = s[:7]
	case 5:
		s = s[:4]
	}
	return core.ParseColor(s)
}

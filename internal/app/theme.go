package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/capstyle/internal/config"
	"github.com/dshills/capstyle/internal/config/loader"
	"github.com/dshills/capstyle/internal/renderer/theme"
)

// maxThemeIncludeDepth bounds @include chains in TOML and YAML themes.
const maxThemeIncludeDepth = 8

// BuildTheme resolves the theme cfg selects and applies its inline
// overrides. A theme file wins over a chroma style, which wins over a
// theme name. Names are looked up in registry first and then among chroma's
// styles. Themes loaded from files or chroma are registered so later specs
// can name them as a base.
func BuildTheme(ctx context.Context, cfg *config.Config, registry *theme.Registry) (*theme.Theme, error) {
	base, err := baseTheme(ctx, cfg.Theme, registry)
	if err != nil {
		return nil, err
	}

	spec := cfg.ThemeSpec()
	if spec == nil {
		return base, nil
	}
	spec["base"] = base.Name
	spec["name"] = base.Name
	t, err := theme.Decode(spec, registry)
	if err != nil {
		return nil, NewOperationError("theme", base.Name, err).WithContext("overrides")
	}
	return t, nil
}

func baseTheme(ctx context.Context, tc config.ThemeConfig, registry *theme.Registry) (*theme.Theme, error) {
	switch {
	case tc.File != "":
		t, err := LoadThemeFile(ctx, tc.File, registry)
		if err != nil {
			return nil, err
		}
		registry.Register(t)
		return t, nil

	case tc.ChromaStyle != "":
		t, ok := theme.LookupChroma(tc.ChromaStyle, theme.DefaultFont)
		if !ok {
			return nil, NewOperationError("theme", tc.ChromaStyle, ErrThemeNotFound).WithContext("chroma style")
		}
		registry.Register(t)
		return t, nil
	}

	name := tc.Name
	if name == "" {
		return registry.Current(), nil
	}
	if t, ok := registry.Get(name); ok {
		return t, nil
	}
	if t, ok := theme.LookupChroma(name, theme.DefaultFont); ok {
		registry.Register(t)
		return t, nil
	}
	return nil, NewOperationError("theme", name, ErrThemeNotFound)
}

// LoadThemeFile loads a theme by extension: .lua scripts, .json VS Code
// color themes, and .toml or .yaml theme specs.
func LoadThemeFile(ctx context.Context, path string, registry *theme.Registry) (*theme.Theme, error) {
	var (
		t   *theme.Theme
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		t, err = theme.LoadLuaFile(ctx, path, registry)
	case ".json":
		t, err = theme.LoadVSCodeFile(path, theme.DefaultFont)
	case ".toml", ".yaml", ".yml":
		var spec map[string]any
		spec, err = loader.LoadWithIncludes(loader.DefaultFS(), path, maxThemeIncludeDepth)
		if err == nil && spec == nil {
			err = fmt.Errorf("%w: %s", config.ErrFileNotFound, path)
		}
		if err == nil {
			t, err = theme.Decode(spec, registry)
		}
	default:
		err = ErrUnsupportedThemeFile
	}

	if err != nil {
		return nil, NewOperationError("load theme", path, err)
	}
	return t, nil
}

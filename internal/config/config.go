package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/capstyle/internal/config/loader"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "CAPSTYLE_"

// maxIncludeDepth bounds nested "@include" directives.
const maxIncludeDepth = 8

// Config holds every capstyle setting.
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`
	Highlight HighlightConfig `toml:"highlight"`
	Theme     ThemeConfig     `toml:"theme"`
	Spell     SpellConfig     `toml:"spell"`
	Render    RenderConfig    `toml:"render"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `toml:"level"`
}

// HighlightConfig controls the highlight worker pool.
type HighlightConfig struct {
	// Workers is the number of pool goroutines.
	Workers int `toml:"workers"`

	// QueueSize bounds the number of scheduled passes.
	QueueSize int `toml:"queue_size"`

	// Async highlights lines through the pool instead of inline.
	Async bool `toml:"async"`
}

// ThemeConfig selects and customizes the theme.
type ThemeConfig struct {
	// Name is a built-in theme.
	Name string `toml:"name"`

	// ChromaStyle, when set, builds the theme from a chroma style instead.
	ChromaStyle string `toml:"chroma_style"`

	// File loads the theme from a .lua, .json, .toml or .yaml file.
	File string `toml:"file"`

	// DefaultFont overrides the theme's base font.
	DefaultFont FontConfig `toml:"default_font"`

	// Captures overrides individual capture styles.
	Captures map[string]any `toml:"captures"`

	// Misspelled overrides the misspelled-word style.
	Misspelled map[string]any `toml:"misspelled"`
}

// FontConfig names a font.
type FontConfig struct {
	Family string  `toml:"family"`
	Size   float64 `toml:"size"`
}

// SpellConfig controls the spell pass.
type SpellConfig struct {
	Enabled       bool   `toml:"enabled"`
	Dictionary    string `toml:"dictionary"`
	MinWordLength int    `toml:"min_word_length"`
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	// ColorDepth is truecolor, 256 or none.
	ColorDepth string `toml:"color_depth"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Highlight: HighlightConfig{
			Workers:   2,
			QueueSize: 256,
		},
		Theme: ThemeConfig{Name: "Default Dark"},
		Spell: SpellConfig{MinWordLength: 2},
		Render: RenderConfig{
			ColorDepth: "truecolor",
		},
	}
}

// envMapping maps short environment names onto setting paths. Other
// CAPSTYLE_SECTION_KEY variables map to section.key.
var envMapping = map[string]string{
	"CAPSTYLE_LOG_LEVEL":    "logging.level",
	"CAPSTYLE_THEME":        "theme.name",
	"CAPSTYLE_CHROMA_STYLE": "theme.chroma_style",
	"CAPSTYLE_THEME_FILE":   "theme.file",
	"CAPSTYLE_WORKERS":      "highlight.workers",
	"CAPSTYLE_ASYNC":        "highlight.async",
	"CAPSTYLE_DICTIONARY":   "spell.dictionary",
	"CAPSTYLE_COLOR_DEPTH":  "render.color_depth",
}

// Options controls where Load reads from.
type Options struct {
	// Path is the config file. Empty skips the file layer.
	Path string

	// Required makes a missing file an error.
	Required bool

	// FS reads files. Nil uses the OS file system.
	FS loader.FileSystem

	// SkipEnv ignores the environment.
	SkipEnv bool
}

// Load layers defaults, the config file and the environment, then decodes
// and validates the result.
func Load(opts Options) (*Config, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = loader.DefaultFS()
	}

	merged := map[string]any{}
	if opts.Path != "" {
		file, err := loader.LoadWithIncludes(fsys, opts.Path, maxIncludeDepth)
		if err != nil {
			return nil, err
		}
		if file == nil && opts.Required {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, opts.Path)
		}
		merged = loader.DeepMerge(merged, file)
	}

	if !opts.SkipEnv {
		env, err := loader.NewEnvLoaderWithMapping(EnvPrefix, envMapping).Load()
		if err != nil {
			return nil, fmt.Errorf("reading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, env)
	}

	cfg, err := FromMap(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromMap decodes a settings map over the defaults. Unknown keys are
// ignored.
func FromMap(m map[string]any) (*Config, error) {
	cfg := Default()
	if len(m) == 0 {
		return cfg, nil
	}

	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &ParseError{Path: "<settings>", Message: err.Error(), Err: err}
	}
	return cfg, nil
}

var (
	logLevels   = []string{"debug", "info", "warn", "warning", "error"}
	colorDepths = []string{"truecolor", "24bit", "256", "none", "mono"}
)

// Validate reports every invalid setting, joined.
func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.Logging.Level, logLevels) {
		errs = append(errs, &ValidationError{Path: "logging.level", Value: c.Logging.Level, Message: "must be one of " + strings.Join(logLevels, ", ")})
	}
	if c.Highlight.Workers < 1 {
		errs = append(errs, &ValidationError{Path: "highlight.workers", Value: c.Highlight.Workers, Message: "must be at least 1"})
	}
	if c.Highlight.QueueSize < 1 {
		errs = append(errs, &ValidationError{Path: "highlight.queue_size", Value: c.Highlight.QueueSize, Message: "must be at least 1"})
	}
	if c.Theme.DefaultFont.Size < 0 {
		errs = append(errs, &ValidationError{Path: "theme.default_font.size", Value: c.Theme.DefaultFont.Size, Message: "must not be negative"})
	}
	if c.Theme.File != "" {
		if _, err := os.Stat(c.Theme.File); err != nil {
			errs = append(errs, &ValidationError{Path: "theme.file", Value: c.Theme.File, Message: err.Error()})
		}
	}
	if c.Spell.MinWordLength < 1 {
		errs = append(errs, &ValidationError{Path: "spell.min_word_length", Value: c.Spell.MinWordLength, Message: "must be at least 1"})
	}
	if !oneOf(c.Render.ColorDepth, colorDepths) {
		errs = append(errs, &ValidationError{Path: "render.color_depth", Value: c.Render.ColorDepth, Message: "must be one of " + strings.Join(colorDepths, ", ")})
	}
	return errors.Join(errs...)
}

// ThemeSpec returns the theme overrides in the form theme.Decode accepts.
// It returns nil when nothing is overridden.
func (c *Config) ThemeSpec() map[string]any {
	spec := map[string]any{}
	if c.Theme.DefaultFont.Family != "" || c.Theme.DefaultFont.Size > 0 {
		font := map[string]any{}
		if c.Theme.DefaultFont.Family != "" {
			font["family"] = c.Theme.DefaultFont.Family
		}
		if c.Theme.DefaultFont.Size > 0 {
			font["size"] = c.Theme.DefaultFont.Size
		}
		spec["default_font"] = font
	}
	if len(c.Theme.Captures) > 0 {
		spec["captures"] = loader.Clone(c.Theme.Captures)
	}
	if len(c.Theme.Misspelled) > 0 {
		spec["misspelled"] = loader.Clone(c.Theme.Misspelled)
	}
	if len(spec) == 0 {
		return nil
	}
	return spec
}

func oneOf(s string, options []string) bool {
	s = strings.ToLower(s)
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

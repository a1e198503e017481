package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/capstyle/internal/config/loader"
)

type memFS map[string]string

func (m memFS) Open(name string) (fs.File, error) { return nil, fs.ErrNotExist }

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func (m memFS) Stat(path string) (fs.FileInfo, error) { return nil, fs.ErrNotExist }

var _ loader.FileSystem = memFS{}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Highlight.Workers != 2 || cfg.Highlight.QueueSize != 256 {
		t.Errorf("highlight defaults = %+v", cfg.Highlight)
	}
	if cfg.Theme.Name != "Default Dark" {
		t.Errorf("theme = %q", cfg.Theme.Name)
	}
	if cfg.ThemeSpec() != nil {
		t.Error("defaults should not override the theme")
	}
}

func TestLoad_Layers(t *testing.T) {
	fsys := memFS{
		"/capstyle.toml": `
[logging]
level = "debug"

[highlight]
workers = 4
async = true

[theme]
name = "Monokai"

[theme.default_font]
family = "Fira Code"
size = 13.0

[theme.captures.keyword]
color = "#ff0000"
bold = true

[spell]
enabled = true
`,
	}
	t.Setenv("CAPSTYLE_WORKERS", "8")
	t.Setenv("CAPSTYLE_SPELL_MIN_WORD_LENGTH", "3")

	cfg, err := Load(Options{Path: "/capstyle.toml", FS: fsys})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if cfg.Highlight.Workers != 8 {
		t.Errorf("workers = %d, want 8 from environment", cfg.Highlight.Workers)
	}
	if cfg.Highlight.QueueSize != 256 {
		t.Errorf("queue size = %d, want default 256", cfg.Highlight.QueueSize)
	}
	if !cfg.Highlight.Async || !cfg.Spell.Enabled {
		t.Error("async and spell should be enabled")
	}
	if cfg.Spell.MinWordLength != 3 {
		t.Errorf("min word length = %d, want 3", cfg.Spell.MinWordLength)
	}
	if cfg.Theme.Name != "Monokai" {
		t.Errorf("theme = %q", cfg.Theme.Name)
	}

	spec := cfg.ThemeSpec()
	font, ok := spec["default_font"].(map[string]any)
	if !ok || font["family"] != "Fira Code" || font["size"] != 13.0 {
		t.Errorf("default_font spec = %v", spec["default_font"])
	}
	kw, ok := spec["captures"].(map[string]any)["keyword"].(map[string]any)
	if !ok || kw["color"] != "#ff0000" || kw["bold"] != true {
		t.Errorf("keyword spec = %v", kw)
	}
}

func TestLoad_YAML(t *testing.T) {
	fsys := memFS{
		"/capstyle.yaml": "highlight:\n  queue_size: 32\nrender:\n  color_depth: \"256\"\n",
	}
	cfg, err := Load(Options{Path: "/capstyle.yaml", FS: fsys, SkipEnv: true})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Highlight.QueueSize != 32 {
		t.Errorf("queue size = %d", cfg.Highlight.QueueSize)
	}
	if cfg.Render.ColorDepth != "256" {
		t.Errorf("color depth = %q", cfg.Render.ColorDepth)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(Options{Path: "/missing.toml", FS: memFS{}, SkipEnv: true})
	if err != nil {
		t.Fatalf("optional missing file: %v", err)
	}
	if cfg.Highlight.Workers != 2 {
		t.Error("missing file should yield defaults")
	}

	_, err = Load(Options{Path: "/missing.toml", FS: memFS{}, SkipEnv: true, Required: true})
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("error = %v, want ErrFileNotFound", err)
	}
}

func TestLoad_ParseError(t *testing.T) {
	fsys := memFS{"/bad.toml": "[highlight\nworkers = 2"}
	_, err := Load(Options{Path: "/bad.toml", FS: fsys, SkipEnv: true})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if perr.Path != "/bad.toml" {
		t.Errorf("Path = %q", perr.Path)
	}
}

func TestLoad_TypeMismatch(t *testing.T) {
	fsys := memFS{"/c.toml": "[highlight]\nworkers = \"many\"\n"}
	_, err := Load(Options{Path: "/c.toml", FS: fsys, SkipEnv: true})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("error = %v, want *ParseError", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		path   string
	}{
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"workers", func(c *Config) { c.Highlight.Workers = 0 }, "highlight.workers"},
		{"queue", func(c *Config) { c.Highlight.QueueSize = -1 }, "highlight.queue_size"},
		{"font size", func(c *Config) { c.Theme.DefaultFont.Size = -2 }, "theme.default_font.size"},
		{"theme file", func(c *Config) { c.Theme.File = "/no/such/theme.lua" }, "theme.file"},
		{"word length", func(c *Config) { c.Spell.MinWordLength = 0 }, "spell.min_word_length"},
		{"color depth", func(c *Config) { c.Render.ColorDepth = "sepia" }, "render.color_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("Validate() = %v, want ErrValidationFailed", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Path != tt.path {
				t.Errorf("error = %v, want path %s", err, tt.path)
			}
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Highlight.Workers = 0
	cfg.Spell.MinWordLength = 0

	err := cfg.Validate()
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 2 {
		t.Errorf("Validate() = %v, want two joined errors", err)
	}
}

func TestWatch_Reloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capstyle.toml")
	if err := os.WriteFile(path, []byte("[highlight]\nworkers = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 4)
	failed := make(chan error, 4)
	w, err := Watch(Options{Path: path, SkipEnv: true},
		func(c *Config) { reloaded <- c },
		func(err error) { failed <- err },
	)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[highlight]\nworkers = 6\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Highlight.Workers != 6 {
			t.Errorf("reloaded workers = %d, want 6", cfg.Highlight.Workers)
		}
	case err := <-failed:
		t.Fatalf("reload failed: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload")
	}

	if err := os.WriteFile(path, []byte("[highlight]\nworkers = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-failed:
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("reload error = %v", err)
		}
	case cfg := <-reloaded:
		t.Fatalf("invalid config was delivered: %+v", cfg.Highlight)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload error")
	}
}

package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dshills/capstyle/internal/config"
	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/font"
	"github.com/dshills/capstyle/internal/renderer/highlight"
	"github.com/dshills/capstyle/internal/renderer/styled"
)

const goSample = "package main\n\nfunc main() {}\n"

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, WithLogger(NewLogger(LoggerConfig{Output: io.Discard})))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return a
}

func foreground(t *testing.T, line *styled.Text, loc int) core.Color {
	t.Helper()
	v, ok := line.Attribute(core.KeyForeground, loc)
	if !ok {
		t.Fatalf("no foreground at %d in %q", loc, line.Text())
	}
	c, ok := v.(core.Color)
	if !ok {
		t.Fatalf("foreground is %T", v)
	}
	return c
}

func TestNew_Defaults(t *testing.T) {
	a := newTestApp(t, nil)

	if a.Theme().Name != "Default Dark" {
		t.Errorf("Theme = %q", a.Theme().Name)
	}
	if a.Config().Highlight.Workers != 2 {
		t.Errorf("Workers = %d", a.Config().Highlight.Workers)
	}
	if a.Logger().Level() != LogLevelInfo {
		t.Errorf("log level = %v", a.Logger().Level())
	}
	if a.Themes() == nil || a.Metrics() == nil {
		t.Error("registry and metrics should be set")
	}
}

func TestNew_LogsFontFamilies(t *testing.T) {
	fonts := font.NewRegistry()
	fonts.Register("Menlo", core.TraitNone, core.TraitBold)

	var buf bytes.Buffer
	a, err := New(context.Background(), nil,
		WithLogger(NewLogger(LoggerConfig{Output: &buf})),
		WithFontRegistry(fonts),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(context.Background())

	if !strings.Contains(buf.String(), "1 font families") {
		t.Errorf("startup log missing font families:\n%s", buf.String())
	}
}

func TestNew_BadTheme(t *testing.T) {
	cfg := config.Default()
	cfg.Theme.Name = "no-such-theme"

	_, err := New(context.Background(), cfg, WithLogger(NullLogger))
	if !errors.Is(err, ErrInitialization) || !errors.Is(err, ErrThemeNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestApp_Highlight(t *testing.T) {
	for _, async := range []bool{false, true} {
		name := "sync"
		if async {
			name = "async"
		}
		t.Run(name, func(t *testing.T) {
			a := newTestApp(t, nil)
			doc, err := a.Open(context.Background(), "main.go", []byte(goSample), "")
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if !doc.CanHighlight() {
				t.Fatal("go should be highlightable")
			}
			if err := doc.Highlight(context.Background(), async); err != nil {
				t.Fatalf("Highlight: %v", err)
			}

			lines := doc.Lines()
			if len(lines) != 3 {
				t.Fatalf("lines = %d, expected 3", len(lines))
			}
			keyword, _ := a.Theme().TextColor("keyword")
			if got := foreground(t, lines[0], 0); !got.Equals(keyword) {
				t.Errorf("package foreground = %v, expected %v", got, keyword)
			}
			if got := foreground(t, lines[2], 0); !got.Equals(keyword) {
				t.Errorf("func foreground = %v, expected %v", got, keyword)
			}

			if s := a.Metrics().Snapshot(); s.Passes != 3 {
				t.Errorf("Passes = %d, expected 3", s.Passes)
			}
		})
	}
}

func TestApp_HighlightTwiceDoesNotStack(t *testing.T) {
	a := newTestApp(t, nil)
	doc, err := a.Open(context.Background(), "main.go", []byte(goSample), "go")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := doc.Highlight(context.Background(), true); err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	before := len(doc.Lines()[0].Runs())

	if err := doc.Highlight(context.Background(), true); err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	if after := len(doc.Lines()[0].Runs()); after != before {
		t.Errorf("runs changed from %d to %d", before, after)
	}
}

func TestApp_HighlightCancelled(t *testing.T) {
	a := newTestApp(t, nil)
	doc, err := a.Open(context.Background(), "main.go", []byte(goSample), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := doc.Highlight(ctx, true); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, expected context.Canceled", err)
	}
}

func TestApp_ApplyConfig(t *testing.T) {
	a := newTestApp(t, nil)
	doc, err := a.Open(context.Background(), "main.go", []byte(goSample), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := doc.Highlight(context.Background(), false); err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	old := foreground(t, doc.Lines()[0], 0)

	cfg := config.Default()
	cfg.Theme.Name = "Monokai"
	cfg.Logging.Level = "debug"
	if err := a.ApplyConfig(context.Background(), cfg); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if a.Theme().Name != "Monokai" {
		t.Errorf("Theme = %q", a.Theme().Name)
	}
	if a.Logger().Level() != LogLevelDebug {
		t.Errorf("log level = %v", a.Logger().Level())
	}

	if err := doc.Highlight(context.Background(), true); err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	keyword, _ := a.Theme().TextColor("keyword")
	got := foreground(t, doc.Lines()[0], 0)
	if !got.Equals(keyword) || got.Equals(old) {
		t.Errorf("foreground = %v, expected %v", got, keyword)
	}

	bad := config.Default()
	bad.Theme.Name = "no-such-theme"
	if err := a.ApplyConfig(context.Background(), bad); !errors.Is(err, ErrThemeNotFound) {
		t.Errorf("err = %v", err)
	}
	if a.Theme().Name != "Monokai" {
		t.Error("failed ApplyConfig changed the theme")
	}
}

func TestApp_Spelling(t *testing.T) {
	dict := writeFile(t, "words.txt", "world\n")
	cfg := config.Default()
	cfg.Spell.Enabled = true
	cfg.Spell.Dictionary = dict

	a := newTestApp(t, cfg)
	doc, err := a.Open(context.Background(), "hello.py", []byte("# helo world\n"), "python")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := doc.Highlight(context.Background(), true); err != nil {
		t.Fatalf("Highlight: %v", err)
	}

	line := doc.Lines()[0]
	if _, ok := line.Attribute(core.KeyUnderline, 2); !ok {
		t.Error("helo should be underlined")
	}
	if _, ok := line.Attribute(core.KeyUnderline, 8); ok {
		t.Error("world should not be underlined")
	}

	off := config.Default()
	if err := a.ApplyConfig(context.Background(), off); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if err := doc.Highlight(context.Background(), false); err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	if _, ok := doc.Lines()[0].Attribute(core.KeyUnderline, 2); ok {
		t.Error("underline survived disabling spelling")
	}
}

func TestApp_Close(t *testing.T) {
	a, err := New(context.Background(), nil, WithLogger(NullLogger))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	doc, err := a.Open(context.Background(), "main.go", []byte(goSample), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if _, err := a.Open(context.Background(), "x.go", nil, ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Open after Close: %v", err)
	}
	if err := a.ApplyConfig(context.Background(), config.Default()); !errors.Is(err, ErrClosed) {
		t.Errorf("ApplyConfig after Close: %v", err)
	}
	if err := doc.Highlight(context.Background(), true); !errors.Is(err, highlight.ErrDeallocated) {
		t.Errorf("Highlight after Close: %v", err)
	}
	if s := a.Metrics().Snapshot(); s.Deallocated != 1 {
		t.Errorf("Deallocated = %d", s.Deallocated)
	}
}

// Package main is the entry point for capstyle, a syntax-highlighting
// viewer built on tree-sitter and chroma captures.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/capstyle/internal/app"
	"github.com/dshills/capstyle/internal/config"
	"github.com/dshills/capstyle/internal/renderer/backend"
	"github.com/dshills/capstyle/internal/renderer/theme"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the command line.
type options struct {
	ConfigPath string
	Theme      string
	Style      string
	Lang       string
	LogLevel   string
	ColorDepth string
	Dump       string
	Async      bool
	Watch      bool
	ListThemes bool
	File       string
}

// apply overlays the flags that were set on cfg.
func (o options) apply(cfg *config.Config) {
	if o.Theme != "" {
		cfg.Theme.Name = o.Theme
		cfg.Theme.File = ""
		cfg.Theme.ChromaStyle = ""
	}
	if o.Style != "" {
		cfg.Theme.ChromaStyle = o.Style
		cfg.Theme.File = ""
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.ColorDepth != "" {
		cfg.Render.ColorDepth = o.ColorDepth
	}
	if o.Async {
		cfg.Highlight.Async = true
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if opts.File == "" && !opts.ListThemes {
		fmt.Fprintln(stderr, "Error: no file given")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := app.NewLogger(app.LoggerConfig{
		Level:  app.ParseLogLevel(cfg.Logging.Level),
		Output: stderr,
		Prefix: "capstyle",
	})
	a, err := app.New(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}()

	if opts.ListThemes {
		listThemes(stdout, a.Themes())
		return 0
	}

	content, err := os.ReadFile(opts.File)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	doc, err := a.Open(ctx, opts.File, content, opts.Lang)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if !doc.CanHighlight() {
		logger.Warn("no grammar for %s, showing plain text", opts.File)
	}
	if err := doc.Highlight(ctx, cfg.Highlight.Async); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.Dump != "" {
		depth, err := backend.ParseColorDepth(cfg.Render.ColorDepth)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := dump(stdout, doc, opts.Dump, depth); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	term, err := backend.NewTerminal()
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}
	if err := term.Init(); err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize terminal: %v\n", err)
		return 1
	}
	defer term.Shutdown()

	// Route log output away from the screen while it is active.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(stderr)

	v := newViewer(term, doc, a.Theme)

	if opts.Watch && opts.ConfigPath != "" {
		w, err := config.Watch(configOptions(opts),
			func(next *config.Config) {
				opts.apply(next)
				if err := next.Validate(); err != nil {
					logger.Error("reload: %v", err)
					return
				}
				if err := a.ApplyConfig(ctx, next); err != nil {
					logger.Error("reload: %v", err)
					return
				}
				v.refresh(ctx, next.Highlight.Async)
			},
			func(err error) {
				logger.Error("watch: %v", err)
			},
		)
		if err != nil {
			logger.Error("watch %s: %v", opts.ConfigPath, err)
		} else {
			defer w.Stop()
			if f := cfg.Theme.File; f != "" {
				if err := w.Watch(f); err != nil {
					logger.Warn("watch %s: %v", f, err)
				}
			}
		}
	}

	go func() {
		<-ctx.Done()
		term.PostEvent(backend.Event{Type: backend.EventInterrupt})
	}()

	v.run()
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	var showVersion bool

	fs := flag.NewFlagSet("capstyle", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (TOML or YAML)")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.Theme, "theme", "", "Theme name (built-in or chroma style)")
	fs.StringVar(&opts.Style, "style", "", "Chroma style to convert into a theme")
	fs.StringVar(&opts.Lang, "lang", "", "Language override (skips detection)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.ColorDepth, "color-depth", "", "ANSI color depth for -dump ansi (truecolor, 256, none)")
	fs.StringVar(&opts.Dump, "dump", "", "Print instead of viewing: runs or ansi")
	fs.BoolVar(&opts.Async, "async", false, "Highlight on the worker pool")
	fs.BoolVar(&opts.Watch, "watch", false, "Reload the configuration when it changes")
	fs.BoolVar(&opts.ListThemes, "list-themes", false, "List built-in themes and chroma styles")
	fs.BoolVar(&showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "capstyle - syntax highlighting viewer\n\n")
		fmt.Fprintf(stderr, "Usage: capstyle [options] file\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  capstyle main.go                 View a file\n")
		fmt.Fprintf(stderr, "  capstyle -style dracula main.go  View with a chroma style\n")
		fmt.Fprintf(stderr, "  capstyle -dump ansi main.go      Print highlighted text\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if showVersion {
		fmt.Fprintf(stderr, "capstyle %s\n", version)
		fmt.Fprintf(stderr, "Commit: %s\n", commit)
		fmt.Fprintf(stderr, "Built: %s\n", date)
		return opts, flag.ErrHelp
	}

	switch opts.Dump {
	case "", "runs", "ansi":
	default:
		fmt.Fprintf(stderr, "Error: invalid -dump %q (must be runs or ansi)\n", opts.Dump)
		return opts, fmt.Errorf("invalid -dump %q", opts.Dump)
	}

	if fs.NArg() > 0 {
		opts.File = fs.Arg(0)
	}
	return opts, nil
}

func configOptions(opts options) config.Options {
	return config.Options{Path: opts.ConfigPath, Required: opts.ConfigPath != ""}
}

// loadConfig layers the config file, the environment and the flags.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(configOptions(opts))
	if err != nil {
		return nil, err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func listThemes(w io.Writer, registry *theme.Registry) {
	fmt.Fprintln(w, "Themes:")
	for _, name := range registry.Names() {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintln(w, "Chroma styles:")
	for _, name := range theme.ChromaStyles() {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

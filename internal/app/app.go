package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/capstyle/internal/config"
	"github.com/dshills/capstyle/internal/dispatch"
	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/font"
	"github.com/dshills/capstyle/internal/renderer/highlight"
	"github.com/dshills/capstyle/internal/renderer/spell"
	"github.com/dshills/capstyle/internal/renderer/theme"
	"github.com/dshills/capstyle/internal/syntax"
)

// App owns the shared highlighting machinery: the worker pool passes run
// on, the serial delivery context sinks are written from, the theme and the
// spelling dictionary.
type App struct {
	mu     sync.RWMutex
	cfg    *config.Config
	theme  *theme.Theme
	docs   []*Document
	closed bool

	logger  *Logger
	themes  *theme.Registry
	fonts   *font.Registry
	metrics *Metrics

	// dict is nil while spelling is disabled.
	dict atomic.Pointer[spell.Dictionary]

	pool   *dispatch.Pool
	serial *dispatch.Serial
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. Its level follows the configuration.
func WithLogger(l *Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithThemeRegistry sets the registry themes are looked up in.
func WithThemeRegistry(r *theme.Registry) Option {
	return func(a *App) {
		if r != nil {
			a.themes = r
		}
	}
}

// WithFontRegistry sets the registry trait variants are looked up in.
func WithFontRegistry(r *font.Registry) Option {
	return func(a *App) {
		if r != nil {
			a.fonts = r
		}
	}
}

// New builds an App from cfg, which must already be valid. A nil cfg uses
// the defaults.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	a := &App{
		cfg:     cfg,
		themes:  theme.NewRegistry(),
		fonts:   font.NewRegistry(),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		lc := DefaultLoggerConfig()
		lc.Level = ParseLogLevel(cfg.Logging.Level)
		a.logger = NewLogger(lc)
	} else {
		a.logger.SetLevel(ParseLogLevel(cfg.Logging.Level))
	}

	t, err := BuildTheme(ctx, cfg, a.themes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	a.theme = t

	dict, err := loadDictionary(cfg.Spell)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	a.dict.Store(dict)

	a.pool = dispatch.NewPool(
		dispatch.WithQueueSize(cfg.Highlight.QueueSize),
		dispatch.WithWorkerCount(cfg.Highlight.Workers),
		dispatch.WithPanicHandler(a.handlePanic),
	)
	if err := a.pool.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	a.serial = dispatch.NewSerial(dispatch.WithSerialPanicHandler(a.handlePanic))

	a.logger.WithComponent("app").Info("started with theme %q, %d workers, %d font families",
		t.Name, cfg.Highlight.Workers, a.fonts.Families())
	return a, nil
}

// Open creates a document for content. lang overrides language detection;
// path is used for detection and may be empty.
func (a *App) Open(ctx context.Context, path string, content []byte, lang string) (*Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, NewOperationError("open", path, ErrClosed)
	}

	src, err := syntax.NewSource(ctx, path, content, lang)
	if err != nil {
		return nil, NewOperationError("open", path, err)
	}

	logger := a.logger.WithComponent("highlight").WithField("doc", path)
	hl := highlight.New(src, a.theme,
		highlight.WithFonts(a.fonts),
		highlight.WithSpellOracle(spell.OracleFunc(a.nextMisspelled)),
		highlight.WithScheduler(a.pool),
		highlight.WithDelivery(a.serial),
		highlight.WithLogger(logger),
	)

	doc := newDocument(path, src.Language(), string(content), hl, a.metrics, logger)
	a.docs = append(a.docs, doc)
	a.logger.WithComponent("app").Debug("opened %s as %s (%d lines)", path, doc.Language(), len(doc.lines))
	return doc, nil
}

// ApplyConfig switches to cfg. The theme, log level and dictionary change
// immediately; open documents pick the new theme up on their next pass.
// Worker and queue sizes only apply to a new App. On error the previous
// configuration stays in effect.
func (a *App) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}

	t, err := BuildTheme(ctx, cfg, a.themes)
	if err != nil {
		return err
	}
	dict, err := loadDictionary(cfg.Spell)
	if err != nil {
		return NewOperationError("load dictionary", cfg.Spell.Dictionary, err)
	}

	log := a.logger.WithComponent("app")
	if cfg.Highlight.Workers != a.cfg.Highlight.Workers || cfg.Highlight.QueueSize != a.cfg.Highlight.QueueSize {
		log.Warn("highlight pool size changes take effect on restart")
	}

	a.logger.SetLevel(ParseLogLevel(cfg.Logging.Level))
	a.dict.Store(dict)
	a.theme = t
	for _, doc := range a.docs {
		doc.SetTheme(t)
	}
	a.cfg = cfg

	log.Info("applied configuration, theme %q", t.Name)
	return nil
}

// Config returns the configuration in effect.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Theme returns the active theme.
func (a *App) Theme() *theme.Theme {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.theme
}

// Themes returns the theme registry.
func (a *App) Themes() *theme.Registry {
	return a.themes
}

// Logger returns the application logger.
func (a *App) Logger() *Logger {
	return a.logger
}

// Metrics returns the pass metrics.
func (a *App) Metrics() *Metrics {
	return a.metrics
}

// PoolStats returns the worker pool statistics.
func (a *App) PoolStats() dispatch.Stats {
	return a.pool.Stats()
}

// Close releases every document, then drains the pool and the delivery
// context. It must not be called from the delivery context.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	docs := a.docs
	a.docs = nil
	a.mu.Unlock()

	for _, doc := range docs {
		doc.Close()
	}

	var errs []error
	if err := a.pool.Stop(ctx); err != nil && !errors.Is(err, dispatch.ErrNotRunning) {
		errs = append(errs, NewOperationError("stop", "worker pool", err))
	}
	a.serial.Stop()

	s := a.metrics.Snapshot()
	a.logger.WithComponent("app").Info("closed after %d passes, %d cancelled", s.Passes, s.Cancelled)
	return errors.Join(errs...)
}

// nextMisspelled reads the current dictionary, so spelling follows config
// changes without rebuilding highlighters.
func (a *App) nextMisspelled(text string, from int) (core.ByteRange, bool) {
	d := a.dict.Load()
	if d == nil {
		return core.ByteRange{}, false
	}
	return d.NextMisspelled(text, from)
}

func (a *App) handlePanic(v any, stack []byte) {
	a.metrics.RecordPanic()
	a.logger.WithComponent("dispatch").Error("recovered: %v", NewRecoveredPanicError(v, stack))
}

func loadDictionary(sc config.SpellConfig) (*spell.Dictionary, error) {
	if !sc.Enabled {
		return nil, nil
	}
	var d *spell.Dictionary
	if sc.Dictionary != "" {
		var err error
		if d, err = spell.LoadDictionaryFile(sc.Dictionary); err != nil {
			return nil, err
		}
	} else {
		d = spell.NewDictionary()
	}
	if sc.MinWordLength > 0 {
		d.MinWordLength = sc.MinWordLength
	}
	return d, nil
}

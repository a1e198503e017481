package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/highlight"
	"github.com/dshills/capstyle/internal/renderer/styled"
	"github.com/dshills/capstyle/internal/renderer/theme"
)

// Document is an open file with one styled sink per line.
type Document struct {
	path     string
	language string
	text     string

	hl      *highlight.Highlighter
	metrics *Metrics
	logger  *Logger

	// mu serializes Highlight calls; a pass owns every sink while it runs.
	mu    sync.Mutex
	lines []core.ByteRange
	sinks []*styled.Text
}

func newDocument(path, language, text string, hl *highlight.Highlighter, metrics *Metrics, logger *Logger) *Document {
	d := &Document{
		path:     path,
		language: language,
		text:     text,
		hl:       hl,
		metrics:  metrics,
		logger:   logger,
		lines:    splitLines(text),
	}
	d.sinks = make([]*styled.Text, len(d.lines))
	for i, r := range d.lines {
		d.sinks[i] = styled.NewText(text[r.Location:r.End()])
	}
	return d
}

// Path returns the path the document was opened with.
func (d *Document) Path() string { return d.path }

// Language returns the detected or requested language name.
func (d *Document) Language() string { return d.language }

// Text returns the full document text.
func (d *Document) Text() string { return d.text }

// CanHighlight reports whether captures are available for the document.
func (d *Document) CanHighlight() bool { return d.hl.CanHighlight() }

// Lines returns the styled lines. Read them only after Highlight returns.
func (d *Document) Lines() []*styled.Text {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sinks
}

// SetTheme switches the theme used by later passes.
func (d *Document) SetTheme(t theme.Resolver) {
	d.hl.SetTheme(t)
}

// Highlight restyles every line. With async set, each line is a background
// pass delivered on the application's delivery context, and cancelling ctx
// cancels the pass in flight. Lines are highlighted one after another, so a
// pass never supersedes its own predecessor. Highlight must not be called
// from the delivery context.
func (d *Document) Highlight(ctx context.Context, async bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	for i, r := range d.lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.sinks[i].Reset()
		req := highlight.Request{Range: r, Sink: d.sinks[i]}

		if !async {
			stop := d.metrics.Timer()
			d.hl.HighlightSynchronously(req)
			stop()
			continue
		}

		if err := d.highlightAsync(ctx, req); err != nil {
			return fmt.Errorf("highlight %s line %d: %w", d.path, i+1, err)
		}
	}

	d.logger.Debug("highlighted %d lines in %s", len(d.lines), time.Since(start))
	return nil
}

func (d *Document) highlightAsync(ctx context.Context, req highlight.Request) error {
	done := make(chan error, 1)
	start := time.Now()
	d.hl.HighlightAsync(req, func(err error) {
		done <- err
	})

	select {
	case err := <-done:
		d.metrics.RecordOutcome(err, time.Since(start))
		return err
	case <-ctx.Done():
		d.hl.Cancel()
		// The completion still runs exactly once.
		err := <-done
		d.metrics.RecordOutcome(err, time.Since(start))
		if err == nil {
			// Committed before the cancel landed.
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", err, ctx.Err())
	}
}

// Close releases the document's highlighter. Passes still in flight
// complete with highlight.ErrDeallocated.
func (d *Document) Close() {
	d.hl.Close()
}

// splitLines returns the range of each line without its terminator.
// A trailing newline does not start an extra line.
func splitLines(text string) []core.ByteRange {
	var lines []core.ByteRange
	start := 0
	for start < len(text) {
		i := strings.IndexByte(text[start:], '\n')
		if i < 0 {
			lines = append(lines, core.NewByteRange(start, len(text)))
			break
		}
		end := start + i
		if end > start && text[end-1] == '\r' {
			end--
		}
		lines = append(lines, core.NewByteRange(start, end))
		start += i + 1
	}
	return lines
}

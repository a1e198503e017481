package main

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/capstyle/internal/app"
	"github.com/dshills/capstyle/internal/renderer/backend"
	"github.com/dshills/capstyle/internal/renderer/theme"
)

// viewer pages through a highlighted document.
type viewer struct {
	b     backend.Backend
	doc   *app.Document
	theme func() *theme.Theme

	// mu keeps drawing and rehighlighting apart.
	mu  sync.Mutex
	top int
}

func newViewer(b backend.Backend, doc *app.Document, current func() *theme.Theme) *viewer {
	return &viewer{b: b, doc: doc, theme: current}
}

// run draws and handles events until a quit event arrives.
func (v *viewer) run() {
	v.draw()
	for {
		ev := v.b.PollEvent()
		if ev.IsQuit() {
			return
		}
		v.handle(ev)
		v.draw()
	}
}

// refresh rehighlights the document and asks the event loop to redraw.
func (v *viewer) refresh(ctx context.Context, async bool) {
	v.mu.Lock()
	err := v.doc.Highlight(ctx, async)
	v.mu.Unlock()
	if err != nil {
		return
	}
	w, h := v.b.Size()
	v.b.PostEvent(backend.Event{Type: backend.EventResize, Width: w, Height: h})
}

func (v *viewer) handle(ev backend.Event) {
	if ev.Type != backend.EventKey {
		return
	}
	_, h := v.b.Size()

	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case ev.Key == tcell.KeyDown || ev.Rune == 'j':
		v.top++
	case ev.Key == tcell.KeyUp || ev.Rune == 'k':
		v.top--
	case ev.Key == tcell.KeyPgDn || ev.Rune == ' ':
		v.top += h
	case ev.Key == tcell.KeyPgUp || ev.Rune == 'b':
		v.top -= h
	case ev.Key == tcell.KeyHome || ev.Rune == 'g':
		v.top = 0
	case ev.Key == tcell.KeyEnd || ev.Rune == 'G':
		v.top = len(v.doc.Lines()) - h
	}
	v.top = max(0, min(v.top, len(v.doc.Lines())-1))
}

func (v *viewer) draw() {
	v.mu.Lock()
	defer v.mu.Unlock()

	t := v.theme()
	base := tcell.StyleDefault.
		Foreground(backend.TcellColor(t.Foreground)).
		Background(backend.TcellColor(t.Background))

	v.b.Clear()
	w, h := v.b.Size()
	lines := v.doc.Lines()
	y := 0
	for i := v.top; i < len(lines) && y < h; i++ {
		y += max(1, backend.Draw(v.b, 0, y, w, h-y, lines[i], base))
	}
	v.b.Show()
}

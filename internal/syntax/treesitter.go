package syntax

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/dshills/capstyle/internal/renderer/core"
)

//go:embed queries/*.scm
var queryFiles embed.FS

// grammar is a bundled tree-sitter language and its highlight query.
type grammar struct {
	name     string
	language *sitter.Language
	file     string

	once  sync.Once
	query []byte
	err   error
}

var grammars = map[string]*grammar{
	"go":         {name: "go", language: golang.GetLanguage(), file: "queries/go.scm"},
	"python":     {name: "python", language: python.GetLanguage(), file: "queries/python.scm"},
	"bash":       {name: "bash", language: bash.GetLanguage(), file: "queries/bash.scm"},
	"javascript": {name: "javascript", language: javascript.GetLanguage(), file: "queries/javascript.scm"},
}

// TreeSitterLanguages returns the languages with a bundled grammar, sorted.
func TreeSitterLanguages() []string {
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *grammar) highlightQuery() ([]byte, error) {
	g.once.Do(func() {
		g.query, g.err = queryFiles.ReadFile(g.file)
	})
	return g.query, g.err
}

// TreeSitterSource serves captures from a tree-sitter highlight query run
// over one snapshot of a document. The snapshot is parsed and queried once;
// Captures only filters, so it is safe for concurrent use.
type TreeSitterSource struct {
	lang     string
	captures []core.Capture
}

// indexedCapture carries the query pattern that produced a capture.
type indexedCapture struct {
	core.Capture
	pattern uint16
}

// NewTreeSitterSource parses content with the named grammar and runs its
// highlight query.
func NewTreeSitterSource(ctx context.Context, lang string, content []byte) (*TreeSitterSource, error) {
	g, ok := grammars[lang]
	if !ok {
		return nil, fmt.Errorf("%w: no tree-sitter grammar for %q", ErrUnsupportedLanguage, lang)
	}

	pattern, err := g.highlightQuery()
	if err != nil {
		return nil, fmt.Errorf("read %s query: %w", lang, err)
	}
	query, err := sitter.NewQuery(pattern, g.language)
	if err != nil {
		return nil, fmt.Errorf("compile %s query: %w", lang, err)
	}
	defer query.Close()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.language)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var found []indexedCapture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, content)
		for _, c := range m.Captures {
			start, end := int(c.Node.StartByte()), int(c.Node.EndByte())
			if end <= start {
				continue
			}
			found = append(found, indexedCapture{
				Capture: core.Capture{
					Name:  query.CaptureNameForId(c.Index),
					Range: core.NewByteRange(start, end),
				},
				pattern: m.PatternIndex,
			})
		}
	}

	// Later patterns are more specific and must win, so they come last.
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].pattern < found[j].pattern
	})

	captures := make([]core.Capture, len(found))
	for i, c := range found {
		captures[i] = c.Capture
	}
	return &TreeSitterSource{lang: lang, captures: captures}, nil
}

// Language returns the grammar name.
func (s *TreeSitterSource) Language() string {
	return s.lang
}

// CanHighlight implements highlight.CaptureSource.
func (s *TreeSitterSource) CanHighlight() bool {
	return s != nil
}

// Captures implements highlight.CaptureSource.
func (s *TreeSitterSource) Captures(r core.ByteRange) []core.Capture {
	return overlapping(s.captures, r)
}

// Len returns the number of captures in the snapshot.
func (s *TreeSitterSource) Len() int {
	return len(s.captures)
}

func overlapping(captures []core.Capture, r core.ByteRange) []core.Capture {
	var out []core.Capture
	for _, c := range captures {
		if c.Range.Overlaps(r) {
			out = append(out, c)
		}
	}
	return out
}

package syntax

import (
	"fmt"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// chromaExact maps token types whose capture name differs from their
// category's.
var chromaExact = map[chroma.TokenType]string{
	chroma.KeywordConstant:      "constant.builtin",
	chroma.KeywordType:          "type",
	chroma.NameBuiltin:          "function.builtin",
	chroma.NameBuiltinPseudo:    "variable.builtin",
	chroma.NameClass:            "type",
	chroma.NameConstant:         "constant",
	chroma.NameDecorator:        "attribute",
	chroma.NameAttribute:        "attribute",
	chroma.NameFunction:         "function",
	chroma.NameFunctionMagic:    "function",
	chroma.NameLabel:            "label",
	chroma.NameNamespace:        "namespace",
	chroma.NameProperty:         "property",
	chroma.NameTag:              "tag",
	chroma.LiteralStringEscape:  "string.escape",
	chroma.LiteralStringRegex:   "string.regexp",
	chroma.CommentSpecial:       "comment.documentation",
	chroma.GenericHeading:       "markup.heading",
	chroma.GenericSubheading:    "markup.heading",
	chroma.GenericStrong:        "markup.bold",
	chroma.GenericEmph:          "markup.italic",
	chroma.NameVariable:         "variable",
	chroma.NameVariableClass:    "variable",
	chroma.NameVariableGlobal:   "variable",
	chroma.NameVariableInstance: "variable",
	chroma.NameVariableMagic:    "variable.builtin",
	chroma.CommentPreproc:       "keyword",
	chroma.Error:                "error",
}

// chromaSubCategories maps token sub-categories to capture names.
var chromaSubCategories = map[chroma.TokenType]string{
	chroma.LiteralString: "string",
	chroma.LiteralNumber: "number",
}

// chromaCategories maps token categories to capture names.
var chromaCategories = map[chroma.TokenType]string{
	chroma.Keyword:     "keyword",
	chroma.Comment:     "comment",
	chroma.Operator:    "operator",
	chroma.Punctuation: "punctuation",
	chroma.Literal:     "constant",
}

// CaptureName returns the capture name for a chroma token type, or "" for
// plain text.
func CaptureName(tt chroma.TokenType) string {
	if name, ok := chromaExact[tt]; ok {
		return name
	}
	if name, ok := chromaSubCategories[tt.SubCategory()]; ok {
		return name
	}
	return chromaCategories[tt.Category()]
}

// ChromaSource serves captures from a chroma lexer run over one snapshot.
// Every non-text token becomes one capture.
type ChromaSource struct {
	lang     string
	captures []core.Capture
}

// NewChromaSource tokenises content with the named lexer. An empty name
// picks a lexer from filename, then from the content, then falls back to
// plain text.
func NewChromaSource(lang, filename string, content []byte) (*ChromaSource, error) {
	lexer, err := chromaLexer(lang, filename, content)
	if err != nil {
		return nil, err
	}

	text := string(content)
	// EnsureLF would rewrite CRLF and shift every offset after it.
	it, err := chroma.Coalesce(lexer).Tokenise(&chroma.TokeniseOptions{State: "root"}, text)
	if err != nil {
		return nil, fmt.Errorf("tokenise %s: %w", lexer.Config().Name, err)
	}

	var captures []core.Capture
	offset := 0
	for tok := it(); tok != chroma.EOF; tok = it() {
		start := offset
		offset = min(offset+len(tok.Value), len(text))
		name := CaptureName(tok.Type)
		if name == "" || offset == start {
			continue
		}
		captures = append(captures, core.Capture{Name: name, Range: core.NewByteRange(start, offset)})
	}

	return &ChromaSource{lang: lexer.Config().Name, captures: captures}, nil
}

func chromaLexer(lang, filename string, content []byte) (chroma.Lexer, error) {
	if lang != "" {
		if l := lexers.Get(lang); l != nil {
			return l, nil
		}
		return nil, fmt.Errorf("%w: no chroma lexer for %q", ErrUnsupportedLanguage, lang)
	}
	if filename != "" {
		if l := lexers.Match(filename); l != nil {
			return l, nil
		}
	}
	if l := lexers.Analyse(string(content)); l != nil {
		return l, nil
	}
	return lexers.Fallback, nil
}

// Language returns the lexer name.
func (s *ChromaSource) Language() string {
	return s.lang
}

// CanHighlight implements highlight.CaptureSource.
func (s *ChromaSource) CanHighlight() bool {
	return s != nil
}

// Captures implements highlight.CaptureSource.
func (s *ChromaSource) Captures(r core.ByteRange) []core.Capture {
	return overlapping(s.captures, r)
}

// Len returns the number of captures in the snapshot.
func (s *ChromaSource) Len() int {
	return len(s.captures)
}

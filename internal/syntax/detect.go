package syntax

import (
	"context"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/go-enry/go-enry/v2"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// Source is a capture source for one document snapshot.
type Source interface {
	Language() string
	CanHighlight() bool
	Captures(r core.ByteRange) []core.Capture
}

// enryToTreeSitter maps linguist language names to bundled grammars.
var enryToTreeSitter = map[string]string{
	"Go":         "go",
	"Python":     "python",
	"Shell":      "bash",
	"JavaScript": "javascript",
}

// Detect returns the linguist name of the language of a file, judged from
// its name and content. It returns "" when nothing matches.
func Detect(path string, content []byte) string {
	return enry.GetLanguage(path, content)
}

// NewSource builds a capture source for content. lang overrides detection
// and may name either a bundled grammar or a chroma lexer. Languages with a
// bundled grammar use tree-sitter; everything else goes through chroma.
func NewSource(ctx context.Context, path string, content []byte, lang string) (Source, error) {
	explicit := lang != ""
	if !explicit {
		lang = Detect(path, content)
	}

	if name, ok := treeSitterName(lang); ok {
		return NewTreeSitterSource(ctx, name, content)
	}
	if !explicit && lexers.Get(lang) == nil {
		// enry knows more languages than chroma; let chroma guess.
		lang = ""
	}
	return NewChromaSource(lang, path, content)
}

func treeSitterName(lang string) (string, bool) {
	if name, ok := enryToTreeSitter[lang]; ok {
		return name, true
	}
	lower := strings.ToLower(lang)
	if _, ok := grammars[lower]; ok {
		return lower, true
	}
	switch lower {
	case "golang":
		return "go", true
	case "sh", "shell":
		return "bash", true
	case "js":
		return "javascript", true
	}
	return "", false
}

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dshills/capstyle/internal/app"
	"github.com/dshills/capstyle/internal/renderer/backend"
	"github.com/dshills/capstyle/internal/renderer/core"
)

// dump writes the highlighted document either as ANSI text or as a listing
// of each line's styled runs.
func dump(w io.Writer, doc *app.Document, mode string, depth backend.ColorDepth) error {
	for i, line := range doc.Lines() {
		switch mode {
		case "ansi":
			if err := backend.WriteANSI(w, line, depth); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		default:
			if _, err := fmt.Fprintf(w, "%d: %q\n", i+1, line.Text()); err != nil {
				return err
			}
			for _, run := range line.StyledRuns() {
				if _, err := fmt.Fprintf(w, "  %s %s\n", run.Range, formatAttrs(run.Attrs)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func formatAttrs(attrs core.AttributeSet) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[core.AttributeKey(k)])
	}
	return strings.Join(parts, " ")
}

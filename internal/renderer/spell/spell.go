// Package spell layers a misspelling style over a styled buffer.
package spell

import (
	"github.com/dshills/capstyle/internal/renderer/core"
	"github.com/dshills/capstyle/internal/renderer/styled"
)

// Oracle finds misspelled words.
type Oracle interface {
	// NextMisspelled returns the first misspelled range at or after from,
	// or false when there is none.
	NextMisspelled(text string, from int) (core.ByteRange, bool)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(text string, from int) (core.ByteRange, bool)

// NextMisspelled implements Oracle.
func (f OracleFunc) NextMisspelled(text string, from int) (core.ByteRange, bool) {
	return f(text, from)
}

// Pass stages a fixed attribute set over every misspelled range of a buffer.
type Pass struct {
	Oracle Oracle
}

// NewPass creates a spell pass.
func NewPass(oracle Oracle) *Pass {
	return &Pass{Oracle: oracle}
}

// Apply scans the whole buffer text and stages style over each misspelled
// range. It does nothing when style is empty or there is no oracle. The scan
// stops as soon as the oracle fails to move the cursor forward.
// Returns the number of ranges styled.
func (p *Pass) Apply(buf styled.Buffer, style core.AttributeSet) int {
	if p == nil || p.Oracle == nil || style.IsEmpty() {
		return 0
	}

	text := buf.Text()
	buf.BeginEditing()
	defer buf.EndEditing()

	count := 0
	for from := 0; from < len(text); {
		r, ok := p.Oracle.NextMisspelled(text, from)
		if !ok {
			break
		}
		if !r.IsEmpty() {
			buf.AddAttributes(style, r)
			count++
		}
		if r.End() <= from {
			break
		}
		from = r.End()
	}
	return count
}

package spell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"

	"github.com/dshills/capstyle/internal/renderer/core"
)

// DefaultMinWordLength is the shortest word, in runes, that can be flagged.
const DefaultMinWordLength = 2

// Dictionary is a word-list Oracle. Words are segmented with Unicode word
// boundaries and compared case-insensitively. Words without letters, words
// containing digits and words shorter than MinWordLength are never flagged.
type Dictionary struct {
	mu    sync.RWMutex
	words map[string]struct{}

	// MinWordLength is the shortest word, in runes, that can be flagged.
	MinWordLength int
}

// NewDictionary creates a dictionary holding words.
func NewDictionary(words ...string) *Dictionary {
	d := &Dictionary{
		words:         make(map[string]struct{}, len(words)),
		MinWordLength: DefaultMinWordLength,
	}
	for _, w := range words {
		d.Add(w)
	}
	return d
}

// LoadDictionary reads one word per line. Blank lines and lines starting
// with '#' are skipped.
func LoadDictionary(r io.Reader) (*Dictionary, error) {
	d := NewDictionary()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		w := strings.TrimSpace(scanner.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		d.Add(w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary at line %d: %w", line, err)
	}
	return d, nil
}

// LoadDictionaryFile reads a word list from disk.
func LoadDictionaryFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()

	d, err := LoadDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Add adds a word.
func (d *Dictionary) Add(word string) {
	folded := cases.Fold().String(word)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.words[folded] = struct{}{}
}

// Contains reports whether the dictionary holds word, ignoring case.
func (d *Dictionary) Contains(word string) bool {
	return d.contains(cases.Fold(), word)
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.words)
}

// NextMisspelled implements Oracle.
func (d *Dictionary) NextMisspelled(text string, from int) (core.ByteRange, bool) {
	if from < 0 {
		from = 0
	}
	if from >= len(text) {
		return core.ByteRange{}, false
	}

	fold := cases.Fold()
	rest := text[from:]
	offset := from
	state := -1
	var word string
	for len(rest) > 0 {
		word, rest, state = uniseg.FirstWordInString(rest, state)
		start := offset
		offset += len(word)
		if d.checkable(word) && !d.contains(fold, word) {
			return core.NewByteRange(start, offset), true
		}
	}
	return core.ByteRange{}, false
}

func (d *Dictionary) contains(fold cases.Caser, word string) bool {
	folded := fold.String(word)
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.words[folded]
	return ok
}

// checkable reports whether word is eligible for flagging.
func (d *Dictionary) checkable(word string) bool {
	letters, runes := 0, 0
	for _, r := range word {
		runes++
		switch {
		case unicode.IsDigit(r):
			return false
		case unicode.IsLetter(r):
			letters++
		}
	}
	return letters > 0 && runes >= d.MinWordLength
}

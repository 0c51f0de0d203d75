// Package token produces the baseline tokenization that the segmenter
// optimizes over.
//
// Tokenization is two steps: Normalize (NFC + invisible-character stripping)
// and a word-boundary split. The split itself is an injected capability — any
// Unicode-aware word segmenter works — with a UAX #29 implementation as the
// default. Tokens are non-empty, in input order, and concatenate back to the
// normalized input with no gaps or overlaps; downstream code relies on that
// to rebuild the display text from spans.
package token

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// WordFunc splits normalized text into word-like tokens. Implementations must
// return tokens whose concatenation equals the input exactly.
type WordFunc func(text string) []string

// Tokenizer pairs normalization with a word-boundary capability.
type Tokenizer struct {
	split WordFunc
}

// New creates a Tokenizer. A nil fn selects the UAX #29 default.
func New(fn WordFunc) *Tokenizer {
	if fn == nil {
		fn = UAX29
	}
	return &Tokenizer{split: fn}
}

// Tokenize normalizes text and splits it into baseline tokens. Empty input
// (or input that is empty after normalization) yields a nil slice, never an
// error.
func (t *Tokenizer) Tokenize(text string) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	toks := t.split(text)

	// Drop empty tokens defensively; a conforming WordFunc never emits them.
	out := toks[:0]
	for _, tok := range toks {
		if tok != "" {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Normalize applies NFC, strips zero-width and variation-selector characters,
// and trims surrounding whitespace.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	if !strings.ContainsFunc(text, isInvisible) {
		return strings.TrimSpace(text)
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isInvisible(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// UAX29 is the default WordFunc, backed by the UAX #29 word-boundary rules.
func UAX29(text string) []string {
	var out []string
	iter := words.FromString(text)
	for iter.Next() {
		out = append(out, iter.Value())
	}
	return out
}

func isInvisible(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\ufeff':
		return true
	}
	return r >= '\ufe00' && r <= '\ufe0f' // variation selectors
}

// Package lexicon holds the static dictionary of known Thai phrases queried
// by the span-cost model. Membership is exact-match on normalized phrase
// text. A small embedded gazetteer of common compounds ships as the default;
// deployments with a larger dictionary load it from a file.
package lexicon

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/khamlab/thaiseg/token"
)

//go:embed data/thai.txt
var defaultRaw string

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Lexicon is a set of known phrases. Read-only after construction; safe for
// concurrent readers.
type Lexicon struct {
	phrases map[string]struct{}
}

// New creates an empty Lexicon.
func New() *Lexicon {
	return &Lexicon{phrases: make(map[string]struct{})}
}

// Default returns the embedded gazetteer, parsed once.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		lex, err := Load(strings.NewReader(defaultRaw))
		if err != nil {
			// The embedded list is static; a parse failure is a build
			// defect, not a runtime condition.
			panic(fmt.Sprintf("lexicon: embedded dictionary: %v", err))
		}
		defaultLex = lex
	})
	return defaultLex
}

// Load reads one phrase per line. Blank lines and #-comments are skipped;
// entries are normalized the same way subtitle text is, so membership checks
// agree with tokenizer output.
func Load(r io.Reader) (*Lexicon, error) {
	lex := New()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lex.Add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lexicon: read: %w", err)
	}
	return lex, nil
}

// LoadFile reads a dictionary file from disk.
func LoadFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Add inserts a phrase, normalizing it first. Empty phrases are ignored.
func (l *Lexicon) Add(phrase string) {
	phrase = token.Normalize(phrase)
	if phrase == "" {
		return
	}
	l.phrases[phrase] = struct{}{}
}

// Contains reports set membership for a normalized phrase.
func (l *Lexicon) Contains(phrase string) bool {
	_, ok := l.phrases[phrase]
	return ok
}

// Len returns the number of phrases.
func (l *Lexicon) Len() int { return len(l.phrases) }

// Phrases returns all phrases in sorted order.
func (l *Lexicon) Phrases() []string {
	out := make([]string, 0, len(l.phrases))
	for p := range l.phrases {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

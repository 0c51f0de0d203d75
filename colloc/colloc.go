// Package colloc mines per-video merge candidates from baseline-tokenized
// subtitle lines.
//
// It accumulates unigram, adjacent-bigram, and adjacent-trigram counts over
// all lines of one video, scores adjacent pairs by pointwise mutual
// information, and emits the phrases whose association is strong enough to
// justify a merge bonus during segmentation. The statistics are ephemeral:
// they exist only while mining and are discarded afterwards — nothing here is
// a trained model, just counts over a single video's text.
package colloc

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/khamlab/thaiseg/token"
)

// Defaults and cap bounds for mining options.
const (
	DefaultMinCount     = 2
	DefaultPMIThreshold = 3.0
	DefaultMaxPhraseLen = 12
	DefaultMaxPhrases   = 10000

	MinPhraseCap = 100
	MaxPhraseCap = 20000
)

// epsilon keeps the PMI estimator away from log(0) on degenerate counts.
const epsilon = 1e-9

// Options tunes the miner.
type Options struct {
	// MinCount is the minimum observed count for a bigram candidate.
	// Trigrams require MinCount+1. Default: 2.
	MinCount int
	// PMIThreshold is the minimum PMI score for a candidate. Default: 3.0.
	PMIThreshold float64
	// MaxPhraseLen bounds the merged phrase length in runes. Default: 12.
	MaxPhraseLen int
	// MaxPhrases caps the returned set, clamped to [100, 20000].
	// Default: 10000.
	MaxPhrases int
}

func (o *Options) defaults() {
	if o.MinCount <= 0 {
		o.MinCount = DefaultMinCount
	}
	if o.PMIThreshold <= 0 {
		o.PMIThreshold = DefaultPMIThreshold
	}
	if o.MaxPhraseLen <= 0 {
		o.MaxPhraseLen = DefaultMaxPhraseLen
	}
	if o.MaxPhrases <= 0 {
		o.MaxPhrases = DefaultMaxPhrases
	}
	if o.MaxPhrases < MinPhraseCap {
		o.MaxPhrases = MinPhraseCap
	}
	if o.MaxPhrases > MaxPhraseCap {
		o.MaxPhrases = MaxPhraseCap
	}
}

// Stats holds video-scoped n-gram counts. Not safe for concurrent use.
type Stats struct {
	uni   map[string]int
	bi    map[string]int
	tri   map[string]int
	total int
}

// NewStats creates an empty accumulator.
func NewStats() *Stats {
	return &Stats{
		uni: make(map[string]int),
		bi:  make(map[string]int),
		tri: make(map[string]int),
	}
}

// key joins n-gram members with a separator that cannot appear inside a
// token ("|" is a hard boundary and never survives tokenization of Thai).
func key(parts ...string) string {
	return strings.Join(parts, "|")
}

// AddLine feeds one tokenized line into the counts. Every token contributes
// to the unigram table and the total; bigrams and trigrams are only counted
// when all members are Thai-only, since a merge can never cross a hard
// boundary anyway.
func (s *Stats) AddLine(tokens []string) {
	for i, tok := range tokens {
		s.uni[tok]++
		s.total++

		if i+1 < len(tokens) && token.CanSpan(tokens, i, i+2) {
			s.bi[key(tok, tokens[i+1])]++
		}
		if i+2 < len(tokens) && token.CanSpan(tokens, i, i+3) {
			s.tri[key(tok, tokens[i+1], tokens[i+2])]++
		}
	}
}

// Total returns the running token count N.
func (s *Stats) Total() int { return s.total }

// PMI computes the pointwise mutual information of the adjacent pair (a, b):
//
//	PMI = log2( (xy/(N-1)) / ((x/N)*(y/N)) )
//
// with a small epsilon in numerator and denominator. Returns negative
// infinity territory (a large negative value) rather than NaN for unseen
// pairs.
func (s *Stats) PMI(a, b string) float64 {
	n := float64(s.total)
	if s.total < 2 {
		return 0
	}
	xy := float64(s.bi[key(a, b)])
	x := float64(s.uni[a])
	y := float64(s.uni[b])

	num := xy/(n-1) + epsilon
	den := (x/n)*(y/n) + epsilon
	return math.Log2(num / den)
}

// candidate is a scored merge phrase.
type candidate struct {
	phrase string
	score  float64
}

// Mine returns the deduplicated merge set for the accumulated statistics,
// strongest candidates first, truncated to opts.MaxPhrases.
//
// A bigram qualifies when its count meets MinCount, the merged phrase fits
// MaxPhraseLen, and its PMI clears the threshold. A trigram is scored by the
// minimum of its two constituent bigram PMIs — both adjacent pairs must be
// individually well-associated — and is gated by the stricter MinCount+1.
func (s *Stats) Mine(opts Options) []string {
	opts.defaults()

	seen := make(map[string]bool)
	var cands []candidate

	add := func(phrase string, score float64) {
		if seen[phrase] {
			return
		}
		seen[phrase] = true
		cands = append(cands, candidate{phrase: phrase, score: score})
	}

	for k, count := range s.bi {
		if count < opts.MinCount {
			continue
		}
		a, b, _ := strings.Cut(k, "|")
		phrase := a + b
		if utf8.RuneCountInString(phrase) > opts.MaxPhraseLen {
			continue
		}
		score := s.PMI(a, b)
		if score < opts.PMIThreshold {
			continue
		}
		add(phrase, score)
	}

	for k, count := range s.tri {
		if count < opts.MinCount+1 {
			continue
		}
		parts := strings.SplitN(k, "|", 3)
		if len(parts) != 3 {
			continue
		}
		phrase := parts[0] + parts[1] + parts[2]
		if utf8.RuneCountInString(phrase) > opts.MaxPhraseLen {
			continue
		}
		score := math.Min(s.PMI(parts[0], parts[1]), s.PMI(parts[1], parts[2]))
		if score < opts.PMIThreshold {
			continue
		}
		add(phrase, score)
	}

	// Strongest first; phrase order breaks ties so output is deterministic.
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].phrase < cands[j].phrase
	})

	if len(cands) > opts.MaxPhrases {
		cands = cands[:opts.MaxPhrases]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.phrase
	}
	return out
}

// Mine is a convenience wrapper: accumulate all lines, then mine once.
func Mine(lines [][]string, opts Options) []string {
	s := NewStats()
	for _, line := range lines {
		s.AddLine(line)
	}
	return s.Mine(opts)
}

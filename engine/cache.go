package engine

import (
	"hash/fnv"
	"sort"
	"time"

	"github.com/khamlab/thaiseg/token"
)

// mergeSet is one video's merged-phrase set, bounded by cap. Additions past
// the cap are refused; the strongest phrases arrive first from mining, so
// refusal drops the weakest tail.
type mergeSet struct {
	phrases map[string]struct{}
	cap     int
}

func newMergeSet(cap int) *mergeSet {
	return &mergeSet{phrases: make(map[string]struct{}), cap: cap}
}

// add normalizes and inserts a phrase. Returns true when the set changed.
func (s *mergeSet) add(phrase string) bool {
	phrase = token.Normalize(phrase)
	if phrase == "" {
		return false
	}
	if _, ok := s.phrases[phrase]; ok {
		return false
	}
	if len(s.phrases) >= s.cap {
		return false
	}
	s.phrases[phrase] = struct{}{}
	return true
}

func (s *mergeSet) Contains(phrase string) bool {
	_, ok := s.phrases[phrase]
	return ok
}

func (s *mergeSet) size() int { return len(s.phrases) }

// list returns the phrases sorted, for deterministic persistence and stats.
func (s *mergeSet) list() []string {
	out := make([]string, 0, len(s.phrases))
	for p := range s.phrases {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// videoState is everything the engine tracks for one video. Access is
// guarded by the engine mutex, never by the state itself.
type videoState struct {
	merges *mergeSet

	// lines caches refined per-line segmentations by line hash.
	lines map[uint64][]string
	// lineFetched marks hashes already requested from the backing store,
	// hit or miss, so each line triggers at most one lookup.
	lineFetched map[uint64]bool

	// hydrating is set while the initial merge-set load from the backing
	// store is in flight; hydrated after it completes (either way).
	hydrating bool
	hydrated  bool

	// lastHintFetch gates provider calls per video.
	lastHintFetch time.Time
}

func newVideoState(cap int) *videoState {
	return &videoState{
		merges:      newMergeSet(cap),
		lines:       make(map[uint64][]string),
		lineFetched: make(map[uint64]bool),
	}
}

// lineHash identifies a subtitle line within a video. FNV-64a over the
// normalized text keeps keys short and stable across runs.
func lineHash(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(token.Normalize(text)))
	return h.Sum64()
}

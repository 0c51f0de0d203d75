// Package engine orchestrates per-video Thai re-segmentation: baseline
// tokenization, collocation-mined merge sets, the dictionary bonus, the
// span-cost optimizer, and the TTL-backed caches behind them.
//
// The public surface is deliberately forgiving. Segment is synchronous and
// never blocks on I/O or panics outward; everything slow (store hydration,
// persistence, hint fetches) runs as fire-and-forget background work whose
// failures are logged and otherwise absorbed.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/khamlab/thaiseg/colloc"
	"github.com/khamlab/thaiseg/hint"
	"github.com/khamlab/thaiseg/kvstore"
	"github.com/khamlab/thaiseg/lexicon"
	"github.com/khamlab/thaiseg/segment"
	"github.com/khamlab/thaiseg/token"
)

// taskTimeout bounds every background store/provider operation. Background
// work is never cancelled by callers, so this is the only leash it has.
const taskTimeout = 60 * time.Second

// Engine is safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	videos map[string]*videoState

	tk       *token.Tokenizer
	lex      *lexicon.Lexicon
	store    kvstore.Store
	provider hint.Provider
	logger   *slog.Logger

	// customProvider blocks UpdateConfig from replacing an injected provider.
	customProvider bool

	tasks sync.WaitGroup
	now   func() time.Time
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithStore attaches a backing store for merge sets and line segmentations.
// Without one the engine is memory-only.
func WithStore(s kvstore.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithProvider injects a hint provider, overriding the one built from
// Config.AI.
func WithProvider(p hint.Provider) Option {
	return func(e *Engine) {
		e.provider = p
		e.customProvider = true
	}
}

// WithLexicon replaces the dictionary; ignored unless Config.UseLexicon.
func WithLexicon(l *lexicon.Lexicon) Option {
	return func(e *Engine) { e.lex = l }
}

// WithWordFunc replaces the baseline word-boundary function.
func WithWordFunc(fn token.WordFunc) Option {
	return func(e *Engine) { e.tk = token.New(fn) }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an engine. The returned engine works immediately; a config
// file, store, and provider are all optional.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg.defaults()
	e := &Engine{
		cfg:    cfg,
		videos: make(map[string]*videoState),
		tk:     token.New(nil),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.provider == nil {
		ai := cfg.AI
		if ai.Logger == nil {
			ai.Logger = e.logger
		}
		e.provider = hint.New(ai)
	}
	if e.lex == nil && cfg.UseLexicon {
		lex := lexicon.Default()
		if cfg.LexiconPath != "" {
			extra, err := lexicon.LoadFile(cfg.LexiconPath)
			if err != nil {
				return nil, fmt.Errorf("engine: lexicon: %w", err)
			}
			// Layer the file on top of the embedded set without
			// mutating the shared default.
			merged := lexicon.New()
			for _, src := range []*lexicon.Lexicon{lex, extra} {
				for _, p := range src.Phrases() {
					merged.Add(p)
				}
			}
			lex = merged
		}
		e.lex = lex
	}
	return e, nil
}

// Segment re-segments one subtitle line for a video. It is synchronous and
// non-blocking: merge sets not yet hydrated simply do not contribute, and
// hydration is kicked off for subsequent calls. When the engine is disabled
// the baseline tokens are returned unchanged.
func (e *Engine) Segment(videoID, text string) []string {
	toks := e.tk.Tokenize(text)

	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()
	if !cfg.Enabled || len(toks) <= 1 {
		return toks
	}

	st := e.stateFor(videoID)
	h := lineHash(text)

	e.mu.RLock()
	if spans, ok := st.lines[h]; ok {
		out := slices.Clone(spans)
		e.mu.RUnlock()
		return out
	}
	needLineFetch := e.store != nil && !st.lineFetched[h]
	spans := segment.Solve(toks, st.merges, e.dict(cfg), cfg.segmentOptions())
	e.mu.RUnlock()

	if needLineFetch {
		e.scheduleLineFetch(videoID, st, h, text, toks, spans, cfg)
	}
	return spans
}

// WarmUpVideo mines collocations from a whole video's subtitle lines, merges
// them into the video's set, persists the set, and (cooldown permitting)
// requests provider hints. It returns the number of phrases newly added.
func (e *Engine) WarmUpVideo(ctx context.Context, videoID string, lines []string) int {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()
	if !cfg.Enabled || len(lines) == 0 {
		return 0
	}

	tokLines := make([][]string, 0, len(lines))
	for _, line := range lines {
		if toks := e.tk.Tokenize(line); len(toks) > 0 {
			tokLines = append(tokLines, toks)
		}
	}
	mined := colloc.Mine(tokLines, cfg.collocOptions())

	st := e.stateFor(videoID)
	e.mu.Lock()
	added := 0
	for _, p := range mined {
		if st.merges.add(p) {
			added++
		}
	}
	snapshot := st.merges.list()
	e.mu.Unlock()

	e.logger.Info("video warm-up",
		"video_id", videoID, "lines", len(lines),
		"mined", len(mined), "added", added, "merges", len(snapshot))

	if added > 0 {
		e.persistMerges(videoID, snapshot, cfg.MergeTTL)
	}
	e.RequestHints(videoID)
	return added
}

// SetMergeHints unions phrases into a video's merge set, from any source
// (provider responses, editors, the HTTP and MCP surfaces). Non-Thai or
// empty phrases are dropped. Returns the number actually added.
func (e *Engine) SetMergeHints(videoID string, phrases []string) int {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()
	if !cfg.Enabled {
		return 0
	}

	st := e.stateFor(videoID)
	e.mu.Lock()
	added := 0
	for _, p := range phrases {
		if token.IsHardBoundary(p) {
			continue
		}
		if st.merges.add(p) {
			added++
		}
	}
	var snapshot []string
	if added > 0 {
		snapshot = st.merges.list()
	}
	e.mu.Unlock()

	if added > 0 {
		e.persistMerges(videoID, snapshot, cfg.MergeTTL)
	}
	return added
}

// SetLineSegmentation installs a refined segmentation for one line of a
// video and persists it. The spans must concatenate to the normalized line
// text; anything else is rejected so a bad hint can never corrupt rendering.
func (e *Engine) SetLineSegmentation(videoID, lineText string, spans []string) error {
	norm := token.Normalize(lineText)
	if norm == "" || len(spans) == 0 {
		return fmt.Errorf("engine: empty line or spans")
	}
	if strings.Join(spans, "") != norm {
		return fmt.Errorf("engine: spans do not reconstruct line text")
	}

	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	st := e.stateFor(videoID)
	h := lineHash(lineText)
	stored := slices.Clone(spans)

	e.mu.Lock()
	st.lines[h] = stored
	st.lineFetched[h] = true
	e.mu.Unlock()

	e.persistLine(videoID, h, stored, cfg.LineTTL)
	return nil
}

// RequestHints asks the provider for merge hints for a video, at most once
// per cooldown window. The fetch runs in the background; the return value
// says only whether one was scheduled.
func (e *Engine) RequestHints(videoID string) bool {
	st := e.stateFor(videoID)

	// Snapshot the provider along with the config: UpdateConfig may swap it
	// under the same lock while traffic is in flight.
	e.mu.Lock()
	cfg := e.cfg
	provider := e.provider
	if _, noop := provider.(hint.Noop); noop {
		e.mu.Unlock()
		return false
	}
	if !cfg.Enabled || e.now().Sub(st.lastHintFetch) < cfg.AICooldown {
		e.mu.Unlock()
		return false
	}
	st.lastHintFetch = e.now()
	cands := st.merges.list()
	e.mu.Unlock()

	if len(cands) > cfg.AISampleSize {
		cands = cands[:cfg.AISampleSize]
	}

	e.spawn("fetch_merge_hints", func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		hints, err := provider.FetchMergeHints(ctx, videoID, cands)
		if err != nil {
			e.logger.Warn("merge hint fetch failed", "video_id", videoID, "error", err)
			return
		}
		if len(hints) == 0 {
			return
		}
		added := e.SetMergeHints(videoID, hints)
		e.logger.Info("merge hints applied",
			"video_id", videoID, "hints", len(hints), "added", added)
	})
	return true
}

// UpdateConfig swaps the configuration at runtime. Existing per-video state
// is kept; new thresholds apply from the next operation on, and merge-set
// caps of already-tracked videos are not resized. The provider is rebuilt
// when the AI block changed, unless one was injected.
func (e *Engine) UpdateConfig(cfg Config) {
	cfg.defaults()

	e.mu.Lock()
	old := e.cfg
	e.cfg = cfg
	if !e.customProvider && cfg.AI != old.AI {
		ai := cfg.AI
		if ai.Logger == nil {
			ai.Logger = e.logger
		}
		e.provider = hint.New(ai)
	}
	e.mu.Unlock()

	e.logger.Info("config updated", "enabled", cfg.Enabled,
		"max_span_length", cfg.MaxSpanLength, "pmi_threshold", cfg.PMIThreshold)
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// VideoStats describes one video's cache state.
type VideoStats struct {
	Merges      int  `json:"merges"`
	CachedLines int  `json:"cached_lines"`
	Hydrated    bool `json:"hydrated"`
}

// Stats is a point-in-time snapshot for the stats surfaces.
type Stats struct {
	Enabled     bool                  `json:"enabled"`
	Videos      int                   `json:"videos"`
	Merges      int                   `json:"merges"`
	CachedLines int                   `json:"cached_lines"`
	PerVideo    map[string]VideoStats `json:"per_video"`
}

// Stats reports cache sizes across all tracked videos.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Stats{
		Enabled:  e.cfg.Enabled,
		Videos:   len(e.videos),
		PerVideo: make(map[string]VideoStats, len(e.videos)),
	}
	for id, st := range e.videos {
		vs := VideoStats{
			Merges:      st.merges.size(),
			CachedLines: len(st.lines),
			Hydrated:    st.hydrated,
		}
		s.Merges += vs.Merges
		s.CachedLines += vs.CachedLines
		s.PerVideo[id] = vs
	}
	return s
}

// Close waits for in-flight background tasks. It does not close the store;
// whoever opened it owns it.
func (e *Engine) Close() error {
	e.tasks.Wait()
	return nil
}

// stateFor returns the per-video state, creating it and kicking off merge
// hydration from the backing store on first touch.
func (e *Engine) stateFor(videoID string) *videoState {
	e.mu.RLock()
	st := e.videos[videoID]
	e.mu.RUnlock()
	if st != nil {
		return st
	}

	e.mu.Lock()
	st = e.videos[videoID]
	if st == nil {
		st = newVideoState(e.cfg.MaxMergesPerVideo)
		e.videos[videoID] = st
		if e.store != nil {
			st.hydrating = true
			e.spawn("hydrate_merges", func() { e.hydrateMerges(videoID, st) })
		} else {
			st.hydrated = true
		}
	}
	e.mu.Unlock()
	return st
}

func (e *Engine) dict(cfg Config) segment.Lookup {
	if !cfg.UseLexicon || e.lex == nil {
		return nil
	}
	return e.lex
}

// spawn runs fn as tracked fire-and-forget work. Panics are contained and
// logged so background failures can never take the process down.
func (e *Engine) spawn(name string, fn func()) {
	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("background task panic", "task", name, "panic", r)
			}
		}()
		fn()
	}()
}

func mergeKey(videoID string) string {
	return "thai_merges_" + videoID
}

func lineKey(videoID string, h uint64) string {
	return fmt.Sprintf("thai_seg_line_%s_%016x", videoID, h)
}

// hydrateMerges loads a video's persisted merge set into memory. A miss or
// a failure just leaves the set empty; mining will rebuild it.
func (e *Engine) hydrateMerges(videoID string, st *videoState) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	data, ok, err := e.store.Get(ctx, mergeKey(videoID))

	var phrases []string
	if err != nil {
		e.logger.Warn("merge hydration failed", "video_id", videoID, "error", err)
	} else if ok {
		if err := json.Unmarshal(data, &phrases); err != nil {
			e.logger.Warn("merge hydration: bad payload", "video_id", videoID, "error", err)
			phrases = nil
		}
	}

	e.mu.Lock()
	loaded := 0
	for _, p := range phrases {
		if st.merges.add(p) {
			loaded++
		}
	}
	st.hydrating = false
	st.hydrated = true
	e.mu.Unlock()

	if loaded > 0 {
		e.logger.Debug("merge set hydrated", "video_id", videoID, "merges", loaded)
	}
}

func (e *Engine) persistMerges(videoID string, phrases []string, ttl time.Duration) {
	if e.store == nil {
		return
	}
	e.spawn("persist_merges", func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		data, err := json.Marshal(phrases)
		if err != nil {
			e.logger.Warn("merge persist: marshal", "video_id", videoID, "error", err)
			return
		}
		if err := e.store.Set(ctx, mergeKey(videoID), data, ttl); err != nil {
			e.logger.Warn("merge persist failed", "video_id", videoID, "error", err)
		}
	})
}

func (e *Engine) persistLine(videoID string, h uint64, spans []string, ttl time.Duration) {
	if e.store == nil {
		return
	}
	e.spawn("persist_line", func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()
		data, err := json.Marshal(spans)
		if err != nil {
			e.logger.Warn("line persist: marshal", "video_id", videoID, "error", err)
			return
		}
		if err := e.store.Set(ctx, lineKey(videoID, h), data, ttl); err != nil {
			e.logger.Warn("line persist failed", "video_id", videoID, "error", err)
		}
	})
}

// scheduleLineFetch loads a line's refined segmentation from the backing
// store, at most once per line. On a store miss the provider gets a chance
// to refine the line; the stock HTTP provider declines, so this only fires
// for custom providers.
func (e *Engine) scheduleLineFetch(videoID string, st *videoState, h uint64, text string, baseline, current []string, cfg Config) {
	e.mu.Lock()
	if st.lineFetched[h] {
		e.mu.Unlock()
		return
	}
	st.lineFetched[h] = true
	provider := e.provider
	e.mu.Unlock()

	e.spawn("fetch_line", func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		data, ok, err := e.store.Get(ctx, lineKey(videoID, h))
		if err != nil {
			e.logger.Warn("line fetch failed", "video_id", videoID, "error", err)
			return
		}
		if ok {
			var spans []string
			if err := json.Unmarshal(data, &spans); err != nil || len(spans) == 0 {
				e.logger.Warn("line fetch: bad payload", "video_id", videoID, "error", err)
				return
			}
			e.mu.Lock()
			st.lines[h] = spans
			e.mu.Unlock()
			return
		}

		improved, err := provider.ImproveLineSegmentation(ctx, videoID, text, baseline, current)
		if err != nil {
			e.logger.Warn("line refinement failed", "video_id", videoID, "error", err)
			return
		}
		if len(improved) == 0 {
			return
		}
		if err := e.SetLineSegmentation(videoID, text, improved); err != nil {
			e.logger.Warn("line refinement rejected", "video_id", videoID, "error", err)
		}
	})
}

package engine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/khamlab/thaiseg/colloc"
	"github.com/khamlab/thaiseg/hint"
	"github.com/khamlab/thaiseg/segment"
)

// Config controls the segmentation engine. Zero values are replaced by
// defaults(), so a partial YAML file only overrides what it mentions.
type Config struct {
	// Enabled gates re-segmentation. When false, Segment returns the
	// baseline tokens untouched.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// MaxSpanLength bounds merged spans, both in baseline tokens per span
	// and as the rune length beyond which the overlength penalty applies.
	MaxSpanLength int `yaml:"max_span_length" json:"max_span_length"`

	// Collocation mining thresholds.
	MinCollocationCount int     `yaml:"min_collocation_count" json:"min_collocation_count"`
	PMIThreshold        float64 `yaml:"pmi_threshold" json:"pmi_threshold"`

	// MaxMergesPerVideo caps each video's merge set. Clamped to [100, 20000].
	MaxMergesPerVideo int `yaml:"max_merges_per_video" json:"max_merges_per_video"`

	// UseLexicon enables the static dictionary bonus.
	UseLexicon bool `yaml:"use_lexicon" json:"use_lexicon"`
	// LexiconPath optionally loads extra phrases on top of the embedded set.
	LexiconPath string `yaml:"lexicon_path" json:"lexicon_path"`

	// Weights are the span-cost constants.
	Weights segment.Weights `yaml:"weights" json:"weights"`

	// Cache TTLs for the backing store.
	MergeTTL time.Duration `yaml:"merge_ttl" json:"merge_ttl"`
	LineTTL  time.Duration `yaml:"line_ttl" json:"line_ttl"`

	// AI hint provider. Disabled when AI.Endpoint is empty.
	AI hint.Config `yaml:"ai" json:"ai"`
	// AISampleSize bounds how many merge candidates are offered to the
	// provider per fetch.
	AISampleSize int `yaml:"ai_sample_size" json:"ai_sample_size"`
	// AICooldown is the minimum interval between provider fetches per video.
	AICooldown time.Duration `yaml:"ai_cooldown" json:"ai_cooldown"`
}

// DefaultConfig returns the engine defaults. Enabled is true here rather
// than in defaults() so that an explicit `enabled: false` in YAML survives.
func DefaultConfig() Config {
	cfg := Config{Enabled: true, UseLexicon: true}
	cfg.defaults()
	return cfg
}

func (c *Config) defaults() {
	if c.MaxSpanLength <= 0 {
		c.MaxSpanLength = segment.DefaultMaxSpanLength
	}
	if c.MinCollocationCount <= 0 {
		c.MinCollocationCount = 2
	}
	if c.PMIThreshold <= 0 {
		c.PMIThreshold = 3.0
	}
	if c.MaxMergesPerVideo <= 0 {
		c.MaxMergesPerVideo = colloc.DefaultMaxPhrases
	}
	if c.MaxMergesPerVideo < colloc.MinPhraseCap {
		c.MaxMergesPerVideo = colloc.MinPhraseCap
	}
	if c.MaxMergesPerVideo > colloc.MaxPhraseCap {
		c.MaxMergesPerVideo = colloc.MaxPhraseCap
	}
	if c.Weights == (segment.Weights{}) {
		c.Weights = segment.DefaultWeights()
	}
	if c.MergeTTL <= 0 {
		c.MergeTTL = 24 * time.Hour
	}
	if c.LineTTL <= 0 {
		c.LineTTL = 30 * 24 * time.Hour
	}
	if c.AISampleSize <= 0 {
		c.AISampleSize = 10000
	}
	if c.AICooldown <= 0 {
		c.AICooldown = 60 * time.Minute
	}
}

// collocOptions maps the mining-related fields onto colloc.Options.
func (c *Config) collocOptions() colloc.Options {
	return colloc.Options{
		MinCount:     c.MinCollocationCount,
		PMIThreshold: c.PMIThreshold,
		MaxPhraseLen: c.MaxSpanLength,
		MaxPhrases:   c.MaxMergesPerVideo,
	}
}

// segmentOptions maps the solving-related fields onto segment.Options.
func (c *Config) segmentOptions() segment.Options {
	return segment.Options{
		MaxSpanLength: c.MaxSpanLength,
		Weights:       c.Weights,
	}
}

// LoadConfigFile reads a YAML config, layering it over DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("engine: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("engine: parse config %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, nil
}

// Package hint integrates an optional external hint source that can propose
// additional merge phrases for a video.
//
// The engine never depends on hints: a provider that is absent, slow, or
// failing only means segmentation runs on mined merges and the dictionary.
// Any implementation of Provider can be plugged in; New returns a no-op
// provider when no endpoint is configured, so "AI disabled" is just the
// default wiring.
package hint

import (
	"context"
	"log/slog"
	"time"
)

// Provider proposes segmentation hints. Both operations are best-effort:
// a nil result with a nil error means "no hint available".
type Provider interface {
	// FetchMergeHints sends a bounded sample of mined candidate phrases
	// for one video and returns additional merge phrases to union into
	// the video's merge set.
	FetchMergeHints(ctx context.Context, videoID string, candidates []string) ([]string, error)

	// ImproveLineSegmentation returns a refined token sequence for one
	// subtitle line, or nil when no refinement is available.
	ImproveLineSegmentation(ctx context.Context, videoID, lineText string, baseline, current []string) ([]string, error)
}

// Config configures the hint client.
type Config struct {
	// Endpoint is the base URL of an OpenAI-compatible chat completions
	// server. If empty, New returns a no-op provider.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Model is the model name sent in requests.
	Model string `yaml:"model" json:"model"`

	// APIKey, when set, is sent as a bearer token.
	APIKey string `yaml:"api_key" json:"-"`

	// MaxCandidates bounds how many candidate phrases are included in a
	// single request, regardless of how many the engine samples.
	// Default: 400.
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates"`

	// Timeout per HTTP request. Default: 30s.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-" json:"-"`
}

func (c *Config) defaults() {
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 400
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates a Provider from config. An empty Endpoint selects the no-op
// provider.
func New(cfg Config) Provider {
	cfg.defaults()
	if cfg.Endpoint == "" {
		return Noop{}
	}
	return newHTTPClient(cfg)
}

// Noop is the disabled provider: it never returns hints and never errors.
type Noop struct{}

// FetchMergeHints returns no hints.
func (Noop) FetchMergeHints(context.Context, string, []string) ([]string, error) {
	return nil, nil
}

// ImproveLineSegmentation returns no refinement.
func (Noop) ImproveLineSegmentation(context.Context, string, string, []string, []string) ([]string, error) {
	return nil, nil
}

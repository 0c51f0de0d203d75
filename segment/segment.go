package segment

import (
	"math"
	"strings"

	"github.com/khamlab/thaiseg/token"
)

// DefaultMaxSpanLength bounds span size (in tokens) and phrase length (in
// runes) when the caller does not configure one.
const DefaultMaxSpanLength = 12

// Options tunes the optimizer.
type Options struct {
	// MaxSpanLength bounds both the number of tokens per span and the rune
	// length past which the overlength penalty kicks in.
	// Default: DefaultMaxSpanLength.
	MaxSpanLength int
	// Weights are the cost constants. Zero value selects DefaultWeights.
	Weights Weights
}

func (o *Options) defaults() {
	if o.MaxSpanLength <= 0 {
		o.MaxSpanLength = DefaultMaxSpanLength
	}
	if o.Weights == (Weights{}) {
		o.Weights = DefaultWeights()
	}
}

// Solve partitions tokens into the minimum-cost sequence of spans. merges and
// dict may be nil. The output spans concatenate to the same text as the input
// tokens, and no span longer than one token crosses a hard boundary.
func Solve(tokens []string, merges, dict Lookup, opts Options) []string {
	n := len(tokens)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []string{tokens[0]}
	}
	opts.defaults()

	maxLen := opts.MaxSpanLength
	if maxLen > n {
		maxLen = n
	}

	// dp[i] is the cheapest cost of segmenting tokens[i:]; next[i] is the
	// boundary position the optimal span from i ends at.
	dp := make([]float64, n+1)
	next := make([]int, n+1)
	dp[n] = 0
	for i := n - 1; i >= 0; i-- {
		dp[i] = math.Inf(1)
		next[i] = -1
		for l := 1; l <= maxLen && i+l <= n; l++ {
			if !token.CanSpan(tokens, i, i+l) {
				// A hard boundary inside [i, i+l) also blocks every
				// longer span starting at i.
				break
			}
			phrase := strings.Join(tokens[i:i+l], "")
			total := Cost(phrase, l, merges, dict, opts.Weights, opts.MaxSpanLength) + dp[i+l]
			if total < dp[i] {
				dp[i] = total
				next[i] = i + l
			}
		}
	}

	spans := make([]string, 0, n)
	for i := 0; i < n; {
		j := next[i]
		if j <= i {
			break
		}
		spans = append(spans, strings.Join(tokens[i:j], ""))
		i = j
	}

	// Unit spans always reach dp[n], so an empty reconstruction means the
	// tables are inconsistent; return the raw tokens rather than dropping
	// text.
	if len(spans) == 0 {
		out := make([]string, n)
		copy(out, tokens)
		return out
	}
	return spans
}

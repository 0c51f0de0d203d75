// Package segment finds the minimum-cost partition of a baseline token
// sequence into display spans.
//
// The formulation is a shortest path over a DAG: nodes are token-boundary
// positions, edges are candidate spans weighted by Cost, and the optimal
// segmentation is the cheapest path from position 0 to position n. Merging is
// discouraged by a linear per-token base cost and encouraged by bonuses for
// phrases known to the static dictionary or the per-video merge set.
package segment

import "unicode/utf8"

// Lookup is a set-membership capability. Both the static dictionary and the
// per-video merge set satisfy it; nil means "no such set".
type Lookup interface {
	Contains(phrase string) bool
}

// Weights are the span-cost constants. They are empirically chosen, not
// derived from an objective; treat them as tunables with working defaults.
type Weights struct {
	TokenCost         float64 `yaml:"token_cost" json:"token_cost"`
	DictBonus         float64 `yaml:"dict_bonus" json:"dict_bonus"`
	MergeBonus        float64 `yaml:"merge_bonus" json:"merge_bonus"`
	SynergyBonus      float64 `yaml:"synergy_bonus" json:"synergy_bonus"`
	OverlengthPenalty float64 `yaml:"overlength_penalty" json:"overlength_penalty"`
	Floor             float64 `yaml:"floor" json:"floor"`
}

// DefaultWeights returns the stock cost constants.
func DefaultWeights() Weights {
	return Weights{
		TokenCost:         1.0,
		DictBonus:         2.0,
		MergeBonus:        1.2,
		SynergyBonus:      0.5,
		OverlengthPenalty: 2.0,
		Floor:             0.05,
	}
}

// Cost scores a candidate span. phrase is the concatenation of tokenCount
// adjacent tokens; maxPhraseLen is the rune-length ceiling beyond which the
// overlength penalty applies. The result never drops below the floor — a
// zero-cost span would let the optimizer merge for free.
func Cost(phrase string, tokenCount int, merges, dict Lookup, w Weights, maxPhraseLen int) float64 {
	cost := float64(tokenCount) * w.TokenCost

	inDict := dict != nil && dict.Contains(phrase)
	inMerge := merges != nil && merges.Contains(phrase)

	if inDict {
		cost -= w.DictBonus
	}
	if inMerge {
		cost -= w.MergeBonus
	}
	// Convergent evidence: both sources agreeing is worth more than the sum
	// of the individual bonuses.
	if inDict && inMerge {
		cost -= w.SynergyBonus
	}

	if maxPhraseLen > 0 && utf8.RuneCountInString(phrase) > maxPhraseLen {
		cost += w.OverlengthPenalty
	}

	if cost < w.Floor {
		cost = w.Floor
	}
	return cost
}

package token

// Thai Unicode block.
const (
	thaiLo = 0x0E00
	thaiHi = 0x0E7F
)

// IsThai reports whether r falls in the Thai Unicode block.
func IsThai(r rune) bool {
	return r >= thaiLo && r <= thaiHi
}

// IsHardBoundary reports whether tok contains any character outside the Thai
// block. Hard-boundary tokens (punctuation, Latin fragments, digits,
// whitespace) never participate in multi-token merges.
func IsHardBoundary(tok string) bool {
	for _, r := range tok {
		if !IsThai(r) {
			return true
		}
	}
	return false
}

// CanSpan reports whether tokens[start:end] may form a single span. A span of
// length 1 is always allowed; longer spans require every constituent token to
// be Thai-only.
func CanSpan(tokens []string, start, end int) bool {
	if end-start <= 1 {
		return true
	}
	for i := start; i < end; i++ {
		if IsHardBoundary(tokens[i]) {
			return false
		}
	}
	return true
}

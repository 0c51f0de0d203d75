package colloc_test

import (
	"fmt"
	"testing"

	"github.com/khamlab/thaiseg/colloc"
)

func contains(set []string, phrase string) bool {
	for _, p := range set {
		if p == phrase {
			return true
		}
	}
	return false
}

func TestMineBigramScenario(t *testing.T) {
	// 5 lines with the bigram ยัง+เชื่อ, 95 filler lines. The pair is
	// strongly associated relative to the video, so it must be mined.
	var lines [][]string
	for i := 0; i < 5; i++ {
		lines = append(lines, []string{"ยัง", "เชื่อ"})
	}
	for i := 0; i < 95; i++ {
		lines = append(lines, []string{fmt.Sprintf("w%da", i), fmt.Sprintf("w%db", i)})
	}

	set := colloc.Mine(lines, colloc.Options{})
	if !contains(set, "ยังเชื่อ") {
		t.Fatalf("mined set %v should contain ยังเชื่อ", set)
	}
}

func TestMineBelowMinCount(t *testing.T) {
	// A single occurrence never qualifies (default MinCount = 2).
	lines := [][]string{{"ผม", "กิน"}}
	for i := 0; i < 50; i++ {
		lines = append(lines, []string{fmt.Sprintf("f%d", i)})
	}
	set := colloc.Mine(lines, colloc.Options{})
	if contains(set, "ผมกิน") {
		t.Fatalf("one occurrence should not be mined, got %v", set)
	}
}

func TestMineTrigramRequiresStricterCount(t *testing.T) {
	filler := func(n int) [][]string {
		var out [][]string
		for i := 0; i < n; i++ {
			out = append(out, []string{fmt.Sprintf("f%d", i)})
		}
		return out
	}

	// Twice is enough for the bigrams but not for the trigram
	// (trigram gate is MinCount+1 = 3).
	twice := append([][]string{
		{"ไม่", "เป็น", "ไร"},
		{"ไม่", "เป็น", "ไร"},
	}, filler(100)...)
	set := colloc.Mine(twice, colloc.Options{})
	if contains(set, "ไม่เป็นไร") {
		t.Errorf("trigram with count 2 should not qualify, got %v", set)
	}
	if !contains(set, "ไม่เป็น") {
		t.Errorf("constituent bigram should qualify, got %v", set)
	}

	thrice := append([][]string{
		{"ไม่", "เป็น", "ไร"},
		{"ไม่", "เป็น", "ไร"},
		{"ไม่", "เป็น", "ไร"},
	}, filler(100)...)
	set = colloc.Mine(thrice, colloc.Options{})
	if !contains(set, "ไม่เป็นไร") {
		t.Errorf("trigram with count 3 should qualify, got %v", set)
	}
}

func TestMineSkipsHardBoundaryPairs(t *testing.T) {
	var lines [][]string
	for i := 0; i < 5; i++ {
		lines = append(lines, []string{"กิน", "123"})
	}
	for i := 0; i < 50; i++ {
		lines = append(lines, []string{fmt.Sprintf("f%d", i)})
	}
	set := colloc.Mine(lines, colloc.Options{})
	if contains(set, "กิน123") {
		t.Fatalf("pairs crossing a hard boundary must not be mined, got %v", set)
	}
}

func TestMineRespectsPhraseLength(t *testing.T) {
	long := "เชื่อมโยงยาวมาก" // combined with itself exceeds a tight cap
	var lines [][]string
	for i := 0; i < 5; i++ {
		lines = append(lines, []string{long, long})
	}
	set := colloc.Mine(lines, colloc.Options{MaxPhraseLen: 6})
	if len(set) != 0 {
		t.Fatalf("phrases over MaxPhraseLen must be dropped, got %v", set)
	}
}

func TestMineCapClamped(t *testing.T) {
	// 150 distinct, strongly associated pairs; a requested cap of 1 is
	// clamped up to the floor of 100.
	var lines [][]string
	for i := 0; i < 150; i++ {
		a := thaiToken(2 * i)
		b := thaiToken(2*i + 1)
		lines = append(lines, []string{a, b}, []string{a, b})
	}
	set := colloc.Mine(lines, colloc.Options{MaxPhrases: 1})
	if len(set) != 100 {
		t.Fatalf("got %d phrases, want 100 (clamped cap)", len(set))
	}
}

func TestPMIMonotonicity(t *testing.T) {
	// Same marginals and total, different joint counts: PMI must not
	// decrease as the joint count grows.
	low := colloc.NewStats()
	low.AddLine([]string{"ยัง", "เชื่อ"})
	low.AddLine([]string{"เชื่อ", "ยัง"})

	high := colloc.NewStats()
	high.AddLine([]string{"ยัง", "เชื่อ"})
	high.AddLine([]string{"ยัง", "เชื่อ"})

	if low.Total() != high.Total() {
		t.Fatalf("setup broken: totals differ (%d vs %d)", low.Total(), high.Total())
	}
	if high.PMI("ยัง", "เชื่อ") <= low.PMI("ยัง", "เชื่อ") {
		t.Errorf("PMI should grow with joint count: low=%f high=%f",
			low.PMI("ยัง", "เชื่อ"), high.PMI("ยัง", "เชื่อ"))
	}
}

func TestMineDeterministic(t *testing.T) {
	var lines [][]string
	for i := 0; i < 20; i++ {
		a := thaiToken(2 * i)
		b := thaiToken(2*i + 1)
		lines = append(lines, []string{a, b}, []string{a, b})
	}
	first := colloc.Mine(lines, colloc.Options{})
	second := colloc.Mine(lines, colloc.Options{})
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order differs at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

// thaiToken builds a distinct Thai-only token for each seed below 44*44,
// spelling the seed in base-44 consonants.
func thaiToken(seed int) string {
	const base = 0x0E01 // ก
	return string([]rune{
		rune(base + seed%44),
		rune(base + (seed/44)%44),
	})
}

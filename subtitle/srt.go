// Package subtitle parses SubRip (.srt) files into cues so whole-video
// warm-up can run over subtitle text without a player in the loop.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Cue is one subtitle block.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	// Text is the cue text with markup tags stripped; multi-line cues keep
	// their internal newlines.
	Text string
}

var (
	timeLineRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)
	tagRe      = regexp.MustCompile(`</?[a-zA-Z][^>]*>|\{\\[^}]*\}`)
)

// ParseSRT reads all cues from r. Blocks must carry a numeric index line and
// a timestamp line; a malformed block aborts the parse with an error naming
// the offending line.
func ParseSRT(r io.Reader) ([]Cue, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []Cue
	lineNo := 0

	readLine := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		return line, true
	}

	for {
		// Index line; tolerate extra blank lines between blocks.
		var idxLine string
		var ok bool
		for {
			idxLine, ok = readLine()
			if !ok {
				if err := sc.Err(); err != nil {
					return nil, fmt.Errorf("subtitle: read: %w", err)
				}
				return cues, nil
			}
			if idxLine != "" {
				break
			}
		}
		idx, err := strconv.Atoi(idxLine)
		if err != nil {
			return nil, fmt.Errorf("subtitle: line %d: invalid cue index %q", lineNo, idxLine)
		}

		timeLine, ok := readLine()
		if !ok {
			return nil, fmt.Errorf("subtitle: line %d: cue %d missing timestamps", lineNo, idx)
		}
		m := timeLineRe.FindStringSubmatch(timeLine)
		if m == nil {
			return nil, fmt.Errorf("subtitle: line %d: invalid timestamp line %q", lineNo, timeLine)
		}
		start := timestamp(m[1], m[2], m[3], m[4])
		end := timestamp(m[5], m[6], m[7], m[8])

		var text []string
		for {
			line, ok := readLine()
			if !ok || line == "" {
				break
			}
			line = tagRe.ReplaceAllString(line, "")
			if line != "" {
				text = append(text, line)
			}
		}

		cues = append(cues, Cue{
			Index: idx,
			Start: start,
			End:   end,
			Text:  strings.Join(text, "\n"),
		})
	}
}

// Lines flattens cues into individual text lines, dropping empties. This is
// the shape the warm-up entry point wants.
func Lines(cues []Cue) []string {
	var out []string
	for _, c := range cues {
		for _, line := range strings.Split(c.Text, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

func timestamp(h, m, s, ms string) time.Duration {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.Atoi(s)
	mss, _ := strconv.Atoi(ms)
	return time.Duration(hh)*time.Hour +
		time.Duration(mm)*time.Minute +
		time.Duration(ss)*time.Second +
		time.Duration(mss)*time.Millisecond
}

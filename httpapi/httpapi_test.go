package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/khamlab/thaiseg/engine"
	"github.com/khamlab/thaiseg/httpapi"
)

// testWords is a greedy longest-match splitter over a fixed vocabulary so the
// baseline tokenization is deterministic in tests.
var testVocab = []string{"เชื่อ", "ข้าว", "วันนี้", "ยัง", "ผม", "กิน", "ดี"}

func testWords(text string) []string {
	var out []string
	rs := []rune(text)
	for i := 0; i < len(rs); {
		matched := ""
		for _, w := range testVocab {
			wr := []rune(w)
			if len(wr) > len(matched) && i+len(wr) <= len(rs) && string(rs[i:i+len(wr)]) == w {
				matched = w
			}
		}
		if matched == "" {
			matched = string(rs[i])
		}
		out = append(out, matched)
		i += len([]rune(matched))
	}
	return out
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := engine.New(engine.DefaultConfig(),
		engine.WithWordFunc(testWords),
		engine.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	ts := httptest.NewServer(httpapi.New(eng, logger).Router())
	t.Cleanup(func() {
		ts.Close()
		eng.Close()
	})
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestMergesAndSegment(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/videos/vid/merges", map[string]any{
		"phrases": []string{"กินข้าว"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("merges status = %d", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/v1/videos/vid/segment", map[string]any{
		"text": "ผมกินข้าว",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("segment status = %d", resp.StatusCode)
	}
	var seg struct {
		VideoID string   `json:"video_id"`
		Spans   []string `json:"spans"`
	}
	decode(t, resp, &seg)
	if seg.VideoID != "vid" {
		t.Errorf("video_id = %q", seg.VideoID)
	}
	if len(seg.Spans) != 2 || seg.Spans[0] != "ผม" || seg.Spans[1] != "กินข้าว" {
		t.Errorf("spans = %v, want [ผม กินข้าว]", seg.Spans)
	}
}

func TestWarmupWithSRT(t *testing.T) {
	ts := newTestServer(t)

	srt := "1\n00:00:01,000 --> 00:00:02,000\nผมกินข้าว\n\n" +
		"2\n00:00:03,000 --> 00:00:04,000\nกินข้าว\n\n" +
		"3\n00:00:05,000 --> 00:00:06,000\nยังกินข้าว\n\n" +
		"4\n00:00:07,000 --> 00:00:08,000\nกินข้าววันนี้\n\n" +
		"5\n00:00:09,000 --> 00:00:10,000\nกินข้าวดี\n\n"
	body := map[string]any{"srt": srt}
	// Filler lines raise total token mass so the recurring pair clears the
	// PMI threshold, as it would over a full video.
	lines := make([]string, 0, 95)
	for i := 0; i < 95; i++ {
		lines = append(lines, "วันนี้")
	}
	body["lines"] = lines

	resp := postJSON(t, ts.URL+"/v1/videos/vid/warmup", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("warmup status = %d", resp.StatusCode)
	}
	var warm struct {
		Lines int `json:"lines"`
		Added int `json:"added"`
	}
	decode(t, resp, &warm)
	if warm.Lines != 100 {
		t.Errorf("lines = %d, want 100", warm.Lines)
	}
	if warm.Added == 0 {
		t.Error("warmup mined nothing")
	}

	resp = postJSON(t, ts.URL+"/v1/videos/vid/segment", map[string]any{"text": "ผมกินข้าว"})
	var seg struct {
		Spans []string `json:"spans"`
	}
	decode(t, resp, &seg)
	if len(seg.Spans) != 2 || seg.Spans[1] != "กินข้าว" {
		t.Errorf("spans after warmup = %v", seg.Spans)
	}
}

func TestSetLine(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/videos/vid/segment", map[string]any{"text": "ผมกินข้าว"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("segment status = %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/v1/videos/vid/lines",
		bytes.NewReader(mustJSON(t, map[string]any{
			"text":  "ผมกินข้าว",
			"spans": []string{"ผมกิน", "ข้าว"},
		})))
	if err != nil {
		t.Fatal(err)
	}
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("put line status = %d", resp2.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/v1/videos/vid/segment", map[string]any{"text": "ผมกินข้าว"})
	var seg struct {
		Spans []string `json:"spans"`
	}
	decode(t, resp, &seg)
	if len(seg.Spans) != 2 || seg.Spans[0] != "ผมกิน" {
		t.Errorf("spans = %v, want stored line [ผมกิน ข้าว]", seg.Spans)
	}
}

func TestSetLineRejectsMismatch(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/v1/videos/vid/lines",
		bytes.NewReader(mustJSON(t, map[string]any{
			"text":  "ผมกินข้าว",
			"spans": []string{"ผม", "ข้าว"},
		})))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/config")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var cfg map[string]any
	decode(t, resp, &cfg)
	if cfg["enabled"] != true {
		t.Fatalf("config.enabled = %v", cfg["enabled"])
	}

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/v1/config",
		bytes.NewReader([]byte(`{"enabled": false}`)))
	if err != nil {
		t.Fatal(err)
	}
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var updated map[string]any
	decode(t, resp2, &updated)
	if updated["enabled"] != false {
		t.Fatalf("updated.enabled = %v", updated["enabled"])
	}
	// Partial update left the rest intact.
	if updated["pmi_threshold"] != 3.0 {
		t.Fatalf("updated.pmi_threshold = %v", updated["pmi_threshold"])
	}

	// Disabled engine returns the baseline split.
	resp3 := postJSON(t, ts.URL+"/v1/videos/vid/segment", map[string]any{"text": "ผมกินข้าว"})
	var seg struct {
		Spans []string `json:"spans"`
	}
	decode(t, resp3, &seg)
	if len(seg.Spans) != 3 {
		t.Fatalf("spans while disabled = %v, want 3 baseline tokens", seg.Spans)
	}
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/videos/vid/segment", "application/json",
		bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed JSON: status = %d, want 400", resp.StatusCode)
	}

	resp2 := postJSON(t, ts.URL+"/v1/videos/vid/segment", map[string]any{})
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("empty text: status = %d, want 400", resp2.StatusCode)
	}

	resp3 := postJSON(t, ts.URL+"/v1/videos/vid/warmup", map[string]any{"srt": "garbage"})
	if resp3.StatusCode != http.StatusBadRequest {
		t.Errorf("bad srt: status = %d, want 400", resp3.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts.URL+"/v1/videos/vid/merges", map[string]any{"phrases": []string{"กินข้าว"}})

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var stats struct {
		Videos int `json:"videos"`
		Merges int `json:"merges"`
	}
	decode(t, resp, &stats)
	if stats.Videos != 1 || stats.Merges != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

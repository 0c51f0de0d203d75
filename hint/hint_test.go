package hint_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/khamlab/thaiseg/hint"
)

func TestNewReturnsNoopWithoutEndpoint(t *testing.T) {
	p := hint.New(hint.Config{})
	if _, ok := p.(hint.Noop); !ok {
		t.Fatalf("expected Noop, got %T", p)
	}
	merges, err := p.FetchMergeHints(context.Background(), "v1", []string{"x"})
	if err != nil || merges != nil {
		t.Fatalf("Noop.FetchMergeHints = %v, %v", merges, err)
	}
}

func chatReply(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestFetchMergeHints(t *testing.T) {
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		chatReply(t, `{"merges": ["กินข้าว", "ยังเชื่อ"]}`)(w, r)
	}))
	defer srv.Close()

	p := hint.New(hint.Config{Endpoint: srv.URL, Model: "test-model"})
	merges, err := p.FetchMergeHints(context.Background(), "vid1", []string{"กินข้าว", "อะไรนะ"})
	if err != nil {
		t.Fatal(err)
	}
	if len(merges) != 2 || merges[0] != "กินข้าว" {
		t.Fatalf("merges = %v", merges)
	}
	if gotBody.Model != "test-model" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(gotBody.Messages))
	}
}

func TestFetchMergeHintsFencedJSON(t *testing.T) {
	srv := httptest.NewServer(chatReply(t, "```json\n{\"merges\": [\"กินข้าว\"]}\n```"))
	defer srv.Close()

	p := hint.New(hint.Config{Endpoint: srv.URL})
	merges, err := p.FetchMergeHints(context.Background(), "vid1", []string{"กินข้าว"})
	if err != nil {
		t.Fatal(err)
	}
	if len(merges) != 1 {
		t.Fatalf("merges = %v", merges)
	}
}

func TestFetchMergeHintsTruncatesCandidates(t *testing.T) {
	var sent int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		var payload struct {
			Candidates []string `json:"candidates"`
		}
		json.Unmarshal([]byte(body.Messages[1].Content), &payload)
		sent = len(payload.Candidates)
		chatReply(t, `{"merges": []}`)(w, r)
	}))
	defer srv.Close()

	p := hint.New(hint.Config{Endpoint: srv.URL, MaxCandidates: 3})
	candidates := []string{"a", "b", "c", "d", "e"}
	if _, err := p.FetchMergeHints(context.Background(), "vid1", candidates); err != nil {
		t.Fatal(err)
	}
	if sent != 3 {
		t.Fatalf("sent %d candidates, want 3", sent)
	}
}

func TestFetchMergeHintsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := hint.New(hint.Config{Endpoint: srv.URL})
	if _, err := p.FetchMergeHints(context.Background(), "vid1", []string{"x"}); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}

func TestFetchMergeHintsMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(chatReply(t, "sorry, I cannot help with that"))
	defer srv.Close()

	p := hint.New(hint.Config{Endpoint: srv.URL})
	if _, err := p.FetchMergeHints(context.Background(), "vid1", []string{"x"}); err == nil {
		t.Fatal("expected error on malformed payload")
	}
}

func TestFetchMergeHintsEmptyCandidates(t *testing.T) {
	// No candidates, no call.
	p := hint.New(hint.Config{Endpoint: "http://127.0.0.1:1"})
	merges, err := p.FetchMergeHints(context.Background(), "vid1", nil)
	if err != nil || merges != nil {
		t.Fatalf("got %v, %v", merges, err)
	}
}

func TestImproveLineSegmentationIsCacheOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("per-line path must not hit the network")
	}))
	defer srv.Close()

	p := hint.New(hint.Config{Endpoint: srv.URL})
	toks, err := p.ImproveLineSegmentation(context.Background(), "vid1", "ผมกินข้าว",
		[]string{"ผม", "กิน", "ข้าว"}, []string{"ผม", "กินข้าว"})
	if err != nil || toks != nil {
		t.Fatalf("got %v, %v", toks, err)
	}
}

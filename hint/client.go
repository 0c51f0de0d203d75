package hint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// httpClient talks to an OpenAI-compatible /v1/chat/completions endpoint.
// This covers vLLM, Ollama, OpenRouter, and OpenAI itself.
type httpClient struct {
	endpoint string
	cfg      Config
	client   *http.Client
}

func newHTTPClient(cfg Config) *httpClient {
	return &httpClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

const mergeHintSystem = "You segment Thai subtitle text. Given candidate word merges " +
	"mined from one video, reply with a JSON object {\"merges\": [...]} listing only " +
	"the candidates that form natural Thai words or set phrases, plus any obvious " +
	"compounds the list is missing. Reply with JSON only."

// chatRequest is the JSON body sent to /v1/chat/completions.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the chat completions response we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// mergePayload is the JSON document embedded in the model's reply.
type mergePayload struct {
	Merges []string `json:"merges"`
}

// FetchMergeHints sends up to MaxCandidates mined phrases and returns the
// phrases the provider endorses. All failures come back as errors; the caller
// logs and continues without hints.
func (c *httpClient) FetchMergeHints(ctx context.Context, videoID string, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(candidates) > c.cfg.MaxCandidates {
		candidates = candidates[:c.cfg.MaxCandidates]
	}

	user, err := json.Marshal(map[string]any{
		"video_id":   videoID,
		"candidates": candidates,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: mergeHintSystem},
			{Role: "user", Content: string(user)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(respBody))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from %s", url)
	}

	var payload mergePayload
	content := extractJSON(result.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("parse hint payload: %w", err)
	}
	return payload.Merges, nil
}

// ImproveLineSegmentation is served from the engine's line cache only; the
// per-line network round-trip stays disabled as a cost control — one provider
// call per video is permitted, through the merge-hints path.
func (c *httpClient) ImproveLineSegmentation(context.Context, string, string, []string, []string) ([]string, error) {
	return nil, nil
}

// extractJSON tolerates models that wrap their JSON reply in code fences or
// prose: it returns the outermost {...} block, or the input unchanged.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

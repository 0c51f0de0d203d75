package engine

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/khamlab/thaiseg/kit"
)

// RegisterMCP registers the segmentation tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerSegmentTool(srv)
	e.registerWarmupTool(srv)
	e.registerSetMergesTool(srv)
	e.registerStatsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- segment ---

type segmentReq struct {
	VideoID string `json:"video_id"`
	Text    string `json:"text"`
}

func (e *Engine) registerSegmentTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "thaiseg_segment",
		Description: "Segment one Thai subtitle line into word spans for a video.",
		InputSchema: inputSchema(map[string]any{
			"video_id": map[string]any{"type": "string", "description": "Video the line belongs to"},
			"text":     map[string]any{"type": "string", "description": "Subtitle line text"},
		}, []string{"video_id", "text"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*segmentReq)
		return map[string]any{"spans": e.Segment(r.VideoID, r.Text)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r segmentReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				return kit.WithVideoID(ctx, r.VideoID)
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- warmup ---

type warmupReq struct {
	VideoID string   `json:"video_id"`
	Lines   []string `json:"lines"`
}

func (e *Engine) registerWarmupTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "thaiseg_warmup",
		Description: "Mine collocation merges from a video's subtitle lines and cache them.",
		InputSchema: inputSchema(map[string]any{
			"video_id": map[string]any{"type": "string", "description": "Video to warm up"},
			"lines":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "All subtitle lines of the video"},
		}, []string{"video_id", "lines"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*warmupReq)
		added := e.WarmUpVideo(ctx, r.VideoID, r.Lines)
		return map[string]any{"added": added}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r warmupReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				return kit.WithVideoID(ctx, r.VideoID)
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- set merges ---

type setMergesReq struct {
	VideoID string   `json:"video_id"`
	Phrases []string `json:"phrases"`
}

func (e *Engine) registerSetMergesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "thaiseg_set_merges",
		Description: "Add merge phrases to a video's merge set.",
		InputSchema: inputSchema(map[string]any{
			"video_id": map[string]any{"type": "string", "description": "Target video"},
			"phrases":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Thai phrases to merge when adjacent tokens match"},
		}, []string{"video_id", "phrases"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*setMergesReq)
		return map[string]any{"added": e.SetMergeHints(r.VideoID, r.Phrases)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r setMergesReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- stats ---

func (e *Engine) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "thaiseg_stats",
		Description: "Report merge-set and line-cache sizes per tracked video.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return e.Stats(), nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

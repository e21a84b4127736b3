// Registers the blockprobe MCP tools: start a verification run, read run history.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/blockprobe/idgen"
	"github.com/hazyhaar/blockprobe/kit"
	"github.com/hazyhaar/blockprobe/probe/internal/config"
	"github.com/hazyhaar/blockprobe/probe/internal/history"
)

// Tools exposes probe runs and run history over MCP. A fresh Runner is
// built per run call, so one Tools value serves many runs.
type Tools struct {
	Config *config.Config
	Logger *slog.Logger
}

// RegisterMCP registers the blockprobe tools on an MCP server.
func (t *Tools) RegisterMCP(srv *mcp.Server) {
	t.registerRunTool(srv)
	t.registerHistoryTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
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

// --- run ---

type runRequest struct {
	Slug      string `json:"slug,omitempty"`
	Block     string `json:"block,omitempty"`
	EditorURL string `json:"editor_url,omitempty"`
}

type runResponse struct {
	RunID   string `json:"run_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (t *Tools) registerRunTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "blockprobe_run",
		Description: "Run the block-directory verification scenarios against the configured editor. Returns the run ID and verdict.",
		InputSchema: inputSchema(map[string]any{
			"slug":       map[string]any{"type": "string", "description": "Override the extension slug to search and install"},
			"block":      map[string]any{"type": "string", "description": "Override the block type expected in the document"},
			"editor_url": map[string]any{"type": "string", "description": "Override the editor page URL"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*runRequest)
		cfg := *t.Config
		if r.Slug != "" {
			cfg.Plugin.Slug = r.Slug
		}
		if r.Block != "" {
			cfg.Plugin.Block = r.Block
		}
		if r.EditorURL != "" {
			cfg.Editor.URL = r.EditorURL
		}

		runner, err := NewRunner(&cfg, t.Logger)
		if err != nil {
			return nil, err
		}
		defer runner.Close()

		resp := runResponse{RunID: runner.RunID(), Success: true}
		if err := runner.Run(ctx); err != nil {
			resp.Success = false
			resp.Error = err.Error()
		}
		return &resp, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r runRequest
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				ctx = kit.WithTransport(ctx, "mcp")
				return kit.WithRequestID(ctx, idgen.Prefixed("req_", idgen.NanoID(12))())
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- history ---

type historyRequest struct {
	Limit int    `json:"limit,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

func (t *Tools) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "blockprobe_history",
		Description: "Read recent verification run outcomes from the history store.",
		InputSchema: inputSchema(map[string]any{
			"limit":  map[string]any{"type": "integer", "description": "Max runs to return (default 20)"},
			"run_id": map[string]any{"type": "string", "description": "Return only the outcomes of this run"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		if t.Config.History.Path == "" {
			return nil, fmt.Errorf("probe: no history store configured")
		}
		r := req.(*historyRequest)

		store, err := history.Open(t.Config.History.Path, t.Logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		if r.RunID != "" {
			return store.Run(ctx, r.RunID)
		}
		return store.Recent(ctx, r.Limit)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r historyRequest
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				return kit.WithTransport(ctx, "mcp")
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

package probe

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/blockprobe/probe/internal/config"
	"github.com/hazyhaar/blockprobe/probe/internal/history"
	"github.com/hazyhaar/blockprobe/probe/internal/report"

	_ "modernc.org/sqlite"
)

var testMCPImpl = &mcp.Implementation{Name: "blockprobe-test", Version: "0.1.0"}

func mcpSession(t *testing.T, tools *Tools) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	tools.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func testTools(t *testing.T, historyPath string) *Tools {
	t.Helper()
	cfg := &config.Config{
		Editor:  config.EditorConfig{URL: "http://editor.test/wp-admin/post-new.php"},
		Plugin:  config.PluginConfig{Slug: "sample-block"},
		History: config.HistoryConfig{Path: historyPath},
	}
	cfg.ApplyDefaults()
	return &Tools{Config: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestMCP_ToolsRegistered(t *testing.T) {
	session := mcpSession(t, testTools(t, ""))

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"blockprobe_run", "blockprobe_history"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
}

func TestMCP_History(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := history.Open(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	store.Record(context.Background(), report.Outcome{
		RunID: "run_1", Scenario: ScenarioInstall, Success: true,
		Blocks: []string{"create-block/sample"}, StartedAt: 100, FinishedAt: 200,
	})
	store.Record(context.Background(), report.Outcome{
		RunID: "run_1", Scenario: ScenarioAssetDiff, Success: true,
		Scripts: []string{"sample-block/build/index.js"}, StartedAt: 200, FinishedAt: 300,
	})
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	session := mcpSession(t, testTools(t, path))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "blockprobe_history",
		Arguments: map[string]any{"run_id": "run_1"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("tool error: %v", err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}

	var outcomes []report.Outcome
	if err := json.Unmarshal([]byte(tc.Text), &outcomes); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes: got %d, want 2", len(outcomes))
	}
	for _, out := range outcomes {
		if out.RunID != "run_1" {
			t.Errorf("run_id = %q, want 'run_1'", out.RunID)
		}
	}
}

func TestMCP_History_NoStoreConfigured(t *testing.T) {
	session := mcpSession(t, testTools(t, ""))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "blockprobe_history",
		Arguments: map[string]any{},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	// GetError always returns nil on clients; IsError is the wire-visible signal.
	if !result.IsError {
		t.Fatal("expected a tool error without a configured history store")
	}
}

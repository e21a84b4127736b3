package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sampleOutcome() Outcome {
	return Outcome{
		RunID:    "run_1",
		Scenario: "block-directory-install",
		Success:  true,
		Scripts:  []string{"boxer/build/index.js"},
		Styles:   []string{"boxer/build/style.css"},
		Blocks:   []string{"boxer/boxer"},
		RunURL:   "https://ci.example/runs/1",
	}
}

func TestStdout_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	if err := s.Send(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var env struct {
		Type string  `json:"type"`
		Data Outcome `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "outcome" {
		t.Errorf("type: got %q, want %q", env.Type, "outcome")
	}
	if !env.Data.Success || env.Data.Scenario != "block-directory-install" {
		t.Errorf("data: got %+v", env.Data)
	}
}

func TestCI_KeyValueLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewCI(&buf)
	if err := s.Send(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	got := make(map[string]string, len(lines))
	for _, line := range lines {
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			t.Fatalf("malformed line %q", line)
		}
		got[key] = val
	}

	if got["success"] != "true" {
		t.Errorf("success: got %q", got["success"])
	}
	if got["error"] != "" {
		t.Errorf("error: got %q, want empty", got["error"])
	}
	if got["scripts"] != `["boxer/build/index.js"]` {
		t.Errorf("scripts: got %q", got["scripts"])
	}
	if got["run_url"] != "https://ci.example/runs/1" {
		t.Errorf("run_url: got %q", got["run_url"])
	}
	for _, key := range []string{"styles", "blocks", "screenshots"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing output key %q", key)
		}
	}
}

func TestCI_FailureOutcome(t *testing.T) {
	var buf bytes.Buffer
	s := NewCI(&buf)
	out := Outcome{Scenario: "block-directory-install", Error: "no block types were registered"}
	if err := s.Send(context.Background(), out); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "success=false\n") {
		t.Errorf("output missing success=false:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "error=no block types were registered\n") {
		t.Errorf("output missing error line:\n%s", buf.String())
	}
}

func TestWebhook_PostsEnvelope(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	s := NewWebhook(srv.URL)
	if err := s.Send(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(received, &env); err != nil {
		t.Fatalf("unmarshal posted body: %v", err)
	}
	if env.Type != "outcome" {
		t.Errorf("type: got %q", env.Type)
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	s := NewWebhook(srv.URL, WithWebhookRetries(2))
	if err := s.Send(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts: got %d, want 2", attempts)
	}
}

type failSink struct{ calls int }

func (f *failSink) Send(context.Context, Outcome) error {
	f.calls++
	return errors.New("sink down")
}
func (f *failSink) Close() error { return nil }

func TestRouter_FanOutContinuesPastFailure(t *testing.T) {
	failing := &failSink{}
	var buf bytes.Buffer
	ok := NewStdout(&buf)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(logger, failing, ok)

	err := r.Send(context.Background(), sampleOutcome())
	if err == nil {
		t.Fatal("Send: want first error returned")
	}
	if failing.calls != 1 {
		t.Errorf("failing sink calls: got %d, want 1", failing.calls)
	}
	if buf.Len() == 0 {
		t.Error("healthy sink skipped after earlier failure")
	}
}

func TestCallback_Invoked(t *testing.T) {
	var got Outcome
	cb := NewCallback(func(_ context.Context, out Outcome) error {
		got = out
		return nil
	})
	if err := cb.Send(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.RunID != "run_1" {
		t.Errorf("callback outcome: got %+v", got)
	}
}

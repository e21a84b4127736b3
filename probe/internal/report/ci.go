package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// CI writes named key/value outputs in the format CI runners consume from an
// output file: one "key=value" pair per line, list values JSON-encoded.
// Writes are append-only and never queried back.
type CI struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer // set when the sink owns the file
}

// NewCI creates a CI sink writing to w.
func NewCI(w io.Writer) *CI {
	return &CI{w: w}
}

// OpenCIFile creates a CI sink appending to the file at path, creating it if
// needed. This matches runners that hand the harness an output-file path.
func OpenCIFile(path string) (*CI, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("report: open ci output: %w", err)
	}
	return &CI{w: f, c: f}, nil
}

func (s *CI) Send(_ context.Context, out Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs := []struct {
		key string
		val any
	}{
		{"success", out.Success},
		{"error", out.Error},
		{"scripts", out.Scripts},
		{"styles", out.Styles},
		{"blocks", out.Blocks},
		{"screenshots", out.Screenshots},
		{"run_url", out.RunURL},
	}

	for _, p := range pairs {
		if err := s.writePair(p.key, p.val); err != nil {
			return err
		}
	}
	return nil
}

func (s *CI) writePair(key string, val any) error {
	var text string
	switch v := val.(type) {
	case bool:
		text = fmt.Sprintf("%t", v)
	case string:
		text = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("report: encode ci output %q: %w", key, err)
		}
		text = string(data)
	}
	_, err := fmt.Fprintf(s.w, "%s=%s\n", key, text)
	if err != nil {
		return fmt.Errorf("report: write ci output %q: %w", key, err)
	}
	return nil
}

func (s *CI) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

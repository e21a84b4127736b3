package editor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Cleaner removes the installed plugin through the site's management REST
// API. It is invoked unconditionally after all scenarios, whatever their
// outcome, so the next run starts from a clean site.
type Cleaner struct {
	base   string // site origin, e.g. http://localhost:8889
	user   string
	pass   string
	client *http.Client
	logger *slog.Logger
}

// NewCleaner creates a Cleaner for the site hosting editorURL, using HTTP
// basic auth with an application password.
func NewCleaner(editorURL, user, pass string, logger *slog.Logger) (*Cleaner, error) {
	u, err := url.Parse(editorURL)
	if err != nil {
		return nil, fmt.Errorf("editor: cleaner url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		base:   u.Scheme + "://" + u.Host,
		user:   user,
		pass:   pass,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}, nil
}

// Cleanup deactivates then uninstalls the plugin. Best-effort: failures are
// logged, never surfaced, so cleanup cannot mask a scenario verdict.
func (c *Cleaner) Cleanup(ctx context.Context, slug string) {
	if err := c.deactivate(ctx, slug); err != nil {
		c.logger.Warn("editor: deactivate failed", "slug", slug, "error", err)
	}
	if err := c.uninstall(ctx, slug); err != nil {
		c.logger.Warn("editor: uninstall failed", "slug", slug, "error", err)
	}
}

func (c *Cleaner) deactivate(ctx context.Context, slug string) error {
	body := bytes.NewReader([]byte(`{"status":"inactive"}`))
	return c.do(ctx, http.MethodPut, c.pluginEndpoint(slug), body)
}

func (c *Cleaner) uninstall(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodDelete, c.pluginEndpoint(slug), nil)
}

// pluginEndpoint addresses the plugin by its conventional "slug/slug" ID.
func (c *Cleaner) pluginEndpoint(slug string) string {
	return fmt.Sprintf("%s/wp-json/wp/v2/plugins/%s", c.base, url.PathEscape(slug+"/"+slug))
}

func (c *Cleaner) do(ctx context.Context, method, endpoint string, body *bytes.Reader) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return fmt.Errorf("editor: cleanup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("editor: cleanup do: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("editor: cleanup status %d", resp.StatusCode)
	}
	return nil
}

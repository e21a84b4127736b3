package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/blockprobe/probe/internal/pagelog"
)

// Tab wraps a Rod page pointed at the editor, with the page-level diagnostic
// listeners a scenario consults afterwards.
type Tab struct {
	Page    *rod.Page
	PageURL string
}

// OpenTab creates a stealth tab, navigates to the editor URL, and waits for
// the load event within navTimeout.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, navTimeout time.Duration) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL}, nil
}

// WatchPage subscribes response and uncaught-exception events into log for
// the lifetime of ctx. Must be called before the actions it should cover.
func (t *Tab) WatchPage(ctx context.Context, log *pagelog.Log) {
	go t.Page.Context(ctx).EachEvent(
		func(e *proto.NetworkResponseReceived) {
			log.ObserveResponse(e.Response.Status, e.Response.URL)
		},
		func(e *proto.RuntimeExceptionThrown) {
			log.ObserveScriptError(exceptionText(e))
		},
	)()
}

// exceptionText extracts the most descriptive message from a CDP exception.
func exceptionText(e *proto.RuntimeExceptionThrown) string {
	d := e.ExceptionDetails
	if d == nil {
		return ""
	}
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	return d.Text
}

// Screenshot captures the viewport as PNG into dir under name, creating the
// directory if needed. Returns the written path.
func (t *Tab) Screenshot(ctx context.Context, dir, name string) (string, error) {
	data, err := t.Page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("browser: screenshot: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("browser: screenshot dir: %w", err)
	}
	path := filepath.Join(dir, name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("browser: write screenshot: %w", err)
	}
	return path, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}

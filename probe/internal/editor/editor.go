// Package editor drives the block editor under test: the inserter panel, the
// block-directory search, the install trigger, and the post-install checks.
//
// Everything here talks to the page through Rod; the scenario logic that
// decides pass or fail lives with the probe runner.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/blockprobe/assets"
	"github.com/hazyhaar/blockprobe/probe/internal/browser"
	"github.com/hazyhaar/blockprobe/probe/internal/pagelog"
	"github.com/hazyhaar/blockprobe/probe/internal/race"
)

// Selectors for the editor surface. Centralised so a markup change is a
// one-line fix.
const (
	selInserterToggle = `.editor-document-tools__inserter-toggle, .edit-post-header-toolbar__inserter-toggle`
	selInserterSearch = `.block-editor-inserter__search input[type="search"], .components-search-control__input`
	selDownloadItem   = `.block-directory-downloadable-blocks-list__item`
	selErrorNotice    = `.components-notice.is-error .components-notice__content`

	// searchEndpoint is the request path fragment of the registry search.
	searchEndpoint = "block-directory/search"
)

// The two terminal UI states the completion race accepts. Installing a block
// normally removes its entry from the downloadable list; blocks with
// editorial children restrictions keep the entry visible and only drop the
// busy state.
const (
	settledNormalJS = `() =>
		document.querySelector('` + selDownloadItem + `') === null`
	settledRestrictedJS = `() => {
		const el = document.querySelector('` + selDownloadItem + `');
		return el !== null && !el.classList.contains('is-busy');
	}`
)

// Session is one editor tab plus its page diagnostics.
type Session struct {
	tab    *browser.Tab
	log    *pagelog.Log
	logger *slog.Logger

	screenshotDir string
	sanitize      *bluemonday.Policy
}

// Config for opening a Session.
type Config struct {
	EditorURL         string
	AssetPrefix       string
	NavigationTimeout time.Duration
	ScreenshotDir     string
	Logger            *slog.Logger
}

// Open navigates a fresh tab to the editor and arms the page listeners.
// The listeners must be live before any scenario action so the sticky flags
// cover the whole window.
func Open(ctx context.Context, mgr *browser.Manager, cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}

	tab, err := browser.OpenTab(ctx, mgr, cfg.EditorURL, cfg.NavigationTimeout)
	if err != nil {
		return nil, fmt.Errorf("editor: open: %w", err)
	}

	s := &Session{
		tab:           tab,
		log:           pagelog.New(cfg.AssetPrefix),
		logger:        cfg.Logger,
		screenshotDir: cfg.ScreenshotDir,
		sanitize:      bluemonday.StrictPolicy(),
	}
	tab.WatchPage(ctx, s.log)

	cfg.Logger.Info("editor: session open", "url", cfg.EditorURL)
	return s, nil
}

// OpenInserter clicks the block inserter toggle and waits for the search
// input to appear.
func (s *Session) OpenInserter(ctx context.Context) error {
	page := s.tab.Page.Context(ctx)

	toggle, err := page.Element(selInserterToggle)
	if err != nil {
		return fmt.Errorf("editor: inserter toggle: %w", err)
	}
	if err := toggle.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("editor: open inserter: %w", err)
	}

	if _, err := page.Element(selInserterSearch); err != nil {
		return fmt.Errorf("editor: inserter search input: %w", err)
	}
	return nil
}

// SettleWatchers returns the completion-race watchers for an in-flight
// install, one per accepted terminal UI state.
func (s *Session) SettleWatchers() []race.Watcher {
	return []race.Watcher{
		{
			Signal: race.SettledNormally,
			Wait: func(ctx context.Context) error {
				return s.tab.Page.Context(ctx).Wait(rod.Eval(settledNormalJS))
			},
		},
		{
			Signal: race.SettledRestricted,
			Wait: func(ctx context.Context) error {
				return s.tab.Page.Context(ctx).Wait(rod.Eval(settledRestrictedJS))
			},
		},
	}
}

// CaptureScripts snapshots the page's loaded script resources.
func (s *Session) CaptureScripts(ctx context.Context) (assets.Snapshot, error) {
	return s.tab.CaptureScripts(ctx)
}

// CaptureStyles snapshots the page's loaded stylesheet resources.
func (s *Session) CaptureStyles(ctx context.Context) (assets.Snapshot, error) {
	return s.tab.CaptureStyles(ctx)
}

// InstallNotice returns the text of a visible install-error notice, markup
// stripped, or "" when none is shown.
func (s *Session) InstallNotice(ctx context.Context) (string, error) {
	res, err := s.tab.Page.Context(ctx).Eval(`(sel) => {
		const el = document.querySelector(sel);
		return el ? el.innerHTML : '';
	}`, selErrorNotice)
	if err != nil {
		return "", fmt.Errorf("editor: read notice: %w", err)
	}

	raw := res.Value.Str()
	if raw == "" {
		return "", nil
	}
	return strings.TrimSpace(s.sanitize.Sanitize(raw)), nil
}

// Screenshot captures the editor viewport. Best-effort diagnostics: callers
// are expected to swallow the error.
func (s *Session) Screenshot(ctx context.Context, name string) (string, error) {
	return s.tab.Screenshot(ctx, s.screenshotDir, name)
}

// LastScriptError returns the sticky uncaught-script-error flag.
func (s *Session) LastScriptError() string { return s.log.LastScriptError() }

// Last404Path returns the sticky plugin-asset 404 flag.
func (s *Session) Last404Path() string { return s.log.Last404Path() }

// ResetScriptError clears the script-error flag at a scenario boundary.
func (s *Session) ResetScriptError() { s.log.ResetScriptError() }

// Close closes the editor tab.
func (s *Session) Close() error { return s.tab.Close() }

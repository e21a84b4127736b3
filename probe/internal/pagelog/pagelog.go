// Package pagelog tracks the two sticky diagnostic flags a scenario consults
// after an install settles: the most recent uncaught script error and the
// most recent 404 on a plugin-owned resource path.
//
// Reset points are deliberate and asymmetric. The script error resets at each
// scenario start; the 404 path never resets, so a missing asset from an
// earlier action stays attributable when a later notice appears.
package pagelog

import (
	"net/url"
	"strings"
	"sync"
)

// DefaultAssetPrefix marks plugin-owned resource paths in the editor's
// document root.
const DefaultAssetPrefix = "/wp-content/plugins/"

// Log is the per-scenario-context flag holder. Safe for concurrent use:
// browser event listeners write while the scenario runner reads.
type Log struct {
	mu          sync.Mutex
	prefix      string
	scriptErr   string
	missingPath string
}

// New creates a Log recording 404s under the given plugin asset prefix.
// An empty prefix falls back to DefaultAssetPrefix.
func New(assetPrefix string) *Log {
	if assetPrefix == "" {
		assetPrefix = DefaultAssetPrefix
	}
	return &Log{prefix: assetPrefix}
}

// ObserveResponse records rawURL as the last missing plugin asset when the
// status is 404 and the path is plugin-owned. Other responses are ignored.
func (l *Log) ObserveResponse(status int, rawURL string) {
	if status != 404 {
		return
	}
	path, ok := NormalizeAssetPath(rawURL, l.prefix)
	if !ok {
		return
	}
	l.mu.Lock()
	l.missingPath = path
	l.mu.Unlock()
}

// ObserveScriptError records text as the most recent uncaught script error.
// Empty text is ignored.
func (l *Log) ObserveScriptError(text string) {
	if text == "" {
		return
	}
	l.mu.Lock()
	l.scriptErr = text
	l.mu.Unlock()
}

// ResetScriptError clears the script error flag. Called at scenario start.
func (l *Log) ResetScriptError() {
	l.mu.Lock()
	l.scriptErr = ""
	l.mu.Unlock()
}

// LastScriptError returns the most recent uncaught script error, or "".
func (l *Log) LastScriptError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scriptErr
}

// Last404Path returns the normalized path of the most recent plugin-asset
// 404, or "". Sticky across scenarios.
func (l *Log) Last404Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.missingPath
}

// NormalizeAssetPath strips host, the plugin-directory prefix, and any
// cache-busting query parameters from rawURL. ok is false when the URL does
// not point under the prefix.
func NormalizeAssetPath(rawURL, prefix string) (path string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	p := u.Path
	idx := strings.Index(p, prefix)
	if idx < 0 {
		return "", false
	}

	rest := p[idx+len(prefix):]
	if rest == "" {
		return "", false
	}
	return rest, true
}

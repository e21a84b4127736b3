package browser

import (
	"context"
	"fmt"

	"github.com/hazyhaar/blockprobe/assets"
)

// Asset enumeration runs in the page so the ids reflect what the document
// actually loaded, not what the markup promised.
const (
	scriptsJS = `() => Array.from(document.querySelectorAll('script[src]'))
		.map(s => s.getAttribute('src'))`
	stylesJS = `() => Array.from(document.querySelectorAll('link[rel="stylesheet"][href]'))
		.map(l => l.getAttribute('href'))`
)

// CaptureScripts returns the script resources the page has loaded, in
// document order. The result is an independent snapshot: later page changes
// do not affect it.
func (t *Tab) CaptureScripts(ctx context.Context) (assets.Snapshot, error) {
	return t.captureAssets(ctx, scriptsJS)
}

// CaptureStyles returns the stylesheet resources the page has loaded, in
// document order.
func (t *Tab) CaptureStyles(ctx context.Context) (assets.Snapshot, error) {
	return t.captureAssets(ctx, stylesJS)
}

func (t *Tab) captureAssets(ctx context.Context, js string) (assets.Snapshot, error) {
	res, err := t.Page.Context(ctx).Eval(js)
	if err != nil {
		return nil, fmt.Errorf("browser: capture assets: %w", err)
	}

	arr := res.Value.Arr()
	ids := make([]string, 0, len(arr))
	for _, v := range arr {
		if s := v.Str(); s != "" {
			ids = append(ids, s)
		}
	}
	return assets.FromIDs(ids), nil
}

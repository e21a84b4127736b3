package pagelog

import "testing"

func TestNormalizeAssetPath(t *testing.T) {
	cases := []struct {
		name   string
		rawURL string
		want   string
		ok     bool
	}{
		{
			name:   "plugin asset with cache buster",
			rawURL: "https://example.test/wp-content/plugins/boxer/build/index.js?ver=1.2.3",
			want:   "boxer/build/index.js",
			ok:     true,
		},
		{
			name:   "plugin asset without query",
			rawURL: "http://localhost:8889/wp-content/plugins/boxer/style.css",
			want:   "boxer/style.css",
			ok:     true,
		},
		{
			name:   "core asset outside plugin dir",
			rawURL: "https://example.test/wp-includes/js/dist/blocks.js",
			ok:     false,
		},
		{
			name:   "prefix with nothing after it",
			rawURL: "https://example.test/wp-content/plugins/",
			ok:     false,
		},
		{
			name:   "unparseable url",
			rawURL: "http://[::1]:namedport/x",
			ok:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeAssetPath(tc.rawURL, DefaultAssetPrefix)
			if ok != tc.ok {
				t.Fatalf("ok: got %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("path: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLog_404OnlyOnPluginPaths(t *testing.T) {
	l := New("")

	l.ObserveResponse(404, "https://example.test/wp-includes/js/core.js")
	if got := l.Last404Path(); got != "" {
		t.Fatalf("core 404 recorded: %q", got)
	}

	l.ObserveResponse(200, "https://example.test/wp-content/plugins/boxer/a.js")
	if got := l.Last404Path(); got != "" {
		t.Fatalf("200 recorded as 404: %q", got)
	}

	l.ObserveResponse(404, "https://example.test/wp-content/plugins/boxer/a.js?ver=9")
	if got := l.Last404Path(); got != "boxer/a.js" {
		t.Fatalf("Last404Path: got %q, want %q", got, "boxer/a.js")
	}
}

func TestLog_404IsStickyAcrossReset(t *testing.T) {
	l := New("")
	l.ObserveResponse(404, "https://example.test/wp-content/plugins/boxer/a.js")
	l.ResetScriptError()
	if got := l.Last404Path(); got != "boxer/a.js" {
		t.Fatalf("404 flag lost on script-error reset: %q", got)
	}
}

func TestLog_LastScriptErrorKeepsMostRecent(t *testing.T) {
	l := New("")
	l.ObserveScriptError("first")
	l.ObserveScriptError("second")
	if got := l.LastScriptError(); got != "second" {
		t.Fatalf("LastScriptError: got %q, want %q", got, "second")
	}

	l.ObserveScriptError("")
	if got := l.LastScriptError(); got != "second" {
		t.Fatalf("empty error overwrote flag: %q", got)
	}

	l.ResetScriptError()
	if got := l.LastScriptError(); got != "" {
		t.Fatalf("LastScriptError after reset: got %q, want empty", got)
	}
}

func TestLog_CustomPrefix(t *testing.T) {
	l := New("/content/extensions/")
	l.ObserveResponse(404, "https://cms.test/content/extensions/widget/bundle.js")
	if got := l.Last404Path(); got != "widget/bundle.js" {
		t.Fatalf("Last404Path: got %q, want %q", got, "widget/bundle.js")
	}
}

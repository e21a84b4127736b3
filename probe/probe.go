// Package probe runs the block-directory verification scenarios against a
// live editor: search the remote registry, install the extension, and
// confirm it loads without script, style, or runtime errors.
//
// The runner drives two ordered scenarios over one shared editor session.
// The install scenario captures asset baselines, triggers the install, races
// the UI completion signals, and verifies the result; the follow-up scenario
// re-derives the asset diff against the fresh-load snapshot the runner
// recorded at session open. Cleanup runs unconditionally afterwards.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/blockprobe/assets"
	"github.com/hazyhaar/blockprobe/idgen"
	"github.com/hazyhaar/blockprobe/probe/internal/browser"
	"github.com/hazyhaar/blockprobe/probe/internal/config"
	"github.com/hazyhaar/blockprobe/probe/internal/editor"
	"github.com/hazyhaar/blockprobe/probe/internal/fetcher"
	"github.com/hazyhaar/blockprobe/probe/internal/history"
	"github.com/hazyhaar/blockprobe/probe/internal/race"
	"github.com/hazyhaar/blockprobe/probe/internal/report"
)

// Scenario names as they appear in outcomes and the history store.
const (
	ScenarioInstall   = "block-directory-install"
	ScenarioAssetDiff = "asset-diff-followup"
)

// session is the editor collaborator surface the scenarios drive. The Rod
// implementation lives in internal/editor; tests substitute a fake.
type session interface {
	OpenInserter(ctx context.Context) error
	Search(ctx context.Context, term string) (int, error)
	TriggerInstall(ctx context.Context) error
	SettleWatchers() []race.Watcher
	RegisteredBlocks(ctx context.Context) ([]string, error)
	InsertedInDocument(ctx context.Context, blockType string) (bool, error)
	InstallNotice(ctx context.Context) (string, error)
	CaptureScripts(ctx context.Context) (assets.Snapshot, error)
	CaptureStyles(ctx context.Context) (assets.Snapshot, error)
	Screenshot(ctx context.Context, name string) (string, error)
	LastScriptError() string
	Last404Path() string
	ResetScriptError()
}

// scenarioContext threads the ordering-sensitive state between scenarios:
// the fresh-load snapshots recorded at session open and the block the
// install scenario confirmed. The follow-up scenario cannot run before the
// install scenario populated it.
type scenarioContext struct {
	freshScripts assets.Snapshot
	freshStyles  assets.Snapshot

	installedBlock string
}

// Runner orchestrates a probe run. Create one per run.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	sinks  report.Sink
	store  *history.Store
	mgr    *browser.Manager
	newID  idgen.Generator
	runID  string

	// Seams for tests: the rod-backed defaults are installed by NewRunner.
	openSession func(ctx context.Context) (session, func() error, error)
	preflight   func(ctx context.Context) error
	cleanup     func(ctx context.Context)
}

// NewRunner wires a Runner from configuration: sinks, history store, browser
// manager, and the cleanup collaborator.
func NewRunner(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:    cfg,
		logger: logger,
		newID:  idgen.Prefixed("run_", idgen.Default),
	}
	r.runID = r.newID()

	sinks, err := buildSinks(cfg.Sinks, logger)
	if err != nil {
		return nil, err
	}
	r.sinks = report.NewRouter(logger, sinks...)

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path, logger)
		if err != nil {
			return nil, err
		}
		r.store = store
	}

	r.mgr = browser.NewManager(browser.Config{
		RemoteURL: cfg.Browser.Remote,
		Headful:   cfg.Browser.Headful,
		Logger:    logger,
	})

	cleaner, err := editor.NewCleaner(cfg.Editor.URL, cfg.Editor.APIUser, cfg.Editor.APIPassword, logger)
	if err != nil {
		return nil, err
	}
	r.cleanup = func(ctx context.Context) { cleaner.Cleanup(ctx, cfg.Plugin.Slug) }

	fetch := fetcher.New(fetcher.WithLogger(logger))
	r.preflight = func(ctx context.Context) error {
		res, err := fetch.Fetch(ctx, cfg.Editor.URL)
		if err != nil {
			return fmt.Errorf("probe: editor unreachable: %w", err)
		}
		if res.StatusCode >= 500 {
			return fmt.Errorf("probe: editor unhealthy: status %d", res.StatusCode)
		}
		logger.Debug("probe: preflight ok",
			"status", res.StatusCode,
			"markup_scripts", len(res.Scripts), "markup_styles", len(res.Styles))
		return nil
	}

	r.openSession = func(ctx context.Context) (session, func() error, error) {
		if _, err := r.mgr.Start(ctx); err != nil {
			return nil, nil, err
		}
		s, err := editor.Open(ctx, r.mgr, editor.Config{
			EditorURL:         cfg.Editor.URL,
			AssetPrefix:       cfg.Editor.AssetPrefix,
			NavigationTimeout: cfg.Editor.NavigationTimeout,
			ScreenshotDir:     cfg.Editor.ScreenshotDir,
			Logger:            logger,
		})
		if err != nil {
			r.mgr.Close()
			return nil, nil, err
		}
		closeAll := func() error {
			s.Close()
			return r.mgr.Close()
		}
		return s, closeAll, nil
	}

	return r, nil
}

// RunID returns the identifier outcomes of this run carry.
func (r *Runner) RunID() string { return r.runID }

// HistoryHandler returns the read-only HTTP API over the run history, or nil
// when no history store is configured.
func (r *Runner) HistoryHandler() http.Handler {
	if r.store == nil {
		return nil
	}
	return r.store.Handler()
}

// Close releases the runner's sinks and history store.
func (r *Runner) Close() error {
	err := r.sinks.Close()
	if r.store != nil {
		if cerr := r.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Run executes the ordered scenario set and returns the first failure, or
// nil when every scenario passed. The overall verdict is the logical AND of
// the scenario outcomes. Cleanup always runs, whatever the verdict.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("probe: run starting",
		"run_id", r.runID, "slug", r.cfg.Plugin.Slug, "editor", r.cfg.Editor.URL)

	defer func() {
		r.logger.Info("probe: cleanup", "slug", r.cfg.Plugin.Slug)
		r.cleanup(ctx)
	}()

	if err := r.preflight(ctx); err != nil {
		return err
	}

	s, closeSession, err := r.openSession(ctx)
	if err != nil {
		return fmt.Errorf("probe: open editor session: %w", err)
	}
	defer closeSession()

	sctx := &scenarioContext{}
	r.recordFreshLoad(ctx, s, sctx)

	installOut, installErr := r.runInstallScenario(ctx, s, sctx)
	r.emit(ctx, installOut)

	followOut, followErr := r.runFollowupScenario(ctx, s, sctx)
	r.emit(ctx, followOut)

	if installErr != nil {
		return installErr
	}
	return followErr
}

// recordFreshLoad captures the pre-install "fresh load" snapshots right
// after session open. A capture failure is logged, not fatal: the follow-up
// scenario will then fail its own precondition check.
func (r *Runner) recordFreshLoad(ctx context.Context, s session, sctx *scenarioContext) {
	var err error
	if sctx.freshScripts, err = s.CaptureScripts(ctx); err != nil {
		r.logger.Warn("probe: fresh-load script snapshot failed", "error", err)
	}
	if sctx.freshStyles, err = s.CaptureStyles(ctx); err != nil {
		r.logger.Warn("probe: fresh-load style snapshot failed", "error", err)
	}
	r.logger.Debug("probe: fresh-load snapshots recorded",
		"scripts", len(sctx.freshScripts), "styles", len(sctx.freshStyles))
}

// emit delivers an outcome to the sinks and the history store. Fire and
// forget: delivery failures never change a verdict.
func (r *Runner) emit(ctx context.Context, out report.Outcome) {
	if err := r.sinks.Send(ctx, out); err != nil {
		r.logger.Warn("probe: outcome delivery failed", "scenario", out.Scenario, "error", err)
	}
	if r.store != nil {
		r.store.Record(ctx, out)
	}
}

// transition logs a scenario state change.
func (r *Runner) transition(scenario string, to scenarioState) {
	r.logger.Debug("probe: state", "scenario", scenario, "state", to.String())
}

// screenshot attaches a best-effort screenshot to the outcome. Failures are
// swallowed: diagnostics never change a verdict.
func (r *Runner) screenshot(ctx context.Context, s session, out *report.Outcome, name string) {
	path, err := s.Screenshot(ctx, name)
	if err != nil {
		r.logger.Warn("probe: screenshot failed", "name", name, "error", err)
		return
	}
	out.Screenshots = append(out.Screenshots, path)
}

func buildSinks(cfgs []config.SinkConfig, logger *slog.Logger) ([]report.Sink, error) {
	var sinks []report.Sink
	for _, sc := range cfgs {
		switch sc.Type {
		case "stdout", "":
			sinks = append(sinks, report.NewStdout(nil))
		case "ci":
			s, err := report.OpenCIFile(sc.Path)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		case "webhook":
			sinks = append(sinks, report.NewWebhook(sc.URL, report.WithWebhookLogger(logger)))
		default:
			return nil, fmt.Errorf("probe: unknown sink type %q", sc.Type)
		}
	}
	return sinks, nil
}

func nowMilli() int64 { return time.Now().UnixMilli() }

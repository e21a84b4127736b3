package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/blockprobe/assets"
	"github.com/hazyhaar/blockprobe/probe/internal/editor"
	"github.com/hazyhaar/blockprobe/probe/internal/race"
	"github.com/hazyhaar/blockprobe/probe/internal/report"
)

// assetLoadNoticeText is the exact generic notice the editor shows when a
// plugin asset fails to load. The enrichment below matches it verbatim:
// localization or upstream copy changes disable the enrichment, and the
// generic notice is reported as-is.
const assetLoadNoticeText = "Error loading asset."

// runInstallScenario executes the search-install-verify scenario and returns
// its outcome plus the failure, if any. Any failing check short-circuits the
// rest; the outcome carries the most specific error string known.
func (r *Runner) runInstallScenario(ctx context.Context, s session, sctx *scenarioContext) (report.Outcome, error) {
	out := report.Outcome{
		RunID:     r.runID,
		Scenario:  ScenarioInstall,
		RunURL:    r.cfg.RunURL,
		StartedAt: nowMilli(),
	}

	err := r.installSteps(ctx, s, sctx, &out)
	out.FinishedAt = nowMilli()

	if err != nil {
		r.transition(ScenarioInstall, stateFailed)
		out.Success = false
		out.Error = err.Error()
		r.screenshot(ctx, s, &out, "install-failed")
		return out, err
	}

	r.transition(ScenarioInstall, statePassed)
	out.Success = true
	return out, nil
}

func (r *Runner) installSteps(ctx context.Context, s session, sctx *scenarioContext, out *report.Outcome) error {
	r.transition(ScenarioInstall, stateIdle)
	s.ResetScriptError()

	if err := s.OpenInserter(ctx); err != nil {
		return err
	}

	// Search the registry. An unusable response stops the scenario before
	// any install is triggered.
	count, err := s.Search(ctx, r.cfg.Plugin.Slug)
	if err != nil {
		if errors.Is(err, editor.ErrNotArray) {
			return fmt.Errorf("%w: %v", ErrSearchInvalid, err)
		}
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: empty result array for %q", ErrSearchInvalid, r.cfg.Plugin.Slug)
	}

	// Baseline snapshots before the install mutates the page.
	baselineScripts, err := s.CaptureScripts(ctx)
	if err != nil {
		return err
	}
	baselineStyles, err := s.CaptureStyles(ctx)
	if err != nil {
		return err
	}
	baselineBlocks, err := s.RegisteredBlocks(ctx)
	if err != nil {
		return err
	}
	r.transition(ScenarioInstall, stateBaselineCaptured)

	if err := s.TriggerInstall(ctx); err != nil {
		return err
	}
	r.transition(ScenarioInstall, stateInstallTriggered)

	// Race the equivalent terminal UI states. Which one fired carries no
	// information the checks below need.
	r.transition(ScenarioInstall, stateAwaitingCompletion)
	sig, err := race.Await(ctx, r.cfg.Editor.CompletionTimeout, s.SettleWatchers()...)
	if err != nil {
		r.transition(ScenarioInstall, stateTimedOut)
		return fmt.Errorf("install of %q did not settle: %w", r.cfg.Plugin.Slug, err)
	}
	r.transition(ScenarioInstall, stateSettled)
	r.logger.Debug("probe: install settled", "signal", sig.String())

	// Explicit install-error notice, enriched with the missing asset path
	// when the tracked 404 explains the generic message.
	notice, err := s.InstallNotice(ctx)
	if err != nil {
		return err
	}
	if notice != "" {
		if notice == assetLoadNoticeText {
			if path := s.Last404Path(); path != "" {
				notice = "Error loading asset: " + path
			}
		}
		return fmt.Errorf("%w: %s", ErrInstallNotice, notice)
	}

	// At least one new block type must have registered.
	blocks, err := s.RegisteredBlocks(ctx)
	if err != nil {
		return err
	}
	newBlocks := newStrings(baselineBlocks, blocks)
	if len(newBlocks) == 0 {
		return ErrNoBlocksRegistered
	}
	out.Blocks = newBlocks

	// Any uncaught script error over the whole window fails the scenario,
	// reported verbatim.
	if jsErr := s.LastScriptError(); jsErr != "" {
		return fmt.Errorf("%w: %s", ErrRuntimeScript, jsErr)
	}

	// The installed block must actually be in the document.
	expected := r.cfg.Plugin.Block
	if expected == "" {
		expected = newBlocks[0]
	}
	inserted, err := s.InsertedInDocument(ctx, expected)
	if err != nil {
		return err
	}
	if !inserted {
		return fmt.Errorf("%w: %s", ErrNotInserted, expected)
	}
	sctx.installedBlock = expected

	// Post-install diffs ride along on the outcome for the follow-up
	// check's consumers; they are not part of this scenario's verdict.
	postScripts, err := s.CaptureScripts(ctx)
	if err != nil {
		return err
	}
	postStyles, err := s.CaptureStyles(ctx)
	if err != nil {
		return err
	}
	out.Scripts = assets.Diff(baselineScripts, postScripts).IDs()
	out.Styles = assets.Diff(baselineStyles, postStyles).IDs()

	r.transition(ScenarioInstall, stateVerified)
	return nil
}

// runFollowupScenario re-derives the asset diff between the fresh-load
// snapshots and the current page, asserting the install loaded at least one
// new script and one new style. It runs against the same page state as the
// install scenario and depends on its side effects.
func (r *Runner) runFollowupScenario(ctx context.Context, s session, sctx *scenarioContext) (report.Outcome, error) {
	out := report.Outcome{
		RunID:     r.runID,
		Scenario:  ScenarioAssetDiff,
		RunURL:    r.cfg.RunURL,
		StartedAt: nowMilli(),
	}

	err := r.followupSteps(ctx, s, sctx, &out)
	out.FinishedAt = nowMilli()

	if err != nil {
		out.Success = false
		out.Error = err.Error()
		r.screenshot(ctx, s, &out, "followup-failed")
		return out, err
	}

	out.Success = true
	return out, nil
}

func (r *Runner) followupSteps(ctx context.Context, s session, sctx *scenarioContext, out *report.Outcome) error {
	// Scenario boundary: the script-error flag resets, the 404 flag stays.
	s.ResetScriptError()

	if len(sctx.freshScripts) == 0 && len(sctx.freshStyles) == 0 {
		return ErrPrecondition
	}

	curScripts, err := s.CaptureScripts(ctx)
	if err != nil {
		return err
	}
	curStyles, err := s.CaptureStyles(ctx)
	if err != nil {
		return err
	}

	scriptDiff := assets.Diff(sctx.freshScripts, curScripts)
	styleDiff := assets.Diff(sctx.freshStyles, curStyles)
	out.Scripts = scriptDiff.IDs()
	out.Styles = styleDiff.IDs()

	if len(scriptDiff) == 0 {
		return fmt.Errorf("probe: install of %q loaded no new script resources", r.cfg.Plugin.Slug)
	}
	if len(styleDiff) == 0 {
		return fmt.Errorf("probe: install of %q loaded no new style resources", r.cfg.Plugin.Slug)
	}
	return nil
}

// newStrings returns the entries of after absent from before, in after's
// order.
func newStrings(before, after []string) []string {
	known := make(map[string]struct{}, len(before))
	for _, s := range before {
		known[s] = struct{}{}
	}
	var out []string
	for _, s := range after {
		if _, ok := known[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

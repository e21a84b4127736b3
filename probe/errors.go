package probe

import (
	"errors"

	"github.com/hazyhaar/blockprobe/probe/internal/race"
)

// Scenario failure taxonomy. Every failure is scenario-fatal and non-retried;
// the runner surfaces the most specific message it has, then propagates so
// the process exit status reflects the run.
var (
	// ErrSearchInvalid: the registry search response was not array-shaped
	// or matched nothing. The scenario stops before triggering any install.
	ErrSearchInvalid = errors.New("probe: block directory search returned no usable results")

	// ErrTimeout: the completion race exceeded its bound.
	ErrTimeout = race.ErrTimeout

	// ErrInstallNotice: the editor surfaced an explicit install-error
	// notice, possibly enriched with the missing asset path.
	ErrInstallNotice = errors.New("probe: install error notice")

	// ErrNoBlocksRegistered: the install settled but registered no new
	// block types.
	ErrNoBlocksRegistered = errors.New("probe: no new block types were registered")

	// ErrRuntimeScript: an uncaught script error occurred during the
	// scenario window.
	ErrRuntimeScript = errors.New("probe: uncaught script error")

	// ErrNotInserted: the expected block never appeared in the document.
	ErrNotInserted = errors.New("probe: installed block not present in document")

	// ErrPrecondition: the follow-up diff check found its pre-recorded
	// fresh-load snapshot empty. The check depends on the install
	// scenario's side effects and cannot run without them.
	ErrPrecondition = errors.New("probe: fresh-load snapshot missing, install scenario must run first")
)

// scenarioState tracks the scenario lifecycle for logging. Terminal states
// are statePassed and stateFailed; stateTimedOut transitions directly to
// stateFailed.
type scenarioState int

const (
	stateIdle scenarioState = iota
	stateBaselineCaptured
	stateInstallTriggered
	stateAwaitingCompletion
	stateSettled
	stateTimedOut
	stateVerified
	statePassed
	stateFailed
)

func (s scenarioState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateBaselineCaptured:
		return "baseline-captured"
	case stateInstallTriggered:
		return "install-triggered"
	case stateAwaitingCompletion:
		return "awaiting-completion"
	case stateSettled:
		return "settled"
	case stateTimedOut:
		return "timed-out"
	case stateVerified:
		return "verified"
	case statePassed:
		return "passed"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

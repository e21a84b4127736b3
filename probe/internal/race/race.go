// Package race implements a first-to-resolve wait over multiple equivalent
// completion conditions.
//
// An asynchronous install settles into one of several UI end-states with no
// ordering guarantee between them. Waiting on a single condition would
// false-negative on the legitimate alternates, so Await fans out one watcher
// per condition and resolves through a single first-wins gate. Losing
// watchers are abandoned; they hold no resources worth cleaning up.
package race

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Signal is the completion variant a watcher reports. All signals mean the
// same logical outcome (the operation finished); callers must not branch on
// which one fired.
type Signal int

const (
	// SettledNormally: the primary UI returned to its default state.
	SettledNormally Signal = iota
	// SettledRestricted: the trigger control lost its busy state without
	// disappearing. Blocks with editorial children restrictions end here.
	SettledRestricted
)

func (s Signal) String() string {
	switch s {
	case SettledNormally:
		return "settled-normally"
	case SettledRestricted:
		return "settled-restricted"
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// ErrTimeout indicates no watcher resolved before the deadline.
var ErrTimeout = errors.New("race: timed out awaiting completion")

// DefaultTimeout tolerates slow installs on a cold registry.
const DefaultTimeout = 60 * time.Second

// Watcher pairs a blocking wait with the signal it reports on success.
// Wait must block until its condition holds or ctx is done, and return a
// non-nil error if the condition could not be confirmed.
type Watcher struct {
	Signal Signal
	Wait   func(ctx context.Context) error
}

// Await resolves as soon as any watcher's condition holds. If timeout <= 0,
// DefaultTimeout applies. When the deadline passes with no watcher resolved,
// the error wraps ErrTimeout, never before the deadline.
//
// Watcher errors do not resolve the race; a watcher that fails is simply out
// of the running and the others keep waiting.
func Await(ctx context.Context, timeout time.Duration, watchers ...Watcher) (Signal, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so the winner never blocks; later finishers hit the default
	// branch and exit.
	won := make(chan Signal, 1)

	for _, w := range watchers {
		go func(w Watcher) {
			if err := w.Wait(ctx); err != nil {
				return
			}
			select {
			case won <- w.Signal:
			default:
			}
		}(w)
	}

	select {
	case sig := <-won:
		return sig, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("%w (limit %s)", ErrTimeout, timeout)
	}
}

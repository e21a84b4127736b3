package race

import (
	"context"
	"errors"
	"testing"
	"time"
)

func after(d time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func never(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestAwait_FirstWins(t *testing.T) {
	start := time.Now()
	sig, err := Await(context.Background(), time.Second,
		Watcher{Signal: SettledNormally, Wait: after(10 * time.Millisecond)},
		Watcher{Signal: SettledRestricted, Wait: after(500 * time.Millisecond)},
	)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if sig != SettledNormally {
		t.Errorf("signal: got %v, want %v", sig, SettledNormally)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("resolved in %s, want well before the slow watcher", elapsed)
	}
}

func TestAwait_AlternateStateWins(t *testing.T) {
	sig, err := Await(context.Background(), time.Second,
		Watcher{Signal: SettledNormally, Wait: never},
		Watcher{Signal: SettledRestricted, Wait: after(10 * time.Millisecond)},
	)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if sig != SettledRestricted {
		t.Errorf("signal: got %v, want %v", sig, SettledRestricted)
	}
}

func TestAwait_Timeout(t *testing.T) {
	start := time.Now()
	_, err := Await(context.Background(), 50*time.Millisecond,
		Watcher{Signal: SettledNormally, Wait: never},
		Watcher{Signal: SettledRestricted, Wait: never},
	)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error: got %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("timed out after %s, must never fire before the limit", elapsed)
	}
}

func TestAwait_WatcherErrorDoesNotResolve(t *testing.T) {
	failing := func(ctx context.Context) error {
		return errors.New("selector gone")
	}
	sig, err := Await(context.Background(), time.Second,
		Watcher{Signal: SettledNormally, Wait: failing},
		Watcher{Signal: SettledRestricted, Wait: after(20 * time.Millisecond)},
	)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if sig != SettledRestricted {
		t.Errorf("signal: got %v, want the surviving watcher", sig)
	}
}

func TestAwait_AllWatchersFail(t *testing.T) {
	failing := func(ctx context.Context) error { return errors.New("nope") }
	_, err := Await(context.Background(), 50*time.Millisecond,
		Watcher{Signal: SettledNormally, Wait: failing},
	)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error: got %v, want ErrTimeout", err)
	}
}

func TestAwait_NoWatchers(t *testing.T) {
	_, err := Await(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error: got %v, want ErrTimeout", err)
	}
}

func TestAwait_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Await(ctx, time.Minute,
		Watcher{Signal: SettledNormally, Wait: never},
	)
	if err == nil {
		t.Fatal("Await: want error after parent cancel")
	}
}

func TestSignal_String(t *testing.T) {
	if got := SettledNormally.String(); got != "settled-normally" {
		t.Errorf("String: got %q", got)
	}
	if got := SettledRestricted.String(); got != "settled-restricted" {
		t.Errorf("String: got %q", got)
	}
}

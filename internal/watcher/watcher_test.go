package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/corvid-labs/fuda/internal/scope"
)

type rebuildLog struct {
	mu     sync.Mutex
	scopes []scope.Scope
}

func (l *rebuildLog) record(root scope.Root) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scopes = append(l.scopes, root.Scope)
	return nil
}

func (l *rebuildLog) count(s scope.Scope) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, got := range l.scopes {
		if got == s {
			n++
		}
	}
	return n
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, vaultDir string, log *rebuildLog, cb EventCallback) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	roots := []scope.Root{{Scope: scope.Local, Path: filepath.Dir(vaultDir)}}
	dirs := map[scope.Scope]string{scope.Local: vaultDir}
	go func() {
		_ = Watch(ctx, roots, dirs, log.record, quietLogger(), cb)
	}()
	time.Sleep(100 * time.Millisecond)
	return cancel
}

func TestWatchSchedulesReindexOnWrite(t *testing.T) {
	vaultDir := t.TempDir()
	log := &rebuildLog{}

	var cbMu sync.Mutex
	var cbScopes []scope.Scope
	cancel := startWatcher(t, vaultDir, log, func(root scope.Root) {
		cbMu.Lock()
		cbScopes = append(cbScopes, root.Scope)
		cbMu.Unlock()
	})
	defer cancel()

	_ = os.WriteFile(filepath.Join(vaultDir, "note.md"), []byte("# Note"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.count(scope.Local) >= 1
	}, "write did not trigger a rebuild")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		cbMu.Lock()
		defer cbMu.Unlock()
		return len(cbScopes) >= 1 && cbScopes[0] == scope.Local
	}, "rebuild callback not invoked")
}

func TestWatchDebouncesBursts(t *testing.T) {
	vaultDir := t.TempDir()
	log := &rebuildLog{}
	cancel := startWatcher(t, vaultDir, log, nil)
	defer cancel()

	// A burst of writes inside the debounce window coalesces into one
	// rebuild, give or take timer resets racing the writes.
	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(vaultDir, "burst.md"), []byte("# Burst"), 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.count(scope.Local) >= 1
	}, "burst did not trigger a rebuild")

	time.Sleep(3 * debounceDelay)
	if n := log.count(scope.Local); n > 2 {
		t.Errorf("rebuilds = %d, want bursts coalesced", n)
	}
}

func TestWatchIgnoresNonMarkdown(t *testing.T) {
	vaultDir := t.TempDir()
	log := &rebuildLog{}
	cancel := startWatcher(t, vaultDir, log, nil)
	defer cancel()

	_ = os.WriteFile(filepath.Join(vaultDir, "scratch.txt"), []byte("not a note"), 0o644)

	time.Sleep(3 * debounceDelay)
	if n := log.count(scope.Local); n != 0 {
		t.Errorf("rebuilds = %d for non-markdown write", n)
	}
}

func TestWatchPicksUpNewDirectories(t *testing.T) {
	vaultDir := t.TempDir()
	log := &rebuildLog{}
	cancel := startWatcher(t, vaultDir, log, nil)
	defer cancel()

	// Directory creation schedules its own rebuild; wait it out so the
	// write below must be seen through the newly added watch.
	subDir := filepath.Join(vaultDir, "topics")
	_ = os.MkdirAll(subDir, 0o755)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.count(scope.Local) >= 1
	}, "directory creation not noticed")
	baseline := log.count(scope.Local)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.count(scope.Local) > baseline
	}, "file in new subdirectory not noticed")
}

func TestWatchStopsOnCancel(t *testing.T) {
	vaultDir := t.TempDir()
	log := &rebuildLog{}

	ctx, cancel := context.WithCancel(context.Background())
	roots := []scope.Root{{Scope: scope.Local, Path: filepath.Dir(vaultDir)}}
	dirs := map[scope.Scope]string{scope.Local: vaultDir}

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, roots, dirs, log.record, quietLogger(), nil)
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

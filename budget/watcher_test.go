// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the debounced budget file watcher.

package budget

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// watchSrc renders a minimal valid budget with the given name.
func watchSrc(name string) string {
	return fmt.Sprintf(`
name: %s
inputs:
  - name: a
    value: 1
    uncertainty: 0.1
outputs:
  - name: y
    formula: a * 2
`, name)
}

type reloadOutcome struct {
	b   *Budget
	err error
}

// Test that saves to the watched file trigger debounced reloads, that
// atomic rename-style saves are observed, and that invalid contents
// surface as handler errors
func TestWatcher_ReloadOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "budget.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchSrc("before")), 0o644))

	outcomes := make(chan reloadOutcome, 16)
	w, err := NewWatcher(path, func(b *Budget, err error) {
		outcomes <- reloadOutcome{b: b, err: err}
	}, &WatcherOptions{DebounceWindow: 20 * time.Millisecond, BufferSize: 16})
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsWatching())

	// waitForName drains outcomes until a reload produces the wanted
	// budget; earlier phases may leave residual flushes behind.
	waitForName := func(want string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case got := <-outcomes:
				if got.err == nil && got.b != nil && got.b.Name == want {
					return
				}
			case <-deadline:
				t.Fatalf("no reload produced budget %q", want)
			}
		}
	}

	// A plain in-place save. The sibling file is noise the filter has
	// to ignore.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(watchSrc("after")), 0o644))
	waitForName("after")

	// An editor-style atomic save: write a temporary file, rename it
	// over the target.
	tmp := filepath.Join(dir, "budget.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(watchSrc("renamed")), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	waitForName("renamed")

	// Invalid contents reach the handler as an error.
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-outcomes:
			if got.err != nil {
				assert.Nil(t, got.b)
				return
			}
		case <-deadline:
			t.Fatal("no reload error after writing an invalid budget")
		}
	}
}

// Test the start and stop lifecycle
func TestWatcher_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "budget.yaml")

	w, err := NewWatcher(path, nil, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsWatching())

	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
}

// Test that watching a file in a missing directory fails at Start
func TestWatcher_MissingDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "budget.yaml"), nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

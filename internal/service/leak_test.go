//go:build leaktests
// +build leaktests

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestWatchLifecycleGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "CMakeLists.txt"), []byte("set(X /x)\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	svc := New(testConfig(root), nil)
	if _, err := svc.ScanAll(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if err := svc.StartWatching(nil, nil); err != nil {
		t.Fatalf("start watching: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "extra.cmake"), []byte("set(Y /y)\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	svc.StopWatching()

	// Give the debounce timer time to fire and drain before the leak check.
	time.Sleep(200 * time.Millisecond)
}

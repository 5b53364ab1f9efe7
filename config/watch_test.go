package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatch(t *testing.T, ctx context.Context, path string) (<-chan struct{}, <-chan error) {
	t.Helper()
	fired := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
	}()
	// Let the watcher register before the test writes anything.
	time.Sleep(100 * time.Millisecond)
	return fired, done
}

func TestWatchFiresOnRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	if err := os.WriteFile(path, []byte("servers: []\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fired, done := startWatch(t, ctx, path)

	if err := os.WriteFile(path, []byte("startup_timeout: 5s\nservers: []\n"), 0o644); err != nil {
		t.Fatalf("rewrite manifest: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("expected onChange after rewrite")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Watch returned %v, want context.Canceled", err)
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.yaml")
	sibling := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("servers: []\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fired, _ := startWatch(t, ctx, path)

	if err := os.WriteFile(sibling, []byte("unrelated\n"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("onChange fired for a sibling file")
	case <-time.After(600 * time.Millisecond):
	}
}

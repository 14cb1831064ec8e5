package main

import (
	"context"
	"io"
	"os"
	"testing"
	"time"
)

func TestWatchFileReruns(t *testing.T) {
	path := writeFile(t, "prog.bas", "PRINT 1\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 50*time.Millisecond, func() { runs <- struct{}{} }, io.Discard)
	}()

	wait := func(what string) {
		t.Helper()
		select {
		case <-runs:
		case err := <-done:
			t.Fatalf("watcher stopped before %s: %v", what, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}
	wait("the first run")

	if err := os.WriteFile(path, []byte("PRINT 2\n"), 0o644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	wait("the rerun")
	for drained := false; !drained; {
		select {
		case <-runs:
		case <-time.After(200 * time.Millisecond):
			drained = true
		}
	}

	// Other files in the directory are ignored.
	if err := os.WriteFile(path+".bak", []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	select {
	case <-runs:
		t.Error("unrelated file triggered a run")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchFileMissingDir(t *testing.T) {
	err := watchFile(context.Background(), "/nonexistent/dir/prog.bas", time.Millisecond, func() {}, io.Discard)
	if err == nil {
		t.Error("expected an error for a missing directory")
	}
}

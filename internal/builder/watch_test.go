package builder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWatch_TailsAndReportsProgress(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")

	var console bytes.Buffer
	w := &Watcher{
		LogPath:      logPath,
		Console:      &console,
		TailInterval: 10 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}

	var mu sync.Mutex
	var seen []Progress

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Watch(ctx, func(p Progress) {
			mu.Lock()
			seen = append(seen, p)
			mu.Unlock()
		})
		close(done)
	}()

	f, err := os.Create(logPath)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("[ 10% 100/1000] compiling\n")
	f.Sync()
	time.Sleep(50 * time.Millisecond)
	f.WriteString("[ 50% 500/1000] linking\n")
	f.Sync()
	f.Close()
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	out := console.String()
	if !strings.Contains(out, "compiling") || !strings.Contains(out, "linking") {
		t.Errorf("console = %q, want both log lines tailed", out)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 {
		t.Fatalf("got %d progress updates, want at least 2", len(seen))
	}
	last := seen[len(seen)-1]
	if last.Percent != 50 {
		t.Errorf("last progress = %+v, want 50%%", last)
	}
}

func TestWatch_NoDuplicateProgress(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "build.log")
	if err := os.WriteFile(logPath, []byte("[ 25% 250/1000] steady\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := &Watcher{
		LogPath:      logPath,
		Console:      &bytes.Buffer{},
		TailInterval: 5 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}

	var mu sync.Mutex
	count := 0

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	w.Watch(ctx, func(p Progress) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("progress callback ran %d times for an unchanged log, want 1", count)
	}
}

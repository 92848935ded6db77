package builder

import (
	"context"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// Watcher tails the build log to the console and reports progress changes
// while the build subprocess runs. Both loops stop when ctx is cancelled.
type Watcher struct {
	LogPath      string
	Console      io.Writer
	TailInterval time.Duration
	PollInterval time.Duration
}

// NewWatcher returns a Watcher with the intervals the driver uses.
func NewWatcher(logPath string, console io.Writer) *Watcher {
	return &Watcher{
		LogPath:      logPath,
		Console:      console,
		TailInterval: 500 * time.Millisecond,
		PollInterval: 5 * time.Second,
	}
}

// Watch runs the tail and progress loops until ctx is done. onProgress is
// called only when the reading changes.
func (w *Watcher) Watch(ctx context.Context, onProgress func(Progress)) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.tail(ctx)
		return nil
	})
	g.Go(func() error {
		w.monitor(ctx, onProgress)
		return nil
	})
	g.Wait()
}

// tail copies newly appended build log bytes to the console.
func (w *Watcher) tail(ctx context.Context) {
	var offset int64

	ticker := time.NewTicker(w.TailInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Drain whatever was written between the last tick and
			// process exit.
			offset = w.copyNew(offset)
			return
		case <-ticker.C:
			offset = w.copyNew(offset)
		}
	}
}

func (w *Watcher) copyNew(offset int64) int64 {
	f, err := os.Open(w.LogPath)
	if err != nil {
		return offset
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset
	}
	n, err := io.Copy(w.Console, f)
	if err != nil {
		return offset
	}
	return offset + n
}

// monitor polls the log for progress and invokes onProgress on change.
func (w *Watcher) monitor(ctx context.Context, onProgress func(Progress)) {
	var last Progress

	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := ReadProgress(w.LogPath)
			if current != last {
				onProgress(current)
				last = current
			}
		}
	}
}

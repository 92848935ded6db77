package main

import (
	"testing"
	"time"

	"github.com/kessoku/rombot/internal/api"
	"github.com/kessoku/rombot/internal/storage"
)

// A build that dies after the compile step, for example while hashing the
// artifact, must still close out its history row and the status tracker.
func TestFinalizeFailed(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	record := storage.BuildRecord{
		ID:        "build-1",
		Device:    "begonia",
		Variant:   "userdebug",
		ROMName:   "AxionOS",
		StartedAt: time.Now(),
	}
	if err := store.StartBuild(record); err != nil {
		t.Fatalf("StartBuild: %v", err)
	}

	tracker := api.NewTracker()
	tracker.Begin(record.ID, record.Device, record.Variant, record.ROMName, "15")

	record.Duration = 42 * time.Minute
	finalizeFailed(store, tracker, record, "checksum failed: read rom.zip: input/output error")

	got, err := store.GetBuild("build-1")
	if err != nil {
		t.Fatalf("GetBuild: %v", err)
	}
	if got.Status != storage.StatusFailed {
		t.Errorf("status = %q, want %q", got.Status, storage.StatusFailed)
	}
	if got.ErrorSummary != "checksum failed: read rom.zip: input/output error" {
		t.Errorf("error summary = %q", got.ErrorSummary)
	}
	if got.Duration != 42*time.Minute {
		t.Errorf("duration = %s, want 42m", got.Duration)
	}
	if stage := tracker.Current().Stage; stage != "failed" {
		t.Errorf("tracker stage = %q, want failed", stage)
	}
}

// finalizeFailed only logs when the row is gone; a missing record must not
// panic or clobber the tracker state.
func TestFinalizeFailed_MissingRecord(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	tracker := api.NewTracker()
	finalizeFailed(store, tracker, storage.BuildRecord{ID: "never-started"}, "boom")

	if stage := tracker.Current().Stage; stage != "failed" {
		t.Errorf("tracker stage = %q, want failed", stage)
	}
}

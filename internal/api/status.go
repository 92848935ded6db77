// Package api exposes the local status endpoint for a running build.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Snapshot is the externally visible state of the current build.
type Snapshot struct {
	BuildID        string `json:"build_id,omitempty"`
	Device         string `json:"device,omitempty"`
	Variant        string `json:"variant,omitempty"`
	ROMName        string `json:"rom_name,omitempty"`
	AndroidVersion string `json:"android_version,omitempty"`
	Stage          string `json:"stage"`
	Progress       string `json:"progress,omitempty"`
	Percent        int    `json:"percent"`
	StartedAt      string `json:"started_at,omitempty"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
}

// Tracker holds the build snapshot behind a mutex. The build loop
// writes, HTTP handlers read.
type Tracker struct {
	mu      sync.Mutex
	snap    Snapshot
	started time.Time
}

// NewTracker returns an empty Tracker in the "idle" stage.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Stage: "idle"}}
}

// Begin marks the start of a build.
func (t *Tracker) Begin(buildID, device, variant, romName, androidVersion string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = time.Now()
	t.snap = Snapshot{
		BuildID:        buildID,
		Device:         device,
		Variant:        variant,
		ROMName:        romName,
		AndroidVersion: androidVersion,
		Stage:          "initializing",
		StartedAt:      t.started.UTC().Format(time.RFC3339),
	}
}

// Update records the latest progress.
func (t *Tracker) Update(stage, progress string, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Stage = stage
	t.snap.Progress = progress
	t.snap.Percent = percent
}

// Finish records the terminal stage, e.g. "success" or "failed".
func (t *Tracker) Finish(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Stage = stage
}

// Current returns a copy of the snapshot with elapsed time filled in.
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.snap
	if !t.started.IsZero() {
		snap.ElapsedSeconds = int64(time.Since(t.started).Seconds())
	}
	return snap
}

// NewHandler returns the router serving health and status.
func NewHandler(tracker *Tracker, version string) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tracker.Current())
	})

	return r
}

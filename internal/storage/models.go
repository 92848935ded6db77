package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Build statuses.
const (
	StatusRunning     = "running"
	StatusSuccess     = "success"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// BuildRecord is one row of build history.
type BuildRecord struct {
	ID             string
	Device         string
	Variant        string
	ROMType        string
	ROMName        string
	AndroidVersion string
	Official       bool
	Status         string // "running", "success", "failed", "interrupted"
	Progress       string
	ArtifactName   string
	ArtifactSize   int64
	ArtifactSHA256 string
	DownloadURL    string
	ErrorSummary   string
	StartedAt      time.Time
	Duration       time.Duration
}

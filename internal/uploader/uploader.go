// Package uploader publishes build artifacts: rclone to a configured
// remote first, the GoFile API as a fallback. Both return a shareable
// download URL.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Uploader pushes a local file somewhere public and returns its link.
type Uploader interface {
	Upload(ctx context.Context, path string) (url string, err error)
	Name() string
}

// ErrNotConfigured is returned by an uploader whose settings are missing;
// the chain skips it silently.
var ErrNotConfigured = errors.New("uploader not configured")

// Chain tries each uploader in order and returns the first link. Only
// configured uploaders count as attempts.
type Chain struct {
	uploaders []Uploader
}

// NewChain builds a Chain over the given uploaders.
func NewChain(uploaders ...Uploader) *Chain {
	return &Chain{uploaders: uploaders}
}

// Upload runs the chain. It fails only when every configured uploader
// failed or none was configured.
func (c *Chain) Upload(ctx context.Context, path string) (string, error) {
	var lastErr error
	attempted := false

	for _, u := range c.uploaders {
		url, err := u.Upload(ctx, path)
		if errors.Is(err, ErrNotConfigured) {
			continue
		}
		attempted = true
		if err != nil {
			slog.Warn("upload failed, trying next uploader", "uploader", u.Name(), "error", err)
			lastErr = err
			continue
		}
		return url, nil
	}

	if !attempted {
		return "", fmt.Errorf("no uploader configured")
	}
	return "", fmt.Errorf("all uploads failed: %w", lastErr)
}

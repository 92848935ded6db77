package uploader

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// commandRunner runs an external command and returns its stdout.
// Injectable so the rclone flow is testable without rclone installed.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

func execCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(ee.Stderr))
		}
		if stderr != "" {
			return "", fmt.Errorf("%s: %w: %s", name, err, stderr)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Rclone copies the artifact to a configured remote folder and resolves a
// public link for it.
type Rclone struct {
	Remote string
	Folder string

	run commandRunner
}

// NewRclone returns an Rclone uploader for remote:folder.
func NewRclone(remote, folder string) *Rclone {
	return &Rclone{Remote: remote, Folder: folder, run: execCommand}
}

func (r *Rclone) Name() string { return "rclone" }

// Upload runs `rclone copy` then `rclone link`.
func (r *Rclone) Upload(ctx context.Context, path string) (string, error) {
	if r.Remote == "" || r.Folder == "" {
		return "", ErrNotConfigured
	}

	dest := fmt.Sprintf("%s:%s", r.Remote, r.Folder)
	if _, err := r.run(ctx, "rclone", "copy", path, dest, "--progress"); err != nil {
		return "", fmt.Errorf("copying to %s: %w", dest, err)
	}

	link, err := r.run(ctx, "rclone", "link", fmt.Sprintf("%s/%s", dest, filepath.Base(path)))
	if err != nil {
		return "", fmt.Errorf("resolving link: %w", err)
	}
	if link == "" {
		return "", fmt.Errorf("rclone link returned no URL")
	}
	return link, nil
}

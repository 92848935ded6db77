package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Result captures the outcome of a finished build subprocess.
type Result struct {
	ExitCode    int
	Duration    time.Duration
	Interrupted bool
}

// Runner executes the ROM build as a bash subprocess with combined output
// redirected to the build log.
type Runner struct {
	RootDir string
	LogPath string
}

// NewRunner returns a Runner for the ROM tree at rootDir. The build log is
// written to build.log at the tree root, as the build monitor expects.
func NewRunner(rootDir string) *Runner {
	return &Runner{
		RootDir: rootDir,
		LogPath: filepath.Join(rootDir, "build.log"),
	}
}

// CleanStaleFiles removes leftovers from a previous run so failure
// detection doesn't trip on old state.
func (r *Runner) CleanStaleFiles() {
	for _, p := range []string{
		filepath.Join(r.RootDir, "out", "error.log"),
		filepath.Join(r.RootDir, "out", ".lock"),
		r.LogPath,
	} {
		os.Remove(p)
	}
}

// Run starts the build command and blocks until it exits. A cancelled
// context terminates the subprocess (SIGTERM, then SIGKILL after a grace
// period) and is reported as Interrupted rather than as an error.
func (r *Runner) Run(ctx context.Context, command string) (Result, error) {
	logFile, err := os.Create(r.LogPath)
	if err != nil {
		return Result{}, fmt.Errorf("creating build log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, "/bin/bash", "-c", command)
	cmd.Dir = r.RootDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("starting build: %w", err)
	}

	waitErr := cmd.Wait()
	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		res.Interrupted = true
		return res, nil
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, fmt.Errorf("waiting for build: %w", waitErr)
	}
	return res, nil
}

// RunSetupStep runs a short shell step (e.g. "m installclean") in the
// source tree with envsetup sourced, streaming output to the console.
func (r *Runner) RunSetupStep(ctx context.Context, step string) error {
	cmd := exec.CommandContext(ctx, "/bin/bash", "-c", envSetup+" && "+step)
	cmd.Dir = r.RootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// fatalPatterns mark a build as failed even when the top-level shell
// pipeline exited zero (soong and ninja sometimes swallow exit codes).
var fatalPatterns = []string{
	"error:",
	"FAILED:",
	"Cannot locate",
	"fatal:",
	"panic:",
}

// CheckFailure inspects the finished build for failure indicators: a
// non-zero exit code, a non-empty out/error.log, or fatal patterns in the
// build log. It returns a short human-readable reason, or "" on success.
func (r *Runner) CheckFailure(res Result) string {
	if res.ExitCode != 0 {
		return fmt.Sprintf("build command exited with status %d", res.ExitCode)
	}

	errorLog := filepath.Join(r.RootDir, "out", "error.log")
	if fi, err := os.Stat(errorLog); err == nil && fi.Size() > 0 {
		return "out/error.log is not empty"
	}

	data, err := os.ReadFile(r.LogPath)
	if err != nil {
		return ""
	}
	content := string(data)
	for _, p := range fatalPatterns {
		if strings.Contains(content, p) {
			return fmt.Sprintf("found %q in build log", p)
		}
	}
	return ""
}

// ErrorLogPath returns the soong error log location, which is sent to the
// error chat on failure when present.
func (r *Runner) ErrorLogPath() string {
	return filepath.Join(r.RootDir, "out", "error.log")
}

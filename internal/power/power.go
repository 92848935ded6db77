// Package power shuts the build host down after unattended builds.
package power

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type runner func(ctx context.Context, name string, args ...string) error

func execRun(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Controller powers the machine off.
type Controller struct {
	run runner
}

// New returns a Controller using the system shutdown tools.
func New() *Controller {
	return &Controller{run: execRun}
}

// Off requests a poweroff, preferring systemd and falling back to
// shutdown when systemctl is unavailable.
func (c *Controller) Off(ctx context.Context) error {
	if err := c.run(ctx, "systemctl", "poweroff"); err == nil {
		return nil
	}
	if err := c.run(ctx, "shutdown", "-h", "now"); err != nil {
		return fmt.Errorf("powering off: %w", err)
	}
	return nil
}

package builder

import (
	"fmt"
	"strings"
)

// Options selects what to build and how.
type Options struct {
	Device  string
	Variant string
	ROMType string // "" for standard brunch, or an "axion-<gms>" flavor
	Jobs    int
}

const envSetup = ". build/envsetup.sh"

// Command composes the shell command for the configured ROM flavor. The
// command is run through bash because envsetup.sh defines shell functions
// (brunch, axion, ax) rather than executables.
func Command(opts Options) (string, error) {
	if opts.Device == "" {
		return "", fmt.Errorf("device is required")
	}
	if opts.Variant == "" {
		return "", fmt.Errorf("variant is required")
	}

	if strings.HasPrefix(opts.ROMType, "axion-") {
		gms := strings.TrimPrefix(opts.ROMType, "axion-")
		switch gms {
		case "pico", "core", "vanilla":
		default:
			return "", fmt.Errorf("unknown axion flavor %q (want axion-pico, axion-core or axion-vanilla)", opts.ROMType)
		}

		gmsVariant := "vanilla"
		if gms != "vanilla" {
			gmsVariant = "gms " + gms
		}

		buildStep := "ax -br"
		if opts.Jobs > 0 {
			buildStep = fmt.Sprintf("ax -b -j%d %s", opts.Jobs, opts.Variant)
		}

		return fmt.Sprintf("%s && axion %s %s %s && %s", envSetup, opts.Device, opts.Variant, gmsVariant, buildStep), nil
	}

	if opts.ROMType != "" {
		return "", fmt.Errorf("unknown rom type %q", opts.ROMType)
	}

	return fmt.Sprintf("%s && brunch %s %s", envSetup, opts.Device, opts.Variant), nil
}

// SyncCommand returns the repo sync invocation used by --sync.
func SyncCommand() []string {
	return []string{"repo", "sync", "-c", "--force-sync", "--no-clone-bundle", "--no-tags"}
}

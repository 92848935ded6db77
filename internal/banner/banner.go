// Package banner renders the build announcement image with ImageMagick.
package banner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// runner executes an external command. Injectable so the convert
// pipeline is testable without ImageMagick installed.
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

// gradients keyed by color scheme name. Unknown schemes fall back to
// the default blue-purple gradient.
var gradients = map[string]string{
	"axion":   "gradient:#3C3C3C-#64B4FF",
	"crdroid": "gradient:#1A237E-#673AB7",
	"lineage": "gradient:#167C80-#2EBFA5",
	"arrow":   "gradient:#0D47A1-#1976D2",
	"aosp":    "gradient:#202124-#5F6368",
	"default": "gradient:#2E3B8E-#6B2E8E",
}

// Info carries the text rendered onto the banner.
type Info struct {
	ROMName        string
	Device         string
	AndroidVersion string
	AvatarURL      string
}

// Generator composes the banner image in WorkDir.
type Generator struct {
	WorkDir     string
	ColorScheme string

	run        runner
	httpClient *http.Client
}

// New returns a Generator writing into workDir.
func New(workDir, colorScheme string) *Generator {
	return &Generator{
		WorkDir:     workDir,
		ColorScheme: colorScheme,
		run:         execRun,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Generate renders the banner and returns its path. Any failure is
// returned to the caller, who degrades to a plain text announcement.
func (g *Generator) Generate(ctx context.Context, info Info) (string, error) {
	if err := g.run(ctx, "convert", "--version"); err != nil {
		return "", fmt.Errorf("imagemagick not available: %w", err)
	}

	out := filepath.Join(g.WorkDir, "build_banner.png")
	if err := g.run(ctx, "convert", "-size", "1920x1080", g.gradient(), out); err != nil {
		return "", fmt.Errorf("creating background: %w", err)
	}

	logo, err := g.fetchLogo(ctx, info.AvatarURL)
	if err == nil && logo != "" {
		err = g.compositeLogo(ctx, out, logo, info)
	} else {
		err = g.annotatePlain(ctx, out, info)
	}
	if err != nil {
		os.Remove(out)
		return "", err
	}
	return out, nil
}

// Cleanup removes the banner and any intermediate files left in WorkDir.
func (g *Generator) Cleanup() {
	for _, name := range []string{"build_banner.png", "rom_logo.png", "logo_circle.png", "mask.png", "logo_shadow.png"} {
		os.Remove(filepath.Join(g.WorkDir, name))
	}
}

func (g *Generator) gradient() string {
	if grad, ok := gradients[strings.ToLower(g.ColorScheme)]; ok {
		return grad
	}
	return gradients["default"]
}

func (g *Generator) fetchLogo(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("no avatar url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading logo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading logo: HTTP %d", resp.StatusCode)
	}

	path := filepath.Join(g.WorkDir, "rom_logo.png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("saving logo: %w", err)
	}
	return path, nil
}

// compositeLogo rounds the logo, adds a soft shadow, composites it onto
// the left of the banner and annotates the text block on the right.
func (g *Generator) compositeLogo(ctx context.Context, out, logo string, info Info) error {
	circle := filepath.Join(g.WorkDir, "logo_circle.png")
	mask := filepath.Join(g.WorkDir, "mask.png")
	shadow := filepath.Join(g.WorkDir, "logo_shadow.png")
	defer func() {
		for _, f := range []string{circle, mask, shadow, logo} {
			os.Remove(f)
		}
	}()

	steps := [][]string{
		{logo, "-resize", "400x400", "-gravity", "center", "-extent", "400x400",
			"-background", "white", "-alpha", "remove", circle},
		{"-size", "400x400", "xc:black", "-fill", "white",
			"-draw", "circle 200,200 200,0", mask},
		{circle, mask, "-alpha", "off", "-compose", "copy_opacity", "-composite", circle},
		{circle, "(", "+clone", "-background", "black", "-shadow", "80x8+0+0", ")",
			"+swap", "-background", "none", "-layers", "merge", "+repage", shadow},
		{out, shadow, "-gravity", "west", "-geometry", "+150+0", "-composite", out},
		{out, "-gravity", "center", "-pointsize", "200", "-fill", "white",
			"-font", "DejaVu-Sans-Bold", "-annotate", "+350-100",
			strings.ToUpper(info.ROMName), out},
		{out, "-gravity", "center", "-pointsize", "65", "-fill", "white",
			"-font", "DejaVu-Sans", "-annotate", "+350+80", infoLine(info), out},
	}
	for _, args := range steps {
		if err := g.run(ctx, "convert", args...); err != nil {
			return fmt.Errorf("compositing banner: %w", err)
		}
	}
	return nil
}

func (g *Generator) annotatePlain(ctx context.Context, out string, info Info) error {
	err := g.run(ctx, "convert", out,
		"-gravity", "center",
		"-pointsize", "180", "-fill", "white",
		"-font", "DejaVu-Sans-Bold",
		"-annotate", "+0-100", strings.ToUpper(info.ROMName),
		"-pointsize", "80", "-fill", "#E0E7FF",
		"-annotate", "+0+50", infoLine(info),
		out)
	if err != nil {
		return fmt.Errorf("annotating banner: %w", err)
	}
	return nil
}

func infoLine(info Info) string {
	return fmt.Sprintf("Device: %s  |  Android %s", info.Device, info.AndroidVersion)
}

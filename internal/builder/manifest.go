package builder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ManifestInfo is what rombot can learn about the ROM tree without
// configuration: the Android release it tracks and the GitHub org that
// hosts the manifest (used for the banner avatar and display name).
type ManifestInfo struct {
	ROMName        string
	AndroidVersion string
	GitHubOrg      string
	AvatarURL      string
}

// gitRunner runs a git invocation and returns its stdout. Injectable so
// manifest detection is testable without a repo checkout.
type gitRunner func(ctx context.Context, dir string, args ...string) (string, error)

func execGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

var (
	taggedRevisionRe = regexp.MustCompile(`revision="refs/tags/android-(\d+)\.`)
	androidVersionRe = regexp.MustCompile(`android-(\d+)\.\d+\.\d+`)
	githubOrgRe      = regexp.MustCompile(`github\.com[:/]([^/]+)`)
)

// DetectManifest inspects the .repo checkout under rootDir. Every field is
// best-effort; missing .repo state leaves fields empty rather than failing
// the build.
func DetectManifest(ctx context.Context, rootDir string) ManifestInfo {
	return detectManifest(ctx, rootDir, execGit)
}

func detectManifest(ctx context.Context, rootDir string, git gitRunner) ManifestInfo {
	info := ManifestInfo{
		ROMName:        filepath.Base(rootDir),
		AndroidVersion: detectAndroidVersion(rootDir),
	}

	manifestRepo := filepath.Join(rootDir, ".repo", "manifests")
	if _, err := os.Stat(manifestRepo); err != nil {
		return info
	}

	remote, err := git(ctx, manifestRepo, "remote", "get-url", "origin")
	if err != nil {
		return info
	}
	if m := githubOrgRe.FindStringSubmatch(remote); m != nil {
		info.GitHubOrg = m[1]
		info.AvatarURL = fmt.Sprintf("https://github.com/%s.png?size=200", m[1])
		// Org names like "AxionAOSP-releases" read better trimmed at the dash.
		info.ROMName = capitalize(strings.SplitN(m[1], "-", 2)[0])
	}
	return info
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func detectAndroidVersion(rootDir string) string {
	for _, rel := range []string{
		filepath.Join(".repo", "manifests", "default.xml"),
		filepath.Join(".repo", "manifest.xml"),
	} {
		data, err := os.ReadFile(filepath.Join(rootDir, rel))
		if err != nil {
			continue
		}
		if m := taggedRevisionRe.FindSubmatch(data); m != nil {
			return string(m[1])
		}
		if m := androidVersionRe.FindSubmatch(data); m != nil {
			return string(m[1])
		}
	}
	return ""
}

package builder

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Artifact describes the ROM zip a successful build produced.
type Artifact struct {
	Path   string
	Name   string
	Size   int64
	SHA256 string
	MD5    string
}

// MinROMSize filters out OTA deltas, recovery zips and other small
// leftovers when searching the out directory.
const MinROMSize = 500 * 1024 * 1024

// romPatterns is ordered: flavor-specific names win over the generic
// catch-all so a stale zip from another ROM doesn't shadow the fresh one.
var romPatterns = []string{
	"axion-*.zip",
	"lineage-*.zip",
	"crdroid-*.zip",
	"voltage-*.zip",
	"arrow-*.zip",
	"evolution-*.zip",
	"*.zip",
}

// FindROMZip locates the newest flashable ROM zip in outDir, skipping OTA
// and image zips and anything under minSize bytes.
func FindROMZip(outDir string, minSize int64) (string, error) {
	for _, pattern := range romPatterns {
		matches, err := filepath.Glob(filepath.Join(outDir, pattern))
		if err != nil {
			return "", fmt.Errorf("globbing %s: %w", pattern, err)
		}

		var newest string
		var newestMod int64
		for _, m := range matches {
			name := strings.ToLower(filepath.Base(m))
			if strings.Contains(name, "ota") || strings.Contains(name, "img") {
				continue
			}
			fi, err := os.Stat(m)
			if err != nil || fi.Size() < minSize {
				continue
			}
			if mod := fi.ModTime().UnixNano(); newest == "" || mod > newestMod {
				newest = m
				newestMod = mod
			}
		}
		if newest != "" {
			return newest, nil
		}
	}
	return "", fmt.Errorf("no ROM zip found in %s", outDir)
}

// DescribeArtifact stats and checksums the ROM zip. Both digests are
// published: SHA256 for verification, MD5 because recoveries still show it.
func DescribeArtifact(path string) (Artifact, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stating artifact: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("opening artifact: %w", err)
	}
	defer f.Close()

	sha := sha256.New()
	md := md5.New()
	if _, err := io.Copy(io.MultiWriter(sha, md), f); err != nil {
		return Artifact{}, fmt.Errorf("hashing artifact: %w", err)
	}

	return Artifact{
		Path:   path,
		Name:   filepath.Base(path),
		Size:   fi.Size(),
		SHA256: hex.EncodeToString(sha.Sum(nil)),
		MD5:    hex.EncodeToString(md.Sum(nil)),
	}, nil
}

// bootImageNames are uploaded alongside the ROM for devices that need
// manual boot image flashing. vendor_boot.img acts as the sentinel: when
// it's absent the device doesn't use this partition layout.
var bootImageNames = []string{"vendor_boot.img", "boot.img", "init_boot.img"}

// BootImages returns the boot image paths to upload, or nil when the
// device layout doesn't call for them.
func BootImages(outDir string) []string {
	if _, err := os.Stat(filepath.Join(outDir, "vendor_boot.img")); err != nil {
		return nil
	}
	var paths []string
	for _, name := range bootImageNames {
		p := filepath.Join(outDir, name)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// HumanSize renders a byte count the way the success message shows it.
func HumanSize(n int64) string {
	const gib = 1 << 30
	const mib = 1 << 20
	if n >= gib {
		return fmt.Sprintf("%.2f GiB", float64(n)/float64(gib))
	}
	return fmt.Sprintf("%.2f MiB", float64(n)/float64(mib))
}

// OutDir returns the product output directory for a device.
func OutDir(rootDir, device string) string {
	return filepath.Join(rootDir, "out", "target", "product", device)
}

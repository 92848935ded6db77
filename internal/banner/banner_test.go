package banner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeRunner records convert invocations and creates any file named as
// the final argument, standing in for ImageMagick output.
type fakeRunner struct {
	calls [][]string
	fail  map[int]error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) error {
	i := len(f.calls)
	f.calls = append(f.calls, append([]string{name}, args...))
	if err, ok := f.fail[i]; ok {
		return err
	}
	if len(args) > 0 {
		last := args[len(args)-1]
		if strings.HasSuffix(last, ".png") {
			os.WriteFile(last, []byte("png"), 0o644)
		}
	}
	return nil
}

func newTestGenerator(t *testing.T, scheme string) (*Generator, *fakeRunner) {
	t.Helper()
	rec := &fakeRunner{}
	g := New(t.TempDir(), scheme)
	g.run = rec.run
	return g, rec
}

func TestGenerate_WithLogo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("avatar png bytes"))
	}))
	defer srv.Close()

	g, rec := newTestGenerator(t, "axion")
	path, err := g.Generate(context.Background(), Info{
		ROMName:        "AxionAOSP",
		Device:         "begonia",
		AndroidVersion: "15",
		AvatarURL:      srv.URL,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if filepath.Base(path) != "build_banner.png" {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("banner file missing: %v", err)
	}

	// version check, gradient, then the seven composite steps
	if len(rec.calls) != 9 {
		t.Fatalf("got %d convert calls, want 9", len(rec.calls))
	}
	gradient := strings.Join(rec.calls[1], " ")
	if !strings.Contains(gradient, "gradient:#3C3C3C-#64B4FF") {
		t.Errorf("gradient call = %q, want axion scheme", gradient)
	}
	title := strings.Join(rec.calls[7], " ")
	if !strings.Contains(title, "AXIONAOSP") {
		t.Errorf("title annotation = %q, want upper-cased name", title)
	}
	device := strings.Join(rec.calls[8], " ")
	if !strings.Contains(device, "Device: begonia  |  Android 15") {
		t.Errorf("info annotation = %q", device)
	}

	// intermediates are removed, the banner itself stays
	for _, name := range []string{"rom_logo.png", "logo_circle.png", "mask.png", "logo_shadow.png"} {
		if _, err := os.Stat(filepath.Join(g.WorkDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s left behind", name)
		}
	}
}

func TestGenerate_TextOnlyWithoutAvatar(t *testing.T) {
	g, rec := newTestGenerator(t, "unknown-scheme")
	path, err := g.Generate(context.Background(), Info{
		ROMName:        "crDroid",
		Device:         "alioth",
		AndroidVersion: "14",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("banner file missing: %v", err)
	}

	// version check, gradient, single annotate pass
	if len(rec.calls) != 3 {
		t.Fatalf("got %d convert calls, want 3", len(rec.calls))
	}
	gradient := strings.Join(rec.calls[1], " ")
	if !strings.Contains(gradient, "gradient:#2E3B8E-#6B2E8E") {
		t.Errorf("gradient call = %q, want default scheme", gradient)
	}
	annotate := strings.Join(rec.calls[2], " ")
	if !strings.Contains(annotate, "CRDROID") {
		t.Errorf("annotate call = %q", annotate)
	}
}

func TestGenerate_ImageMagickMissing(t *testing.T) {
	g, rec := newTestGenerator(t, "axion")
	rec.fail = map[int]error{0: fmt.Errorf("executable not found")}

	_, err := g.Generate(context.Background(), Info{ROMName: "AxionAOSP"})
	if err == nil {
		t.Fatal("expected error when convert is unavailable")
	}
	if !strings.Contains(err.Error(), "imagemagick not available") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestGenerate_LogoFetchFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	g, rec := newTestGenerator(t, "axion")
	g.httpClient = &http.Client{Timeout: time.Second}

	_, err := g.Generate(context.Background(), Info{
		ROMName:   "AxionAOSP",
		Device:    "begonia",
		AvatarURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(rec.calls) != 3 {
		t.Errorf("got %d convert calls, want text-only fallback with 3", len(rec.calls))
	}
}

func TestCleanup(t *testing.T) {
	g, _ := newTestGenerator(t, "axion")
	for _, name := range []string{"build_banner.png", "rom_logo.png"} {
		if err := os.WriteFile(filepath.Join(g.WorkDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	g.Cleanup()

	entries, err := os.ReadDir(g.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d files left after Cleanup", len(entries))
	}
}

package uploader

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fakeUploader scripts a single Upload outcome.
type fakeUploader struct {
	name  string
	url   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, path string) (string, error) {
	f.calls++
	return f.url, f.err
}

func (f *fakeUploader) Name() string { return f.name }

func TestChain_FirstSuccess(t *testing.T) {
	first := &fakeUploader{name: "rclone", url: "https://drive.example/rom.zip"}
	second := &fakeUploader{name: "gofile", url: "https://gofile.io/d/abc"}

	url, err := NewChain(first, second).Upload(context.Background(), "/tmp/rom.zip")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://drive.example/rom.zip" {
		t.Errorf("url = %q", url)
	}
	if second.calls != 0 {
		t.Error("fallback uploader should not run after a success")
	}
}

func TestChain_FallsBack(t *testing.T) {
	first := &fakeUploader{name: "rclone", err: fmt.Errorf("remote quota exceeded")}
	second := &fakeUploader{name: "gofile", url: "https://gofile.io/d/abc"}

	url, err := NewChain(first, second).Upload(context.Background(), "/tmp/rom.zip")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://gofile.io/d/abc" {
		t.Errorf("url = %q, want fallback link", url)
	}
}

func TestChain_SkipsUnconfigured(t *testing.T) {
	first := &fakeUploader{name: "rclone", err: ErrNotConfigured}
	second := &fakeUploader{name: "gofile", url: "https://gofile.io/d/abc"}

	url, err := NewChain(first, second).Upload(context.Background(), "/tmp/rom.zip")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://gofile.io/d/abc" {
		t.Errorf("url = %q", url)
	}
}

func TestChain_AllFail(t *testing.T) {
	first := &fakeUploader{name: "rclone", err: fmt.Errorf("copy failed")}
	second := &fakeUploader{name: "gofile", err: fmt.Errorf("upload rejected")}

	_, err := NewChain(first, second).Upload(context.Background(), "/tmp/rom.zip")
	if err == nil {
		t.Fatal("expected error when every uploader fails")
	}
	if !strings.Contains(err.Error(), "upload rejected") {
		t.Errorf("error = %q, want the last failure wrapped", err.Error())
	}
}

func TestChain_NothingConfigured(t *testing.T) {
	first := &fakeUploader{name: "rclone", err: ErrNotConfigured}
	second := &fakeUploader{name: "gofile", err: ErrNotConfigured}

	_, err := NewChain(first, second).Upload(context.Background(), "/tmp/rom.zip")
	if err == nil {
		t.Fatal("expected error when no uploader is configured")
	}
	if !strings.Contains(err.Error(), "no uploader configured") {
		t.Errorf("error = %q", err.Error())
	}
}

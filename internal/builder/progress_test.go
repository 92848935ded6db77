package builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseProgress_NinjaLine(t *testing.T) {
	lines := []string{
		"[ 10% 100/5678] compiling foo.cpp",
		"[ 42% 2385/5678] linking libbar.so",
	}
	p := parseProgress(lines)
	if p.Stage != StageBuilding {
		t.Fatalf("Stage = %q, want building", p.Stage)
	}
	if p.Percent != 42 || p.Done != 2385 || p.Total != 5678 {
		t.Errorf("got %d%% (%d/%d), want 42%% (2385/5678)", p.Percent, p.Done, p.Total)
	}
	if got := p.String(); got != "42% (2385/5678)" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseProgress_LooseLine(t *testing.T) {
	p := parseProgress([]string{"99% 11185/11185 5m4s remaining"})
	if p.Stage != StageBuilding || p.Percent != 99 {
		t.Errorf("got stage=%q percent=%d, want building/99", p.Stage, p.Percent)
	}
}

func TestParseProgress_Packaging(t *testing.T) {
	tests := []string{
		"Package Complete: out/target/product/lunaa/axion-1.0.zip",
		"Writing full OTA package...",
		"Generating OTA metadata",
		"add_img_to_target_files.py ... done",
		"Compressing system.new.dat",
	}
	for _, line := range tests {
		t.Run(line[:20], func(t *testing.T) {
			p := parseProgress([]string{"[ 99% 5677/5678] last action", line})
			if p.Stage != StagePackaging {
				t.Errorf("Stage = %q, want packaging for %q", p.Stage, line)
			}
		})
	}
}

func TestParseProgress_ActiveWithoutPercent(t *testing.T) {
	p := parseProgress([]string{"soong bootstrap", "ninja: entering directory"})
	if p.Stage != StageBuilding {
		t.Errorf("Stage = %q, want building", p.Stage)
	}
	if got := p.String(); got != "Building..." {
		t.Errorf("String() = %q", got)
	}
}

func TestParseProgress_Empty(t *testing.T) {
	p := parseProgress(nil)
	if p.Stage != StageInitializing {
		t.Errorf("Stage = %q, want initializing", p.Stage)
	}
}

func TestReadProgress_MissingFile(t *testing.T) {
	p := ReadProgress(filepath.Join(t.TempDir(), "no-such.log"))
	if p.Stage != StageInitializing {
		t.Errorf("Stage = %q, want initializing", p.Stage)
	}
}

func TestReadProgress_TailOnly(t *testing.T) {
	// The parser only looks at the last 200 lines; an early ninja line
	// must not be picked up over a later one.
	var sb strings.Builder
	sb.WriteString("[ 1% 10/5678] early\n")
	for i := 0; i < 300; i++ {
		sb.WriteString("noise line\n")
	}
	sb.WriteString("[ 77% 4372/5678] late\n")

	path := filepath.Join(t.TempDir(), "build.log")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	p := ReadProgress(path)
	if p.Percent != 77 {
		t.Errorf("Percent = %d, want 77", p.Percent)
	}
}

func TestTotalActions(t *testing.T) {
	content := strings.Join([]string{
		"[ 10% 100/3000] a",
		"[ 50% 2839/5678] b",
		"[ 99% 5677/5678] c",
	}, "\n")
	path := filepath.Join(t.TempDir(), "build.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := TotalActions(path); got != 5678 {
		t.Errorf("TotalActions = %d, want 5678", got)
	}
}

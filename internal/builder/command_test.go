package builder

import (
	"strings"
	"testing"
)

func TestCommand_Standard(t *testing.T) {
	cmd, err := Command(Options{Device: "begonia", Variant: "userdebug"})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	want := ". build/envsetup.sh && brunch begonia userdebug"
	if cmd != want {
		t.Errorf("cmd = %q, want %q", cmd, want)
	}
}

func TestCommand_AxionFlavors(t *testing.T) {
	tests := []struct {
		romType string
		want    string
	}{
		{"axion-pico", ". build/envsetup.sh && axion lunaa userdebug gms pico && ax -br"},
		{"axion-core", ". build/envsetup.sh && axion lunaa userdebug gms core && ax -br"},
		{"axion-vanilla", ". build/envsetup.sh && axion lunaa userdebug vanilla && ax -br"},
	}
	for _, tt := range tests {
		t.Run(tt.romType, func(t *testing.T) {
			cmd, err := Command(Options{Device: "lunaa", Variant: "userdebug", ROMType: tt.romType})
			if err != nil {
				t.Fatalf("Command: %v", err)
			}
			if cmd != tt.want {
				t.Errorf("cmd = %q, want %q", cmd, tt.want)
			}
		})
	}
}

func TestCommand_AxionWithJobs(t *testing.T) {
	cmd, err := Command(Options{Device: "lunaa", Variant: "userdebug", ROMType: "axion-pico", Jobs: 12})
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if !strings.HasSuffix(cmd, "ax -b -j12 userdebug") {
		t.Errorf("cmd = %q, want it to end with the jobs-limited build step", cmd)
	}
}

func TestCommand_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"missing device", Options{Variant: "userdebug"}},
		{"missing variant", Options{Device: "begonia"}},
		{"bad axion flavor", Options{Device: "begonia", Variant: "userdebug", ROMType: "axion-mega"}},
		{"unknown rom type", Options{Device: "begonia", Variant: "userdebug", ROMType: "crdroid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Command(tt.opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

package builder

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Stage is the coarse phase a build is in, derived from the build log.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageBuilding     Stage = "building"
	StagePackaging    Stage = "packaging"
)

// Progress is a point-in-time reading of how far the build has gotten.
type Progress struct {
	Stage   Stage
	Percent int
	Done    int
	Total   int
}

func (p Progress) String() string {
	switch p.Stage {
	case StagePackaging:
		return "Packing final ROM..."
	case StageBuilding:
		if p.Total > 0 {
			return fmt.Sprintf("%d%% (%d/%d)", p.Percent, p.Done, p.Total)
		}
		return "Building..."
	default:
		return "Initializing the build system..."
	}
}

var (
	// ninja progress lines look like "[ 42% 1234/5678 5m4s remaining]".
	ninjaRe = regexp.MustCompile(`\[\s*(\d+)%\s+(\d+)/(\d+)`)
	// soong_ui and kati emit a looser "42% 1234/5678" form.
	looseRe = regexp.MustCompile(`(\d+)%\s+(\d+)/(\d+)`)
)

// packagingMarkers appear once ninja is done and the final OTA zip is
// being assembled.
var packagingMarkers = []string{
	"Package Complete:",
	"Writing full OTA",
	"Generating OTA",
}

const progressTailLines = 200

// ReadProgress parses the most recent progress information out of the
// build log. A missing log means the build system hasn't started writing
// yet.
func ReadProgress(logPath string) Progress {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return Progress{Stage: StageInitializing}
	}
	lines := tailLines(strings.Split(string(data), "\n"), progressTailLines)
	return parseProgress(lines)
}

func parseProgress(lines []string) Progress {
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if isPackagingLine(line) {
			return Progress{Stage: StagePackaging}
		}
		m := ninjaRe.FindStringSubmatch(line)
		if m == nil {
			m = looseRe.FindStringSubmatch(line)
		}
		if m != nil {
			pct, _ := strconv.Atoi(m[1])
			done, _ := strconv.Atoi(m[2])
			total, _ := strconv.Atoi(m[3])
			return Progress{Stage: StageBuilding, Percent: pct, Done: done, Total: total}
		}
	}

	for i := len(lines) - 1; i >= 0 && i >= len(lines)-10; i-- {
		lower := strings.ToLower(lines[i])
		if strings.Contains(lower, "ninja") || strings.Contains(lower, "soong") || strings.Contains(lower, "build") {
			return Progress{Stage: StageBuilding}
		}
	}

	return Progress{Stage: StageInitializing}
}

func isPackagingLine(line string) bool {
	for _, m := range packagingMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	if strings.Contains(line, "add_img_to_target_files") && strings.Contains(line, "done") {
		return true
	}
	if strings.Contains(line, "Compressing") && strings.Contains(line, ".new.dat") {
		return true
	}
	return false
}

// TotalActions scans the whole build log for the largest ninja action
// count, used in the success message stats.
func TotalActions(logPath string) int {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return 0
	}
	max := 0
	for _, line := range strings.Split(string(data), "\n") {
		m := ninjaRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if total, err := strconv.Atoi(m[3]); err == nil && total > max {
			max = total
		}
	}
	return max
}

func tailLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

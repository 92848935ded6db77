package notify

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// Build identifies the build being reported. The fields feed every
// message the notifier sends.
type Build struct {
	ROMName        string
	Device         string
	AndroidVersion string
	Variant        string
	Official       bool
}

func (b Build) typeLabel() string {
	if b.Official {
		return "Official"
	}
	return "Unofficial"
}

// BootLink pairs a boot image name with its download URL.
type BootLink struct {
	Name string
	URL  string
}

// Report collects everything shown in the final success message.
type Report struct {
	Duration     time.Duration
	TotalActions int
	FileName     string
	SizeHuman    string
	SHA256       string
	MD5          string
	ROMURL       string
	BootLinks    []BootLink
}

// formatDuration renders like "1h 23m 45s", dropping the hour part
// for short builds.
func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

func buildingCaption(b Build, status string) string {
	return fmt.Sprintf(`<b>🔨 Building %s</b>

<b>Device:</b> %s | <b>Android:</b> %s
<b>Type:</b> %s

<b>⏳ Progress:</b> %s`, b.ROMName, b.Device, b.AndroidVersion, b.typeLabel(), status)
}

func compilingText(b Build, status string) string {
	return fmt.Sprintf(`🟡 | <i>Compiling ROM...</i>

<b>• ROM:</b> <code>%s</code>
<b>• DEVICE:</b> <code>%s</code>
<b>• ANDROID VERSION:</b> <code>%s</code>
<b>• TYPE:</b> <code>%s</code>
<b>• PROGRESS:</b> <code>%s</code>`, b.ROMName, b.Device, b.AndroidVersion, b.typeLabel(), status)
}

func syncingText(b Build) string {
	return fmt.Sprintf(`🔄 | <i>Syncing sources...</i>

<b>• ROM:</b> <code>%s</code>
<b>• DEVICE:</b> <code>%s</code>`, b.ROMName, b.Device)
}

func uploadingText(b Build, status string) string {
	return fmt.Sprintf(`<b>📤 Uploading Files...</b>

<b>Device:</b> %s | <b>Android:</b> %s
<b>Type:</b> %s

<b>⏳ Status:</b> %s`, b.Device, b.AndroidVersion, b.typeLabel(), status)
}

func successText(b Build, r Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<b>✅ %s Build Complete!</b>

<b>Device:</b> %s | <b>Android:</b> %s
<b>Type:</b> %s | <b>Build Type:</b> %s
`, b.ROMName, b.Device, b.AndroidVersion, b.typeLabel(), b.Variant)

	if r.ROMURL != "" {
		fmt.Fprintf(&sb, "\n<b>📦 Downloads:</b>\n<b>• ROM:</b> %s\n", r.ROMURL)
		for _, bl := range r.BootLinks {
			label := strings.ToUpper(strings.TrimSuffix(bl.Name, ".img"))
			fmt.Fprintf(&sb, "<b>• %s:</b> %s\n", label, bl.URL)
		}
	}

	fmt.Fprintf(&sb, "\n<b>📊 Build Stats:</b>\n<b>• Duration:</b> %s\n", formatDuration(r.Duration))
	if r.TotalActions > 0 {
		fmt.Fprintf(&sb, "<b>• Actions:</b> %d/%d actions\n", r.TotalActions, r.TotalActions)
	}

	fmt.Fprintf(&sb, "\n<b>🔧 File:</b>\n<b>• Name:</b> <code>%s</code>\n<b>• Size:</b> %s\n<b>• SHA256:</b> <code>%s</code>\n<b>• MD5:</b> <code>%s</code>",
		html.EscapeString(r.FileName), r.SizeHuman, r.SHA256, r.MD5)

	if r.ROMURL == "" {
		sb.WriteString("\n\n<b>📁 Status:</b> Files saved locally")
	}
	return sb.String()
}

func failureText(b Build, lastProgress string, d time.Duration) string {
	return fmt.Sprintf(`<b>❌ %s Build Failed</b>

<b>Device:</b> %s | <b>Android:</b> %s
<b>Last Progress:</b> %s
<b>Duration:</b> %s

<i>Check logs below for details</i>`, b.ROMName, b.Device, b.AndroidVersion, lastProgress, formatDuration(d))
}

func interruptedText(b Build) string {
	return fmt.Sprintf(`⚠️ | <i>Build interrupted by user</i>

<b>• ROM:</b> <code>%s</code>
<b>• DEVICE:</b> <code>%s</code>

<i>Build was cancelled</i>`, b.ROMName, b.Device)
}

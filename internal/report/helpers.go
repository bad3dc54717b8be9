package report

import (
	"fmt"
	"time"

	"uicheck/internal/runner"
)

// FmtDuration formats a duration as "850ms", "2.3s" or "1m 5s".
func FmtDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	s := int(d.Seconds())
	return fmt.Sprintf("%dm %ds", s/60, s%60)
}

// Truncate shortens s to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// StatusMark returns a one-character mark for a step status.
func StatusMark(s runner.StepStatus) string {
	switch s {
	case runner.StepPassed:
		return "✓"
	case runner.StepFailed:
		return "✗"
	case runner.StepSkipped:
		return "-"
	}
	return "·"
}

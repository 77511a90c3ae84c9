package ui

import (
	"fmt"
	"time"
)

// Summary describes a finished run
type Summary struct {
	Courses int
	Written int
	Skipped int
	Failed  int
	Bytes   int64
	Elapsed time.Duration
}

// PrintSummary prints the run totals unless silent
func (c *Console) PrintSummary(s Summary) {
	if c.silent {
		return
	}
	c.println(fmt.Sprintf("%s %d new files from %d courses", c.paint(Green, "✓"), s.Written, s.Courses))
	c.println(fmt.Sprintf("  %s %s in %s", c.paint(Dim, "•"), FormatBytes(s.Bytes), FormatDuration(s.Elapsed)))
	if s.Skipped > 0 {
		c.println(fmt.Sprintf("  %s %d already up to date", c.paint(Dim, "•"), s.Skipped))
	}
	if s.Failed > 0 {
		c.println(fmt.Sprintf("  %s %d links failed", c.paint(Dim, "•"), s.Failed))
	}
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
